package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/five82/dictate/internal/notify"
	"github.com/five82/dictate/internal/profile"
	"github.com/five82/dictate/internal/rms"
)

// Config holds the client settings read from config.toml.
type Config struct {
	BackendURL   string
	LogDir       string
	LogLevel     zerolog.Level
	PollInterval time.Duration

	Profiles profile.Policy

	ActivityThreshold float64

	ErrorHistory      int
	RecoveryThreshold int
	AutoAcknowledge   bool
}

const (
	defaultConfigPath   = "~/.config/dictate/config.toml"
	defaultLogDir       = "~/.local/share/dictate/logs"
	defaultBackendURL   = "ws://127.0.0.1:7488/ws"
	defaultPollInterval = time.Second
	minPollInterval     = 100 * time.Millisecond
	logFileName         = "dictate.log"
)

type rawConfig struct {
	BackendURL     string `toml:"backend_url"`
	LogDir         string `toml:"log_dir"`
	LogLevel       string `toml:"log_level"`
	PollIntervalMS int    `toml:"poll_interval_ms"`

	Profiles struct {
		MaxVisible  int    `toml:"max_visible"`
		CountPinned bool   `toml:"count_pinned"`
		OnOverflow  string `toml:"on_overflow"`
	} `toml:"profiles"`

	Timeline struct {
		ActivityThreshold float64 `toml:"activity_threshold"`
	} `toml:"timeline"`

	Errors struct {
		History           int  `toml:"history"`
		RecoveryThreshold int  `toml:"recovery_threshold"`
		AutoAcknowledge   bool `toml:"auto_acknowledge"`
	} `toml:"errors"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BackendURL:        defaultBackendURL,
		LogDir:            mustExpand(defaultLogDir),
		LogLevel:          zerolog.InfoLevel,
		PollInterval:      defaultPollInterval,
		Profiles:          profile.DefaultPolicy(),
		ActivityThreshold: rms.DefaultThreshold,
		ErrorHistory:      notify.DefaultCapacity,
		RecoveryThreshold: notify.DefaultRecoveryThreshold,
	}
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return raw.resolve()
}

func (raw rawConfig) resolve() (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(raw.BackendURL); v != "" {
		cfg.BackendURL = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.LogDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		level, err := zerolog.ParseLevel(strings.ToLower(v))
		if err != nil {
			return Config{}, fmt.Errorf("parse config: log_level: %w", err)
		}
		cfg.LogLevel = level
	}
	if raw.PollIntervalMS > 0 {
		cfg.PollInterval = time.Duration(raw.PollIntervalMS) * time.Millisecond
		if cfg.PollInterval < minPollInterval {
			cfg.PollInterval = minPollInterval
		}
	}

	if raw.Profiles.MaxVisible < 0 {
		return Config{}, fmt.Errorf("parse config: profiles.max_visible must not be negative")
	}
	if raw.Profiles.MaxVisible > 0 {
		cfg.Profiles.MaxVisible = raw.Profiles.MaxVisible
	}
	cfg.Profiles.CountPinned = raw.Profiles.CountPinned
	overflow, err := profile.ParseOverflow(strings.TrimSpace(raw.Profiles.OnOverflow))
	if err != nil {
		return Config{}, fmt.Errorf("parse config: profiles.on_overflow: %w", err)
	}
	cfg.Profiles.Overflow = overflow

	if raw.Timeline.ActivityThreshold != 0 {
		cfg.ActivityThreshold = rms.ClampThreshold(raw.Timeline.ActivityThreshold)
	}
	if raw.Errors.History > 0 {
		cfg.ErrorHistory = raw.Errors.History
	}
	if raw.Errors.RecoveryThreshold > 0 {
		cfg.RecoveryThreshold = raw.Errors.RecoveryThreshold
	}
	cfg.AutoAcknowledge = raw.Errors.AutoAcknowledge
	return cfg, nil
}

// LogPath returns the path of the client's own log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return filepath.Join(mustExpand(defaultLogDir), logFileName)
	}
	return filepath.Join(c.LogDir, logFileName)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
