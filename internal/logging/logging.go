// Package logging builds the client's zerolog logger. The terminal belongs
// to the UI, so everything goes to a rotating file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TimeFormat is the timestamp layout of every log line.
const TimeFormat = "2006-01-02 15:04:05"

// Options configure New.
type Options struct {
	Path  string
	Level zerolog.Level

	MaxSizeMB  int // rotate after this size
	MaxBackups int
	MaxAgeDays int
}

// New opens (or creates) the log file at opts.Path and returns a logger
// writing human-readable lines to it. Close the returned io.Closer on exit.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	if opts.Path == "" {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("create log dir: %w", err)
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 3
	}
	if opts.MaxAgeDays <= 0 {
		opts.MaxAgeDays = 28
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	return NewWriter(rotator, opts.Level), rotator, nil
}

// NewWriter returns a logger writing console-formatted lines to w.
func NewWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: TimeFormat,
		NoColor:    true,
	}
	return zerolog.New(console).Level(level).With().Timestamp().Int("pid", os.Getpid()).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
