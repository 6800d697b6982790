package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/dictate/internal/backend"
	"github.com/five82/dictate/internal/bus"
	"github.com/five82/dictate/internal/config"
	"github.com/five82/dictate/internal/history"
	"github.com/five82/dictate/internal/logging"
	"github.com/five82/dictate/internal/prefs"
	"github.com/five82/dictate/internal/rms"
	"github.com/five82/dictate/internal/service"
	"github.com/five82/dictate/internal/state"
	"github.com/five82/dictate/internal/ui"
)

var (
	_ ui.Controller = (*service.Service)(nil)
	_ ui.Timeline   = (*rms.Aggregator)(nil)
)

// Options configure the dictation client.
type Options struct {
	ConfigPath string
	PrefsPath  string        // empty uses ~/.config/dictate/prefs.toml
	PollEvery  time.Duration // zero uses the configured interval
}

// Runtime is everything one client process shares: the transport, the state
// mirror, the audio timeline, the local event bus and the service tying them
// together.
type Runtime struct {
	Config   config.Config
	Client   *backend.Client
	Store    *state.Store
	Timeline *rms.Aggregator
	Bus      *bus.Bus
	Service  *service.Service
}

// Build wires a Runtime from cfg without touching the network.
func Build(cfg config.Config, log zerolog.Logger) (*Runtime, error) {
	client, err := backend.NewClient(cfg.BackendURL, log)
	if err != nil {
		return nil, fmt.Errorf("init backend client: %w", err)
	}

	store := state.NewStore(cfg.ErrorHistory, history.DefaultCapacity)
	timeline := rms.New(rms.WithThreshold(cfg.ActivityThreshold), rms.WithLogger(log))
	events := &bus.Bus{}

	svc := service.New(client, store, timeline, service.Options{
		Policy:            cfg.Profiles,
		RecoveryThreshold: cfg.RecoveryThreshold,
		AutoAcknowledge:   cfg.AutoAcknowledge,
		PollInterval:      cfg.PollInterval,
		Bus:               events,
		Log:               log,
	})

	return &Runtime{
		Config:   cfg,
		Client:   client,
		Store:    store,
		Timeline: timeline,
		Bus:      events,
		Service:  svc,
	}, nil
}

// Start starts the service. autoRecovery restores the sticky preference
// before the first connection attempt so early failures stay quiet.
func (r *Runtime) Start(ctx context.Context, autoRecovery bool) error {
	if autoRecovery {
		r.Service.EnableAutoRecovery()
	}
	if err := r.Service.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	return nil
}

// Close stops the service and then the transport.
func (r *Runtime) Close() error {
	return errors.Join(r.Service.Close(), r.Client.Close())
}

// Run boots the dictation client and blocks until the UI exits or ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = opts.PollEvery
	}

	log, closer, err := logging.New(logging.Options{Path: cfg.LogPath(), Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		log.Warn().Err(err).Msg("load preferences, using defaults")
	}

	rt, err := Build(cfg, log)
	if err != nil {
		return err
	}
	if err := rt.Start(ctx, userPrefs.AutoRecovery); err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	stopSignals := relayBusSignals(ctx, rt.Bus, log)
	defer stopSignals()

	log.Info().Str("backend", rt.Client.URL()).Msg("dictate started")

	return ui.Run(ui.Options{
		Context:    ctx,
		Controller: rt.Service,
		Store:      rt.Store,
		Timeline:   rt.Timeline,
		LogPath:    cfg.LogPath(),
		PrefsPath:  opts.PrefsPath,
		ThemeName:  userPrefs.Theme,
		PollTick:   cfg.PollInterval,
		Log:        log,
	})
}
