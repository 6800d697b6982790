package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/five82/dictate/internal/backend"
	"github.com/five82/dictate/internal/backoff"
	"github.com/five82/dictate/internal/notify"
	"github.com/five82/dictate/internal/state"
)

func (s *Service) kickReconnect() {
	select {
	case s.reconnectKick <- struct{}{}:
	default:
	}
}

// reconnectLoop waits for a kick and then retries establish on the
// reconnect schedule until it succeeds or the service closes.
func (s *Service) reconnectLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.reconnectKick:
		}

		err := backoff.Retry(ctx, s.opts.Reconnect, func(ctx context.Context, attempt int) error {
			err := s.establish(ctx)
			if err != nil && ctx.Err() == nil {
				s.connectFailed(attempt, err)
			}
			return err
		})
		if err != nil && ctx.Err() == nil {
			s.log.Error().Err(err).Msg("giving up on backend connection")
		}
	}
}

// establish connects, replaces the event listeners and resynchronises the
// mirror. It is the only place listeners are registered, so a reconnect
// never leaves duplicates behind.
func (s *Service) establish(ctx context.Context) error {
	if err := s.be.Connect(ctx); err != nil {
		return err
	}
	s.dropListeners()

	var registered []func()
	for _, name := range listenedEvents {
		unlisten, err := s.be.Listen(ctx, name, s.handle)
		if err != nil {
			for _, fn := range registered {
				fn()
			}
			return err
		}
		registered = append(registered, unlisten)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		for _, fn := range registered {
			fn()
		}
		return ErrClosed
	}
	s.unlisten = registered
	s.mu.Unlock()

	s.store.Dispatch(func(a state.AppState) state.AppState {
		return state.SetBackendConnected(a, true)
	})
	s.log.Info().Int("listeners", len(registered)).Msg("backend synchronised")

	s.refresh(ctx)
	s.loadProfiles(ctx)
	s.loadSettings(ctx)
	s.subscribeRMS()
	return nil
}

func (s *Service) connectFailed(attempt int, err error) {
	s.store.Dispatch(func(a state.AppState) state.AppState {
		return state.SetBackendConnected(a, false)
	})
	if s.store.App().AutoRecoveryMode {
		s.log.Debug().Err(err).Int("attempt", attempt+1).Msg("backend unavailable, retrying")
		return
	}
	s.log.Warn().Err(err).Int("attempt", attempt+1).Msg("backend unavailable")
	entry := notify.Entry{
		Type:        notify.TypeTransport,
		Subsystem:   notify.SubsystemBackend,
		Message:     fmt.Sprintf("backend unavailable: %v", err),
		Recoverable: true,
		Timestamp:   s.opts.Now(),
	}
	s.store.Dispatch(func(a state.AppState) state.AppState {
		return state.AddError(a, entry)
	})
}

// disconnected is the transport's drop callback.
func (s *Service) disconnected(cause error) {
	if !s.running() {
		return
	}
	s.dropListeners()
	s.store.Dispatch(func(a state.AppState) state.AppState {
		return state.SetBackendConnected(a, false)
	})
	if !s.store.App().AutoRecoveryMode {
		msg := "backend connection lost"
		if cause != nil {
			msg = fmt.Sprintf("%s: %v", msg, cause)
		}
		s.store.Dispatch(func(a state.AppState) state.AppState {
			return state.AddError(a, notify.Entry{
				Type:        notify.TypeTransport,
				Subsystem:   notify.SubsystemBackend,
				Message:     msg,
				Recoverable: true,
				Timestamp:   s.opts.Now(),
			})
		})
	}
	s.kickReconnect()
}

func (s *Service) dropListeners() {
	s.mu.Lock()
	fns := s.unlisten
	s.unlisten = nil
	cancel := s.rmsCancel
	s.rmsCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, fn := range fns {
		fn()
	}
}

// subscribeRMS starts the level stream on its own retry schedule,
// cancelling any subscription attempt still running from a previous
// connection.
func (s *Service) subscribeRMS() {
	s.mu.Lock()
	if s.closed || s.ctx == nil {
		s.mu.Unlock()
		return
	}
	if s.rmsCancel != nil {
		s.rmsCancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.rmsCancel = cancel
	s.mu.Unlock()

	s.spawn(func(context.Context) {
		defer cancel()
		err := s.rms.Subscribe(ctx, s.be)
		if err == nil || !errors.Is(err, backoff.ErrExhausted) {
			return
		}
		s.store.Dispatch(func(a state.AppState) state.AppState {
			return state.AddError(a, notify.Entry{
				Type:      notify.TypeTransport,
				Subsystem: notify.SubsystemAudio,
				Message:   "audio level stream unavailable",
				Timestamp: s.opts.Now(),
				Context:   map[string]string{"command": backend.CmdSubscribeRMS},
			})
		})
	})
}
