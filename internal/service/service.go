// Package service wires the backend's event stream into the state mirror
// and turns user actions into backend commands.
//
// Commands are fire-and-forget: they return once the request is queued and
// report failures through the store's error history. Only local policy
// violations come back to the caller, synchronously, and never reach the
// backend. Background work (listeners, the recording timer, the
// is_recording poll, the RMS watchdog and subscription, reconnects) is
// owned by the Service and stops on Close.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/dictate/internal/backend"
	"github.com/five82/dictate/internal/backoff"
	"github.com/five82/dictate/internal/bus"
	"github.com/five82/dictate/internal/history"
	"github.com/five82/dictate/internal/notify"
	"github.com/five82/dictate/internal/profile"
	"github.com/five82/dictate/internal/rms"
	"github.com/five82/dictate/internal/state"
)

var (
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("service already started")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("service closed")
)

const (
	defaultTickInterval     = time.Second
	defaultPollInterval     = time.Second
	defaultWatchdogInterval = 500 * time.Millisecond
	defaultAutoAckDelay     = 3 * time.Second
)

// listenedEvents are the backend pushes the service subscribes to.
var listenedEvents = []string{
	backend.EventStateChanged,
	backend.EventProcessingDataUpdated,
	backend.EventAppError,
	backend.EventRMS,
}

// Backend is the transport the service drives. *backend.Client satisfies it.
type Backend interface {
	backend.Backend
	Connect(ctx context.Context) error
	OnDisconnect(fn func(error))
}

// Options configure a Service. Zero values select the defaults.
type Options struct {
	Policy            profile.Policy
	RecoveryThreshold int

	TickInterval     time.Duration // recording timer
	PollInterval     time.Duration // is_recording reconciliation
	WatchdogInterval time.Duration // RMS stale check
	AutoAckDelay     time.Duration // error acknowledgement in auto-recovery mode
	AutoAcknowledge  bool          // clear error-* statuses without the user in auto-recovery mode
	Reconnect        backoff.Policy

	Clipboard history.Writer
	Bus       *bus.Bus
	Log       zerolog.Logger
	Now       func() time.Time
}

// Service owns the backend subscriptions and background loops.
type Service struct {
	be    Backend
	store *state.Store
	rms   *rms.Aggregator
	opts  Options
	log   zerolog.Logger

	mu        sync.Mutex
	started   bool
	closed    bool
	ctx       context.Context
	cancel    context.CancelFunc
	unlisten  []func()
	unbus     []func()
	rmsCancel context.CancelFunc
	wg        sync.WaitGroup

	reconnectKick chan struct{}

	saveMu      sync.Mutex
	pendingSave *backend.ProfileSet
	saveKick    chan struct{}
}

// New builds a Service. It does nothing until Start.
func New(be Backend, store *state.Store, agg *rms.Aggregator, opts Options) *Service {
	if opts.Policy.MaxVisible <= 0 {
		opts.Policy = profile.DefaultPolicy()
	}
	if opts.RecoveryThreshold <= 0 {
		opts.RecoveryThreshold = notify.DefaultRecoveryThreshold
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.WatchdogInterval <= 0 {
		opts.WatchdogInterval = defaultWatchdogInterval
	}
	if opts.AutoAckDelay <= 0 {
		opts.AutoAckDelay = defaultAutoAckDelay
	}
	if opts.Reconnect.Base <= 0 {
		opts.Reconnect = backoff.Reconnect
	}
	if opts.Clipboard == nil {
		opts.Clipboard = history.System{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if agg == nil {
		agg = rms.New()
	}
	return &Service{
		be:            be,
		store:         store,
		rms:           agg,
		opts:          opts,
		log:           opts.Log.With().Str("component", "service").Logger(),
		reconnectKick: make(chan struct{}, 1),
		saveKick:      make(chan struct{}, 1),
	}
}

// Store returns the mirror the service writes to.
func (s *Service) Store() *state.Store {
	return s.store
}

// Timeline returns the RMS aggregator fed by the service.
func (s *Service) Timeline() *rms.Aggregator {
	return s.rms
}

// Policy returns the profile visibility policy in force.
func (s *Service) Policy() profile.Policy {
	return s.opts.Policy
}

// RecoveryThreshold returns the recoverable error count above which
// auto-recovery is offered.
func (s *Service) RecoveryThreshold() int {
	return s.opts.RecoveryThreshold
}

// Start connects to the backend and launches the background loops. A
// backend that cannot be reached is not an error: the mirror is marked
// disconnected and the reconnect loop keeps trying.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.be.OnDisconnect(s.disconnected)
	s.bridgeBus()

	s.spawn(s.reconnectLoop)
	s.spawn(s.profileSaveLoop)
	s.spawn(func(ctx context.Context) {
		s.every(ctx, s.opts.TickInterval, s.tick)
	})
	s.spawn(func(ctx context.Context) {
		s.every(ctx, s.opts.PollInterval, s.poll)
	})
	s.spawn(func(ctx context.Context) {
		s.every(ctx, s.opts.WatchdogInterval, func(context.Context) {
			s.rms.Heal(s.opts.Now())
		})
	})

	s.kickReconnect()
	return nil
}

// Close stops every loop, listener and pending command and waits for them.
// It is safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	unbus := s.unbus
	s.unbus = nil
	s.mu.Unlock()

	for _, fn := range unbus {
		fn()
	}
	s.be.OnDisconnect(nil)
	s.wg.Wait()
	s.dropListeners()
	s.log.Debug().Msg("service stopped")
	return nil
}

// spawn runs fn on a tracked goroutine. It reports false once the service
// is closed or before it started.
func (s *Service) spawn(fn func(ctx context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ctx == nil {
		return false
	}
	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
	return true
}

func (s *Service) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (s *Service) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.closed
}

// tick advances the recording timer.
func (s *Service) tick(context.Context) {
	if !s.store.App().Recording() {
		return
	}
	now := s.opts.Now()
	s.store.Dispatch(func(a state.AppState) state.AppState {
		return state.UpdateRecordingTime(a, now)
	})
}

// poll asks the backend whether it is recording and refetches the full
// state when the mirror disagrees.
func (s *Service) poll(ctx context.Context) {
	app := s.store.App()
	if !app.BackendConnected {
		return
	}
	recording, err := backend.IsRecording(ctx, s.be)
	if err != nil {
		s.transportFailure(ctx, err)
		return
	}
	s.store.Dispatch(state.NoteTransportSuccess)
	if recording == s.store.App().Recording() {
		return
	}
	s.log.Info().Bool("backend_recording", recording).Msg("recording state drifted, refetching")
	s.refresh(ctx)
}

func (s *Service) refresh(ctx context.Context) {
	cur, err := backend.FetchCurrentState(ctx, s.be)
	if err != nil {
		s.fail(ctx, err, notify.SubsystemBackend)
		return
	}
	now := s.opts.Now()
	s.store.Dispatch(func(a state.AppState) state.AppState {
		return state.ApplyCurrent(a, cur, now)
	})
}

// transportFailure counts a failed round trip; the second in a row marks
// the backend offline and starts reconnecting.
func (s *Service) transportFailure(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	s.log.Warn().Err(err).Msg("backend round trip failed")
	var before, after state.AppState
	s.store.Dispatch(func(a state.AppState) state.AppState {
		before = a
		after = state.NoteTransportFailure(a)
		return after
	})
	if !before.BackendConnected || after.BackendConnected {
		return
	}
	if !after.AutoRecoveryMode {
		entry := notify.Classify(err, notify.SubsystemBackend)
		entry.Message = fmt.Sprintf("backend not responding: %v", err)
		entry.Timestamp = s.opts.Now()
		s.store.Dispatch(func(a state.AppState) state.AppState {
			return state.AddError(a, entry)
		})
	}
	s.kickReconnect()
}

// handle is the backend event callback. It runs on the transport's read
// goroutine.
func (s *Service) handle(ev backend.Event) {
	if !s.running() {
		return
	}
	now := s.opts.Now()

	switch ev := ev.(type) {
	case backend.StateChanged:
		var before, after state.AppState
		s.store.Dispatch(func(a state.AppState) state.AppState {
			before = a
			after = state.Apply(a, ev, now)
			return after
		})
		s.log.Debug().
			Str("from", ev.PreviousState).
			Str("to", ev.CurrentState).
			Str("event", ev.Event).
			Str("status", string(after.Status)).
			Msg("state changed")
		if after.Status.IsError() && after.Status != before.Status && after.AutoRecoveryMode && s.opts.AutoAcknowledge {
			s.scheduleAutoAck(after.Status)
		}
	case backend.ProcessingData:
		var after state.AppState
		s.store.Dispatch(func(a state.AppState) state.AppState {
			after = state.SetProcessingData(a, ev)
			return after
		})
		if ev.FinalText != nil {
			// The mirrored profile covers a final_text without profile_id.
			entry := history.Entry{Text: *ev.FinalText, Timestamp: now}
			if after.ProfileID != nil {
				entry.ProfileID = *after.ProfileID
			}
			if err := s.store.RecordTranscript(entry); err != nil && !errors.Is(err, history.ErrEmptyText) {
				s.log.Warn().Err(err).Msg("record transcript")
			}
		}
	case backend.AppError:
		s.log.Warn().Str("error", ev.Message).Msg("backend reported error")
		s.store.Dispatch(func(a state.AppState) state.AppState {
			return state.AddError(a, notify.Entry{
				Type:        notify.TypeDomain,
				Subsystem:   subsystemFor(a.Status),
				Message:     ev.Message,
				Recoverable: true,
				Timestamp:   now,
			})
		})
	case backend.RMS:
		s.rms.Push(rms.Sample{
			Value:     ev.Value,
			Timestamp: now,
			IsActive:  s.store.App().Recording(),
		})
	default:
		s.log.Warn().Str("event", ev.EventName()).Msg("unhandled backend event")
	}
}

// subsystemFor attributes a backend error to the stage the mirror is in.
func subsystemFor(status state.Status) notify.Subsystem {
	switch status {
	case state.StatusProcessingTranscription, state.StatusErrorTranscription, state.StatusRecording:
		return notify.SubsystemTranscription
	case state.StatusProcessingFormatting, state.StatusErrorFormatting:
		return notify.SubsystemFormatting
	case state.StatusProcessingClipboard, state.StatusErrorClipboard:
		return notify.SubsystemClipboard
	case state.StatusProfileEditorNew, state.StatusProfileEditorEdit, state.StatusErrorProfileValidation:
		return notify.SubsystemProfileValidation
	case state.StatusSettingsOpen:
		return notify.SubsystemSettings
	}
	return notify.SubsystemBackend
}

func (s *Service) scheduleAutoAck(status state.Status) {
	s.spawn(func(ctx context.Context) {
		timer := time.NewTimer(s.opts.AutoAckDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		app := s.store.App()
		if app.Status != status || !app.AutoRecoveryMode {
			return
		}
		s.log.Info().Str("status", string(status)).Msg("auto-acknowledging error")
		s.AcknowledgeError()
	})
}

// fail records err as an error entry unless the service is shutting down.
func (s *Service) fail(ctx context.Context, err error, subsystem notify.Subsystem) {
	if ctx.Err() != nil {
		return
	}
	entry := notify.Classify(err, subsystem)
	entry.Timestamp = s.opts.Now()
	s.log.Warn().Err(err).Str("subsystem", string(entry.Subsystem)).Str("type", string(entry.Type)).Msg("command failed")
	s.store.Dispatch(func(a state.AppState) state.AppState {
		return state.AddError(a, entry)
	})
	if entry.Type == notify.TypeTransport && entry.Recoverable {
		s.store.Dispatch(state.NoteTransportFailure)
		if !s.store.App().BackendConnected {
			s.kickReconnect()
		}
	}
}
