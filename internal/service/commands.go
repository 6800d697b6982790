package service

import (
	"context"
	"fmt"

	"github.com/five82/dictate/internal/backend"
	"github.com/five82/dictate/internal/bus"
	"github.com/five82/dictate/internal/history"
	"github.com/five82/dictate/internal/notify"
	"github.com/five82/dictate/internal/state"
)

// sendEvent issues state_machine_events in order on one background
// goroutine, stopping at the first failure.
func (s *Service) sendEvent(evs ...backend.MachineEvent) {
	ok := s.spawn(func(ctx context.Context) {
		for _, ev := range evs {
			if err := backend.SendEvent(ctx, s.be, ev); err != nil {
				s.fail(ctx, fmt.Errorf("%s: %w", ev, err), notify.SubsystemBackend)
				return
			}
			s.log.Debug().Str("event", ev.String()).Msg("event sent")
		}
	})
	if !ok {
		s.log.Debug().Int("events", len(evs)).Msg("service not running, events dropped")
	}
}

// StartRecording asks the backend to start capturing audio.
func (s *Service) StartRecording() {
	s.sendEvent(backend.MachineEvent{Name: backend.StartRecording})
}

// StopRecording ends the capture and starts processing.
func (s *Service) StopRecording() {
	s.sendEvent(backend.MachineEvent{Name: backend.StopRecording})
}

// CancelRecording discards the current capture.
func (s *Service) CancelRecording() {
	s.sendEvent(backend.MachineEvent{Name: backend.CancelRecording})
}

// ToggleRecording stops a running recording or starts a new one, judged by
// the mirrored status.
func (s *Service) ToggleRecording() {
	if s.store.App().Recording() {
		s.StopRecording()
		return
	}
	s.StartRecording()
}

// OpenSettings requests the settings state.
func (s *Service) OpenSettings() {
	s.sendEvent(backend.MachineEvent{Name: backend.OpenSettings})
}

// CloseSettings leaves the settings state.
func (s *Service) CloseSettings() {
	s.sendEvent(backend.MachineEvent{Name: backend.CloseSettings})
}

// ShowMainWindow asks the backend to show the main window.
func (s *Service) ShowMainWindow() {
	s.sendEvent(backend.MachineEvent{Name: backend.ShowMainWindow})
}

// HideMainWindow asks the backend to hide the main window.
func (s *Service) HideMainWindow() {
	s.sendEvent(backend.MachineEvent{Name: backend.HideMainWindow})
}

// AcknowledgeError clears a local error status at once and tells the
// backend.
func (s *Service) AcknowledgeError() {
	s.store.Dispatch(state.AcknowledgeError)
	s.sendEvent(backend.MachineEvent{Name: backend.AcknowledgeError})
}

// ReformatWithProfile re-runs formatting of the last transcript with the
// given profile.
func (s *Service) ReformatWithProfile(profileID string) {
	s.sendEvent(backend.Reformat(profileID))
}

// RefreshState fetches the backend's current state and applies it.
func (s *Service) RefreshState() {
	s.spawn(s.refresh)
}

// EnableAutoRecovery makes reconnect attempts silent and acknowledges
// domain errors automatically. A disconnected backend is retried at once.
func (s *Service) EnableAutoRecovery() {
	s.store.Dispatch(func(a state.AppState) state.AppState {
		return state.SetAutoRecovery(a, true)
	})
	s.log.Info().Msg("auto-recovery enabled")
	if s.running() && !s.store.App().BackendConnected {
		s.kickReconnect()
	}
}

// DisableAutoRecovery returns to reporting every failure.
func (s *Service) DisableAutoRecovery() {
	s.store.Dispatch(func(a state.AppState) state.AppState {
		return state.SetAutoRecovery(a, false)
	})
	s.log.Info().Msg("auto-recovery disabled")
}

// NeedsRecoveryPrompt reports whether enough recoverable failures piled up
// to offer auto-recovery.
func (s *Service) NeedsRecoveryPrompt() bool {
	app := s.store.App()
	return !app.AutoRecoveryMode && app.Errors.NeedsRecoveryPrompt(s.opts.RecoveryThreshold)
}

// DismissError removes the i-th error history entry, oldest first.
func (s *Service) DismissError(i int) {
	s.store.Dispatch(func(a state.AppState) state.AppState {
		return state.RemoveError(a, i)
	})
}

// ClearErrors empties the error history.
func (s *Service) ClearErrors() {
	s.store.Dispatch(state.ClearErrors)
}

// CopyHistoryEntry puts the i-th clipboard history entry, newest first,
// back on the system clipboard.
func (s *Service) CopyHistoryEntry(i int) error {
	entry, ok := s.store.HistoryEntry(i)
	if !ok {
		return fmt.Errorf("clipboard history entry %d: out of range", i)
	}
	if err := history.Copy(s.opts.Clipboard, entry); err != nil {
		s.fail(context.Background(), err, notify.SubsystemClipboard)
		return err
	}
	s.log.Debug().Int("index", i).Msg("history entry copied")
	return nil
}

// bridgeBus routes tray and shortcut events onto the command surface.
func (s *Service) bridgeBus() {
	b := s.opts.Bus
	if b == nil {
		return
	}
	unsubs := []func(){
		b.Subscribe(bus.StartRecording, s.StartRecording),
		b.Subscribe(bus.StopRecording, s.StopRecording),
		b.Subscribe(bus.TrayToggleRecord, s.ToggleRecording),
		b.Subscribe(bus.ShowSettings, func() {
			s.sendEvent(
				backend.MachineEvent{Name: backend.ShowMainWindow},
				backend.MachineEvent{Name: backend.OpenSettings},
			)
		}),
	}
	s.mu.Lock()
	s.unbus = append(s.unbus, unsubs...)
	s.mu.Unlock()
}
