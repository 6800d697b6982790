package service

import (
	"context"
	"fmt"

	"github.com/five82/dictate/internal/backend"
	"github.com/five82/dictate/internal/notify"
	"github.com/five82/dictate/internal/profile"
	"github.com/five82/dictate/internal/state"
)

// LoadProfiles reloads the authoritative profile list.
func (s *Service) LoadProfiles() {
	s.spawn(s.loadProfiles)
}

func (s *Service) loadProfiles(ctx context.Context) {
	set, err := backend.LoadProfiles(ctx, s.be)
	if err != nil {
		s.fail(ctx, fmt.Errorf("load profiles: %w", err), notify.SubsystemProfileValidation)
		return
	}
	list, repaired := s.opts.Policy.Normalize(set.Profiles, s.opts.Now())
	if repaired {
		s.log.Info().Int("profiles", len(list)).Msg("profile list repaired to satisfy visibility policy")
	}

	// A queued save is newer than what the backend returned; its own reload
	// follows.
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if s.pendingSave != nil {
		return
	}
	s.store.SetProfiles(list, set.DefaultProfileID)
}

// SelectProfile makes id the default formatting profile.
func (s *Service) SelectProfile(id string) error {
	if profile.Find(s.store.Profiles(), id) < 0 {
		err := fmt.Errorf("select %q: %w", id, profile.ErrNotFound)
		s.reject(err)
		return err
	}
	s.spawn(func(ctx context.Context) {
		if err := backend.SelectProfile(ctx, s.be, id); err != nil {
			s.fail(ctx, fmt.Errorf("select profile: %w", err), notify.SubsystemProfileValidation)
		}
		s.loadProfiles(ctx)
	})
	return nil
}

// CreateProfile adds pr, assigning an id when empty, and returns the
// profile as stored.
func (s *Service) CreateProfile(pr profile.Profile) (profile.Profile, error) {
	var created profile.Profile
	err := s.mutateProfiles("create", func(list []profile.Profile) ([]profile.Profile, error) {
		next, p, err := s.opts.Policy.Create(list, pr, s.opts.Now())
		created = p
		return next, err
	})
	return created, err
}

// UpdateProfile replaces the profile with pr.ID.
func (s *Service) UpdateProfile(pr profile.Profile) error {
	return s.mutateProfiles("update", func(list []profile.Profile) ([]profile.Profile, error) {
		return s.opts.Policy.Update(list, pr, s.opts.Now())
	})
}

// DeleteProfile removes id. The clipboard profile cannot be deleted.
func (s *Service) DeleteProfile(id string) error {
	return s.mutateProfiles("delete", func(list []profile.Profile) ([]profile.Profile, error) {
		return s.opts.Policy.Delete(list, id)
	})
}

// SetProfileVisible shows or hides id, evicting the least recently touched
// visible profile when the cap is reached.
func (s *Service) SetProfileVisible(id string, visible bool) error {
	return s.mutateProfiles("visibility", func(list []profile.Profile) ([]profile.Profile, error) {
		return s.opts.Policy.SetVisible(list, id, visible, s.opts.Now())
	})
}

// ReorderProfiles moves activeID to overID's position.
func (s *Service) ReorderProfiles(activeID, overID string) error {
	return s.mutateProfiles("reorder", func(list []profile.Profile) ([]profile.Profile, error) {
		return s.opts.Policy.Reorder(list, activeID, overID, s.opts.Now())
	})
}

// mutateProfiles applies fn to the current list under the policy. A
// rejection is recorded and returned without touching the backend;
// otherwise the new list is shown at once and queued for saving, after
// which the backend's copy is reloaded.
func (s *Service) mutateProfiles(op string, fn func([]profile.Profile) ([]profile.Profile, error)) error {
	s.saveMu.Lock()
	snap := s.store.Snapshot()
	next, err := fn(snap.Profiles)
	if err != nil {
		s.saveMu.Unlock()
		s.reject(err)
		return err
	}
	s.store.SetProfiles(next, snap.DefaultProfileID)
	s.pendingSave = &backend.ProfileSet{Profiles: next, DefaultProfileID: snap.DefaultProfileID}
	s.saveMu.Unlock()

	s.log.Debug().Str("op", op).Int("profiles", len(next)).Msg("profile change queued")
	select {
	case s.saveKick <- struct{}{}:
	default:
	}
	return nil
}

// profileSaveLoop writes the newest queued profile list. Each queued list is
// complete, so intermediate ones can be skipped.
func (s *Service) profileSaveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.saveKick:
		}

		s.saveMu.Lock()
		set := s.pendingSave
		s.pendingSave = nil
		s.saveMu.Unlock()
		if set == nil {
			continue
		}

		if err := backend.SaveProfiles(ctx, s.be, *set); err != nil {
			s.fail(ctx, fmt.Errorf("save profiles: %w", err), notify.SubsystemProfileValidation)
		}
		s.loadProfiles(ctx)
	}
}

// reject records a local policy or lookup failure.
func (s *Service) reject(err error) {
	entry := notify.Classify(err, notify.SubsystemProfileValidation)
	entry.Recoverable = false
	entry.Timestamp = s.opts.Now()
	s.log.Info().Err(err).Msg("profile change rejected")
	s.store.Dispatch(func(a state.AppState) state.AppState {
		return state.AddError(a, entry)
	})
}

// LoadSettings reloads the settings document.
func (s *Service) LoadSettings() {
	s.spawn(s.loadSettings)
}

func (s *Service) loadSettings(ctx context.Context) {
	settings, err := backend.LoadSettings(ctx, s.be)
	if err != nil {
		s.fail(ctx, fmt.Errorf("load settings: %w", err), notify.SubsystemSettings)
		return
	}
	s.store.SetSettings(settings)
}

// SaveSettings checks a changed record shortcut for conflicts, saves and
// reloads.
func (s *Service) SaveSettings(settings backend.Settings) {
	current := s.store.Snapshot().Settings
	s.spawn(func(ctx context.Context) {
		if settings.RecordShortcut != "" && settings.RecordShortcut != current.RecordShortcut {
			if err := backend.ValidateShortcut(ctx, s.be, settings.RecordShortcut); err != nil {
				s.fail(ctx, fmt.Errorf("save settings: %w", err), notify.SubsystemSettings)
				return
			}
		}
		if err := backend.SaveSettings(ctx, s.be, settings); err != nil {
			s.fail(ctx, fmt.Errorf("save settings: %w", err), notify.SubsystemSettings)
		}
		s.loadSettings(ctx)
	})
}
