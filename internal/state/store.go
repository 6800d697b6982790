package state

import (
	"sync"
	"time"

	"github.com/five82/dictate/internal/backend"
	"github.com/five82/dictate/internal/history"
	"github.com/five82/dictate/internal/notify"
	"github.com/five82/dictate/internal/profile"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	App              AppState
	Profiles         []profile.Profile
	DefaultProfileID string
	Settings         backend.Settings
	HasSettings      bool
	History          []history.Entry
	LastUpdated      time.Time
}

// VisibleProfiles returns the profiles currently shown, pinned first.
func (s Snapshot) VisibleProfiles() []profile.Profile {
	return profile.Visible(s.Profiles)
}

// Store coordinates concurrent updates to the mirror. Every mutation goes
// through the write lock, so there is exactly one writer at a time.
// The zero value is ready to use.
type Store struct {
	mu          sync.RWMutex
	init        bool
	app         AppState
	profiles    []profile.Profile
	defaultID   string
	settings    backend.Settings
	hasSettings bool
	history     *history.History
	lastUpdated time.Time

	subMu   sync.Mutex
	subs    map[uint64]chan struct{}
	nextSub uint64
}

// NewStore returns a store whose error and clipboard histories hold the given
// number of entries.
func NewStore(errorCapacity, historyCapacity int) *Store {
	s := &Store{}
	s.app = Initial(errorCapacity)
	s.history = history.New(historyCapacity)
	s.init = true
	return s
}

func (s *Store) ensureLocked() {
	if s.init {
		return
	}
	s.app = Initial(notify.DefaultCapacity)
	s.history = history.New(history.DefaultCapacity)
	s.init = true
}

// Dispatch applies act under the write lock and wakes subscribers.
func (s *Store) Dispatch(act Action) {
	s.mu.Lock()
	s.ensureLocked()
	s.app = act(s.app)
	s.lastUpdated = time.Now()
	s.mu.Unlock()
	s.notify()
}

// SetProfiles replaces the profile list with the backend's copy.
func (s *Store) SetProfiles(list []profile.Profile, defaultID string) {
	s.mu.Lock()
	s.ensureLocked()
	s.profiles = profile.Clone(list)
	s.defaultID = defaultID
	s.lastUpdated = time.Now()
	s.mu.Unlock()
	s.notify()
}

// SetSettings replaces the settings document.
func (s *Store) SetSettings(settings backend.Settings) {
	s.mu.Lock()
	s.ensureLocked()
	s.settings = settings
	s.hasSettings = true
	s.lastUpdated = time.Now()
	s.mu.Unlock()
	s.notify()
}

// RecordTranscript adds a finished transcript to the clipboard history.
func (s *Store) RecordTranscript(e history.Entry) error {
	s.mu.Lock()
	s.ensureLocked()
	err := s.history.Add(e)
	if err == nil {
		s.lastUpdated = time.Now()
	}
	s.mu.Unlock()
	if err == nil {
		s.notify()
	}
	return err
}

// HistoryEntry returns the i-th clipboard history entry, newest first.
func (s *Store) HistoryEntry(i int) (history.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.history == nil {
		return history.Entry{}, false
	}
	return s.history.At(i)
}

// Profiles returns a copy of the current profile list.
func (s *Store) Profiles() []profile.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return profile.Clone(s.profiles)
}

// App returns the current AppState.
func (s *Store) App() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.init {
		return Initial(notify.DefaultCapacity)
	}
	return s.app
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		App:              s.app,
		Profiles:         profile.Clone(s.profiles),
		DefaultProfileID: s.defaultID,
		Settings:         s.settings,
		HasSettings:      s.hasSettings,
		LastUpdated:      s.lastUpdated,
	}
	if !s.init {
		snap.App = Initial(notify.DefaultCapacity)
	}
	if s.history != nil {
		snap.History = s.history.Entries()
	}
	return snap
}

// Subscribe returns a channel that receives a value after every change.
// Notifications coalesce: a slow reader sees one pending wake-up, not one
// per change. Call cancel to stop receiving.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subs == nil {
		s.subs = make(map[uint64]chan struct{})
	}
	s.nextSub++
	id := s.nextSub
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
