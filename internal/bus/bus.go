// Package bus carries tray and shortcut actions to the sync service inside
// the process.
package bus

import (
	"fmt"
	"sync"
)

// Event names published by the tray and global shortcuts.
const (
	StartRecording   = "start-recording"
	StopRecording    = "stop-recording"
	TrayToggleRecord = "tray-toggle-record"
	ShowSettings     = "show-settings"
)

// Known reports whether name is one of the local events.
func Known(name string) bool {
	switch name {
	case StartRecording, StopRecording, TrayToggleRecord, ShowSettings:
		return true
	}
	return false
}

// Bus is a small synchronous publish/subscribe hub. The zero value is ready
// to use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]map[uint64]func()
	next     uint64
}

// Subscribe calls fn for every Publish of name until the returned func is
// called.
func (b *Bus) Subscribe(name string, fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = make(map[string]map[uint64]func())
	}
	if b.handlers[name] == nil {
		b.handlers[name] = make(map[uint64]func())
	}
	b.next++
	id := b.next
	b.handlers[name][id] = fn
	return func() {
		b.mu.Lock()
		delete(b.handlers[name], id)
		b.mu.Unlock()
	}
}

// Publish runs every handler for name on the caller's goroutine and returns
// how many ran. Unknown names are rejected.
func (b *Bus) Publish(name string) (int, error) {
	if !Known(name) {
		return 0, fmt.Errorf("publish %q: unknown local event", name)
	}
	b.mu.RLock()
	fns := make([]func(), 0, len(b.handlers[name]))
	for _, fn := range b.handlers[name] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns), nil
}
