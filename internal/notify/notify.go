// Package notify keeps the bounded error history and decides when repeated
// recoverable failures warrant offering auto-recovery.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/five82/dictate/internal/backend"
	"github.com/five82/dictate/internal/profile"
)

// Type separates transport, domain and local policy failures.
type Type string

const (
	TypeTransport Type = "transport"
	TypeDomain    Type = "domain"
	TypePolicy    Type = "policy"
)

// Subsystem names the area an error came from.
type Subsystem string

const (
	SubsystemBackend           Subsystem = "backend"
	SubsystemTranscription     Subsystem = "transcription"
	SubsystemFormatting        Subsystem = "gpt-formatting"
	SubsystemClipboard         Subsystem = "clipboard"
	SubsystemProfileValidation Subsystem = "profile-validation"
	SubsystemSettings          Subsystem = "settings"
	SubsystemAudio             Subsystem = "audio"
)

const (
	// DefaultCapacity bounds the history.
	DefaultCapacity = 10
	// DefaultRecoveryThreshold is the recoverable count that must be exceeded
	// before auto-recovery is offered.
	DefaultRecoveryThreshold = 2
)

// Entry is one recorded failure.
type Entry struct {
	ID          string
	Type        Type
	Subsystem   Subsystem
	Message     string
	Recoverable bool
	Timestamp   time.Time
	Context     map[string]string
}

// Log is an immutable bounded history, oldest first. Methods return a new
// Log; the zero value is empty with DefaultCapacity.
type Log struct {
	capacity int
	entries  []Entry
}

// NewLog returns an empty log holding at most capacity entries.
func NewLog(capacity int) Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return Log{capacity: capacity}
}

func (l Log) limit() int {
	if l.capacity <= 0 {
		return DefaultCapacity
	}
	return l.capacity
}

// Add appends e, dropping the oldest entries beyond capacity. A missing id
// or timestamp is filled in.
func (l Log) Add(e Entry) Log {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	entries := append(l.Entries(), e)
	if over := len(entries) - l.limit(); over > 0 {
		entries = entries[over:]
	}
	return Log{capacity: l.capacity, entries: entries}
}

// Remove drops the entry at index i (oldest first). Out of range is a no-op.
func (l Log) Remove(i int) Log {
	if i < 0 || i >= len(l.entries) {
		return l
	}
	entries := l.Entries()
	return Log{capacity: l.capacity, entries: append(entries[:i], entries[i+1:]...)}
}

// Clear empties the history.
func (l Log) Clear() Log {
	return Log{capacity: l.capacity}
}

// Len returns the number of entries.
func (l Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the history, oldest first.
func (l Log) Entries() []Entry {
	if len(l.entries) == 0 {
		return nil
	}
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		if e.Context != nil {
			ctx := make(map[string]string, len(e.Context))
			for k, v := range e.Context {
				ctx[k] = v
			}
			e.Context = ctx
		}
		out[i] = e
	}
	return out
}

// Last returns the newest entry.
func (l Log) Last() (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.Entries()[len(l.entries)-1], true
}

// RecoverableCount counts unacknowledged recoverable entries.
func (l Log) RecoverableCount() int {
	n := 0
	for _, e := range l.entries {
		if e.Recoverable {
			n++
		}
	}
	return n
}

// NeedsRecoveryPrompt reports whether recoverable failures exceed threshold.
func (l Log) NeedsRecoveryPrompt(threshold int) bool {
	if threshold < 0 {
		threshold = DefaultRecoveryThreshold
	}
	return l.RecoverableCount() > threshold
}

// Classify builds an entry for err, attributing it to subsystem unless the
// error itself says otherwise.
func Classify(err error, subsystem Subsystem) Entry {
	e := Entry{
		Type:        TypeDomain,
		Subsystem:   subsystem,
		Message:     err.Error(),
		Recoverable: true,
	}

	var cmdErr *backend.CommandError
	switch {
	case errors.Is(err, profile.ErrPolicyViolation), errors.Is(err, profile.ErrVisibilityCap):
		e.Type = TypePolicy
		e.Subsystem = SubsystemProfileValidation
		e.Recoverable = false
	case errors.Is(err, backend.ErrShortcutConflict):
		e.Type = TypePolicy
		e.Subsystem = SubsystemSettings
		e.Recoverable = false
	case errors.Is(err, backend.ErrDisconnected),
		errors.Is(err, context.DeadlineExceeded):
		e.Type = TypeTransport
		e.Subsystem = SubsystemBackend
	case errors.Is(err, backend.ErrClosed), errors.Is(err, context.Canceled):
		e.Type = TypeTransport
		e.Subsystem = SubsystemBackend
		e.Recoverable = false
	case errors.As(err, &cmdErr):
		e.Context = map[string]string{"command": cmdErr.Cmd}
	default:
		if subsystem == SubsystemBackend {
			e.Type = TypeTransport
		}
	}
	return e
}
