// Package history keeps the most recent transcripts so they can be copied
// to the system clipboard again.
package history

import (
	"errors"
	"fmt"
	"strings"
	"time"

	cb "github.com/atotto/clipboard"

	"github.com/five82/dictate/internal/ring"
)

// DefaultCapacity bounds the history.
const DefaultCapacity = 10

// ErrEmptyText is returned when an entry without text is added or copied.
var ErrEmptyText = errors.New("history entry has no text")

// Entry is one finished transcript.
type Entry struct {
	Text      string
	ProfileID string
	Timestamp time.Time
}

// Writer puts text on a clipboard.
type Writer interface {
	WriteAll(text string) error
}

// System writes to the OS clipboard.
type System struct{}

// WriteAll copies text to the OS clipboard.
func (System) WriteAll(text string) error {
	return cb.WriteAll(text)
}

// History is a fixed-size ring of entries. It is not safe for concurrent
// use; the state store serialises access.
type History struct {
	entries *ring.Buffer[Entry]
}

// New returns an empty history holding at most capacity entries.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{entries: ring.New[Entry](capacity)}
}

// Add records e as the newest entry, dropping the oldest when full. Blank
// text is rejected.
func (h *History) Add(e Entry) error {
	if strings.TrimSpace(e.Text) == "" {
		return ErrEmptyText
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	h.entries.Push(e)
	return nil
}

// Len returns the number of entries.
func (h *History) Len() int {
	return h.entries.Len()
}

// Entries returns a copy ordered newest first.
func (h *History) Entries() []Entry {
	return h.entries.NewestFirst()
}

// At returns the i-th entry counting from the newest.
func (h *History) At(i int) (Entry, bool) {
	return h.entries.At(h.entries.Len() - 1 - i)
}

// Copy puts e's text on the clipboard w.
func Copy(w Writer, e Entry) error {
	if e.Text == "" {
		return ErrEmptyText
	}
	if err := w.WriteAll(e.Text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
