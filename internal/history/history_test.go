package history

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeWriter struct {
	got string
	err error
}

func (f *fakeWriter) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.got = text
	return nil
}

func TestHistoryKeepsNewestTen(t *testing.T) {
	h := New(DefaultCapacity)
	base := time.Unix(1_700_000_000, 0)
	for i := 1; i <= 15; i++ {
		if err := h.Add(Entry{Text: fmt.Sprintf("t%d", i), Timestamp: base.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("Add(%d) error = %v", i, err)
		}
	}

	if h.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", h.Len())
	}
	got := h.Entries()
	for i, e := range got {
		want := fmt.Sprintf("t%d", 15-i)
		if e.Text != want {
			t.Fatalf("Entries()[%d] = %q, want %q", i, e.Text, want)
		}
	}
	if e, ok := h.At(0); !ok || e.Text != "t15" {
		t.Fatalf("At(0) = %q, %v, want t15", e.Text, ok)
	}
	if e, ok := h.At(9); !ok || e.Text != "t6" {
		t.Fatalf("At(9) = %q, %v, want t6", e.Text, ok)
	}
	if _, ok := h.At(10); ok {
		t.Fatal("At(10) ok = true, want false")
	}
}

func TestHistoryRejectsBlank(t *testing.T) {
	h := New(0)
	if err := h.Add(Entry{Text: "  \n"}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("Add(blank) error = %v, want ErrEmptyText", err)
	}
	if h.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", h.Len())
	}
}

func TestHistoryStampsMissingTimestamp(t *testing.T) {
	h := New(2)
	before := time.Now()
	_ = h.Add(Entry{Text: "hello"})
	e, _ := h.At(0)
	if e.Timestamp.Before(before) {
		t.Fatalf("Timestamp = %v, want >= %v", e.Timestamp, before)
	}
}

func TestCopy(t *testing.T) {
	w := &fakeWriter{}
	if err := Copy(w, Entry{Text: "dictated"}); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if w.got != "dictated" {
		t.Fatalf("clipboard = %q, want dictated", w.got)
	}

	boom := errors.New("no display")
	w = &fakeWriter{err: boom}
	if err := Copy(w, Entry{Text: "x"}); !errors.Is(err, boom) {
		t.Fatalf("Copy() error = %v, want wrapped %v", err, boom)
	}
	if err := Copy(w, Entry{}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("Copy(empty) error = %v, want ErrEmptyText", err)
	}
}
