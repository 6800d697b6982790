package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/five82/dictate/internal/backend"
	"github.com/five82/dictate/internal/profile"
)

func TestLog_AddIsBounded(t *testing.T) {
	l := NewLog(3)
	for i := 0; i < 5; i++ {
		l = l.Add(Entry{Message: fmt.Sprintf("e%d", i)})
	}
	if l.Len() != 3 {
		t.Fatalf("Len = %d, want 3", l.Len())
	}
	entries := l.Entries()
	if entries[0].Message != "e2" || entries[2].Message != "e4" {
		t.Fatalf("entries = %+v, want e2..e4", entries)
	}
	last, ok := l.Last()
	if !ok || last.Message != "e4" {
		t.Fatalf("Last = %+v,%v want e4", last, ok)
	}
	if last.ID == "" || last.Timestamp.IsZero() {
		t.Fatalf("Add did not fill id/timestamp: %+v", last)
	}
}

func TestLog_ValueSemantics(t *testing.T) {
	a := NewLog(5).Add(Entry{Message: "one", Context: map[string]string{"k": "v"}})
	b := a.Add(Entry{Message: "two"})
	if a.Len() != 1 || b.Len() != 2 {
		t.Fatalf("lens = %d,%d want 1,2", a.Len(), b.Len())
	}
	entries := a.Entries()
	entries[0].Context["k"] = "changed"
	if got := a.Entries()[0].Context["k"]; got != "v" {
		t.Fatalf("Context leaked through Entries: %q", got)
	}
}

func TestLog_ZeroValueUsable(t *testing.T) {
	var l Log
	for i := 0; i < DefaultCapacity+4; i++ {
		l = l.Add(Entry{Message: "x"})
	}
	if l.Len() != DefaultCapacity {
		t.Fatalf("Len = %d, want %d", l.Len(), DefaultCapacity)
	}
}

func TestLog_RemoveAndClear(t *testing.T) {
	l := NewLog(5).
		Add(Entry{Message: "a"}).
		Add(Entry{Message: "b"}).
		Add(Entry{Message: "c"})

	l = l.Remove(1)
	if got := l.Entries(); len(got) != 2 || got[0].Message != "a" || got[1].Message != "c" {
		t.Fatalf("after Remove = %+v", got)
	}
	if l.Remove(9).Len() != 2 {
		t.Fatal("out-of-range Remove changed the log")
	}
	if l.Clear().Len() != 0 {
		t.Fatal("Clear left entries")
	}
}

func TestLog_NeedsRecoveryPrompt(t *testing.T) {
	l := NewLog(10)
	for i := 0; i < 2; i++ {
		l = l.Add(Entry{Recoverable: true})
	}
	l = l.Add(Entry{Recoverable: false})
	if l.NeedsRecoveryPrompt(DefaultRecoveryThreshold) {
		t.Fatal("prompt with 2 recoverable, want none")
	}
	l = l.Add(Entry{Recoverable: true, Timestamp: time.Now()})
	if !l.NeedsRecoveryPrompt(DefaultRecoveryThreshold) {
		t.Fatal("no prompt with 3 recoverable, want prompt")
	}
	if l.Remove(l.Len() - 1).NeedsRecoveryPrompt(DefaultRecoveryThreshold) {
		t.Fatal("prompt after dismissing one, want none")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		subsystem   Subsystem
		wantType    Type
		wantSub     Subsystem
		recoverable bool
	}{
		{"disconnected", fmt.Errorf("x: %w", backend.ErrDisconnected), SubsystemTranscription, TypeTransport, SubsystemBackend, true},
		{"timeout", context.DeadlineExceeded, SubsystemBackend, TypeTransport, SubsystemBackend, true},
		{"closed", backend.ErrClosed, SubsystemBackend, TypeTransport, SubsystemBackend, false},
		{"policy", &profile.PolicyError{Op: "delete", ID: "1"}, SubsystemBackend, TypePolicy, SubsystemProfileValidation, false},
		{"cap", profile.ErrVisibilityCap, SubsystemBackend, TypePolicy, SubsystemProfileValidation, false},
		{"shortcut", backend.ErrShortcutConflict, SubsystemSettings, TypePolicy, SubsystemSettings, false},
		{"rejected", &backend.CommandError{Cmd: "save_profiles", Message: "disk full"}, SubsystemProfileValidation, TypeDomain, SubsystemProfileValidation, true},
		{"plain backend", errors.New("dial refused"), SubsystemBackend, TypeTransport, SubsystemBackend, true},
		{"plain domain", errors.New("no speech"), SubsystemTranscription, TypeDomain, SubsystemTranscription, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Classify(tt.err, tt.subsystem)
			if e.Type != tt.wantType || e.Subsystem != tt.wantSub || e.Recoverable != tt.recoverable {
				t.Fatalf("Classify = {%s %s %v}, want {%s %s %v}",
					e.Type, e.Subsystem, e.Recoverable, tt.wantType, tt.wantSub, tt.recoverable)
			}
			if e.Message != tt.err.Error() {
				t.Fatalf("Message = %q, want %q", e.Message, tt.err.Error())
			}
		})
	}
}
