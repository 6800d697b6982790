package state

import (
	"reflect"
	"testing"
	"time"

	"github.com/five82/dictate/internal/backend"
	"github.com/five82/dictate/internal/notify"
)

var t0 = time.UnixMilli(1_700_000_000_000)

func changed(current string, ts time.Time) backend.StateChanged {
	return backend.StateChanged{
		CurrentState: current,
		Timestamp:    ts,
		Context: backend.StateContext{
			IsRecording:       Classify(current) == StatusRecording,
			MainWindowVisible: true,
		},
	}
}

func checkAnchor(t *testing.T, s AppState) {
	t.Helper()
	if (s.RecordingStartTime != nil) != (s.Status == StatusRecording) {
		t.Fatalf("anchor = %v with status %q", s.RecordingStartTime, s.Status)
	}
}

func TestApplyIdempotent(t *testing.T) {
	for _, name := range []string{"Idle", "Recording", "ProcessingTranscription", "ProcessingComplete", "ErrorClipboard", "SettingsOpen"} {
		t.Run(name, func(t *testing.T) {
			ev := changed(name, t0)
			once := Apply(Initial(0), ev, t0)
			twice := Apply(once, ev, t0.Add(500*time.Millisecond))
			if !reflect.DeepEqual(once, twice) {
				t.Fatalf("Apply twice = %+v, want %+v", twice, once)
			}
		})
	}
}

func TestApplyAnchorFollowsStatus(t *testing.T) {
	s := Initial(0)
	s = Apply(s, changed("Recording", t0), t0)
	checkAnchor(t, s)
	if !s.RecordingStartTime.Equal(t0) {
		t.Fatalf("RecordingStartTime = %v, want %v", s.RecordingStartTime, t0)
	}

	// A repeated recording event must not move the anchor.
	s = Apply(s, changed("Recording", t0.Add(time.Second)), t0.Add(time.Second))
	if !s.RecordingStartTime.Equal(t0) {
		t.Fatalf("RecordingStartTime moved to %v", s.RecordingStartTime)
	}

	// Context disagreeing with status does not break the invariant.
	ev := changed("ProcessingTranscription", t0.Add(2*time.Second))
	ev.Context.IsRecording = true
	s = Apply(s, ev, t0.Add(2*time.Second))
	checkAnchor(t, s)
	if s.RecordingTime != 0 {
		t.Fatalf("RecordingTime = %v, want 0", s.RecordingTime)
	}
}

func TestApplyClearsErrorOutsideErrorStatus(t *testing.T) {
	s := Apply(Initial(0), changed("ErrorTranscription", t0), t0)
	s = SetError(s, "no speech detected")
	s = Apply(s, changed("ErrorTranscription", t0.Add(time.Second)), t0.Add(time.Second))
	if s.Error == nil {
		t.Fatal("Error cleared while still in an error status")
	}
	s = Apply(s, changed("Idle", t0.Add(2*time.Second)), t0.Add(2*time.Second))
	if s.Error != nil {
		t.Fatalf("Error = %q, want nil", *s.Error)
	}
}

func TestApplyProgressStages(t *testing.T) {
	s := Apply(Initial(0), changed("ProcessingTranscription", t0), t0)
	if s.ProcessingProgress == nil || s.ProcessingProgress.Stage != "transcription" {
		t.Fatalf("ProcessingProgress = %+v, want transcription", s.ProcessingProgress)
	}
	s = Apply(s, changed("ProcessingComplete", t0), t0)
	if s.ProcessingProgress == nil || s.ProcessingProgress.Progress != 100 {
		t.Fatalf("ProcessingProgress = %+v, want 100", s.ProcessingProgress)
	}
	s = Apply(s, changed("Idle", t0), t0)
	if s.ProcessingProgress != nil {
		t.Fatalf("ProcessingProgress = %+v, want nil when idle", s.ProcessingProgress)
	}
}

func TestApplyNewRecordingClearsTranscript(t *testing.T) {
	text := "old"
	s := SetProcessingData(Initial(0), backend.ProcessingData{FinalText: &text})
	s = Apply(s, changed("Recording", t0), t0)
	if s.FinalText != nil {
		t.Fatalf("FinalText = %q, want nil after a new recording starts", *s.FinalText)
	}
}

func TestUpdateRecordingTime(t *testing.T) {
	s := Apply(Initial(0), changed("Recording", t0), t0)
	s = UpdateRecordingTime(s, t0.Add(3*time.Second))
	if s.RecordingTime != 3*time.Second {
		t.Fatalf("RecordingTime = %v, want 3s", s.RecordingTime)
	}
	s = UpdateRecordingTime(s, t0.Add(-time.Second))
	if s.RecordingTime != 0 {
		t.Fatalf("RecordingTime = %v, want 0 for a clock step back", s.RecordingTime)
	}

	idle := Initial(0)
	if got := UpdateRecordingTime(idle, t0); !reflect.DeepEqual(got, idle) {
		t.Fatalf("UpdateRecordingTime(idle) = %+v, want no-op", got)
	}
}

func TestSetBackendConnectedFalseFromAnyState(t *testing.T) {
	for _, name := range []string{"Idle", "Recording", "ProcessingGPTFormatting", "ErrorClipboard", "ProfileEditorNew"} {
		t.Run(name, func(t *testing.T) {
			s := Apply(Initial(0), changed(name, t0), t0)
			s = UpdateRecordingTime(s, t0.Add(5*time.Second))
			s = SetBackendConnected(s, false)

			if s.Status != StatusIdle {
				t.Fatalf("Status = %q, want idle", s.Status)
			}
			if s.RecordingStartTime != nil {
				t.Fatalf("RecordingStartTime = %v, want nil", s.RecordingStartTime)
			}
			if s.RecordingTime != 0 {
				t.Fatalf("RecordingTime = %v, want 0", s.RecordingTime)
			}
			if s.BackendConnected {
				t.Fatal("BackendConnected = true, want false")
			}
		})
	}
}

func TestSetBackendConnectedTrueOnlyFlipsFlag(t *testing.T) {
	s := Apply(Initial(0), changed("SettingsOpen", t0), t0)
	s = SetBackendConnected(s, false)
	s = SetBackendConnected(s, true)
	if !s.BackendConnected || s.Status != StatusIdle {
		t.Fatalf("state = %+v, want connected idle", s)
	}
}

func TestAcknowledgeError(t *testing.T) {
	for _, status := range []Status{StatusErrorTranscription, StatusErrorFormatting, StatusErrorClipboard, StatusErrorProfileValidation} {
		s := Initial(0)
		s.Status = status
		s = SetError(s, "boom")
		s = AcknowledgeError(s)
		if s.Status != StatusIdle || s.Error != nil {
			t.Fatalf("AcknowledgeError from %q = %q / %v, want idle / nil", status, s.Status, s.Error)
		}
	}

	for _, status := range []Status{StatusIdle, StatusRecording, StatusProcessingClipboard, StatusSettingsOpen} {
		s := Initial(0)
		s.Status = status
		s = SetError(s, "pending")
		got := AcknowledgeError(s)
		if !reflect.DeepEqual(got, s) {
			t.Fatalf("AcknowledgeError from %q = %+v, want no-op", status, got)
		}
	}
}

func TestNoteTransportFailure(t *testing.T) {
	s := Apply(Initial(0), changed("Recording", t0), t0)
	s = NoteTransportFailure(s)
	if !s.BackendConnected || s.Offline() {
		t.Fatalf("one failure: connected=%v offline=%v, want true/false", s.BackendConnected, s.Offline())
	}
	s = NoteTransportFailure(s)
	if s.BackendConnected || !s.Offline() || s.Status != StatusIdle {
		t.Fatalf("two failures: %+v, want disconnected idle", s)
	}
	checkAnchor(t, s)

	s = Apply(s, changed("Idle", t0.Add(time.Second)), t0.Add(time.Second))
	if s.TransportFailures != 0 || s.Offline() {
		t.Fatalf("after event: failures=%d offline=%v, want 0/false", s.TransportFailures, s.Offline())
	}
}

func TestSetProcessingDataMerges(t *testing.T) {
	orig, final, id := "raw words", "Formatted.", "2"
	s := SetProcessingData(Initial(0), backend.ProcessingData{OriginalTranscript: &orig})
	s = SetProcessingData(s, backend.ProcessingData{FinalText: &final, ProfileID: &id})
	if s.OriginalTranscript == nil || *s.OriginalTranscript != orig {
		t.Fatalf("OriginalTranscript = %v, want %q", s.OriginalTranscript, orig)
	}
	if *s.FinalText != final || *s.ProfileID != id {
		t.Fatalf("FinalText/ProfileID = %q/%q", *s.FinalText, *s.ProfileID)
	}
	final = "mutated"
	if *s.FinalText != "Formatted." {
		t.Fatal("SetProcessingData aliases caller memory")
	}
}

func TestSetProgressClamps(t *testing.T) {
	s := SetProgress(Initial(0), &Progress{Stage: "upload", Progress: 140})
	if s.ProcessingProgress.Progress != 100 {
		t.Fatalf("Progress = %d, want 100", s.ProcessingProgress.Progress)
	}
	if s = SetProgress(s, nil); s.ProcessingProgress != nil {
		t.Fatal("SetProgress(nil) did not clear")
	}
}

func TestErrorLogActions(t *testing.T) {
	s := Initial(3)
	for i := 0; i < 5; i++ {
		s = AddError(s, notify.Entry{Type: notify.TypeTransport, Message: "lost", Recoverable: true})
	}
	if s.Errors.Len() != 3 {
		t.Fatalf("Errors.Len() = %d, want 3", s.Errors.Len())
	}
	if s.Error == nil || *s.Error != "lost" {
		t.Fatalf("Error = %v, want lost", s.Error)
	}
	s = RemoveError(s, 0)
	if s.Errors.Len() != 2 {
		t.Fatalf("Errors.Len() = %d, want 2", s.Errors.Len())
	}
	s = ClearErrors(s)
	if s.Errors.Len() != 0 || s.Error != nil {
		t.Fatalf("ClearErrors left %d entries, error %v", s.Errors.Len(), s.Error)
	}
}

func TestEndToEndDictation(t *testing.T) {
	steps := []struct {
		event, current string
	}{
		{"StartRecording", "Recording"},
		{"StopRecording", "ProcessingTranscription"},
		{"TranscriptionComplete", "ProcessingComplete"},
		{"Complete", "Idle"},
	}

	s := Initial(0)
	prev := "Idle"
	for i, step := range steps {
		ts := t0.Add(time.Duration(i) * time.Second)
		ev := changed(step.current, ts)
		ev.PreviousState = prev
		ev.Event = step.event
		s = Apply(s, ev, ts)
		s = UpdateRecordingTime(s, ts.Add(500*time.Millisecond))
		checkAnchor(t, s)
		prev = step.current
	}

	if s.Status != StatusIdle {
		t.Fatalf("Status = %q, want idle", s.Status)
	}
	if want := t0.Add(3000 * time.Millisecond); !s.LastBackendSync.Equal(want) {
		t.Fatalf("LastBackendSync = %v, want %v", s.LastBackendSync, want)
	}
	if !s.BackendConnected {
		t.Fatal("BackendConnected = false, want true")
	}
}
