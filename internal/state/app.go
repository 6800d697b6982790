package state

import (
	"time"

	"github.com/five82/dictate/internal/backend"
	"github.com/five82/dictate/internal/notify"
)

// OfflineThreshold is the number of consecutive transport failures after
// which the backend is treated as unreachable.
const OfflineThreshold = 2

// Progress describes how far the current processing run has got.
type Progress struct {
	Stage    string
	Progress int // 0-100
	Message  string
}

// AppState is the local mirror of the backend state machine plus the fields
// derived from it. Values are treated as immutable: actions return a copy
// and never write through the pointer fields.
type AppState struct {
	Status            Status
	MainWindowVisible bool
	HasModalWindow    bool

	RecordingStartTime *time.Time
	RecordingTime      time.Duration

	OriginalTranscript *string
	FinalText          *string
	ProfileID          *string
	ProcessingProgress *Progress

	Error  *string
	Errors notify.Log

	LastBackendSync   time.Time
	BackendConnected  bool
	TransportFailures int
	AutoRecoveryMode  bool
}

// Initial returns the state before any backend contact.
func Initial(errorCapacity int) AppState {
	return AppState{
		Status: StatusIdle,
		Errors: notify.NewLog(errorCapacity),
	}
}

// Recording reports whether the mirror believes a recording is running.
func (s AppState) Recording() bool {
	return s.Status == StatusRecording
}

// Offline returns true when the backend has been unreachable for multiple
// attempts in a row.
func (s AppState) Offline() bool {
	return !s.BackendConnected || s.TransportFailures >= OfflineThreshold
}

// Action transforms one state into the next.
type Action func(AppState) AppState

// Apply folds a state-changed event into s. The status comes from
// ev.CurrentState alone; the previous state and event name are informational.
// Applying the same event twice yields the same state.
func Apply(s AppState, ev backend.StateChanged, now time.Time) AppState {
	prev := s.Status
	s.Status = Classify(ev.CurrentState)
	s.MainWindowVisible = ev.Context.MainWindowVisible
	s.HasModalWindow = ev.Context.HasModalWindow

	// The anchor follows the classified status so that it can never disagree
	// with it, even when context.is_recording does.
	if s.Status == StatusRecording {
		if s.RecordingStartTime == nil {
			anchor := now
			s.RecordingStartTime = &anchor
			s.RecordingTime = 0
		}
		if prev != StatusRecording {
			s.OriginalTranscript = nil
			s.FinalText = nil
			s.ProfileID = nil
		}
	} else {
		s.RecordingStartTime = nil
		s.RecordingTime = 0
	}

	s.ProcessingProgress = progressFor(s.Status, s.ProcessingProgress)
	if !s.Status.IsError() {
		s.Error = nil
	}

	s.LastBackendSync = ev.Timestamp
	s.BackendConnected = true
	s.TransportFailures = 0
	return s
}

// ApplyCurrent folds a get_current_state reply into s. It behaves like a
// state-changed event stamped with now.
func ApplyCurrent(s AppState, cur backend.CurrentState, now time.Time) AppState {
	return Apply(s, backend.StateChanged{
		PreviousState: string(s.Status),
		CurrentState:  cur.CurrentState,
		Timestamp:     now,
		Context:       cur.Context,
	}, now)
}

var stageProgress = map[Status]Progress{
	StatusProcessingTranscription: {Stage: "transcription", Progress: 25, Message: "Transcribing"},
	StatusProcessingFormatting:    {Stage: "gpt-formatting", Progress: 60, Message: "Formatting"},
	StatusProcessingClipboard:     {Stage: "clipboard", Progress: 90, Message: "Copying to clipboard"},
	StatusProcessingComplete:      {Stage: "complete", Progress: 100, Message: "Done"},
}

func progressFor(status Status, current *Progress) *Progress {
	p, ok := stageProgress[status]
	if !ok {
		if status == StatusIdle || status == StatusRecording {
			return nil
		}
		return current
	}
	if current != nil && current.Stage == p.Stage {
		return current
	}
	return &p
}

// UpdateRecordingTime recomputes the elapsed recording time. It is a no-op
// unless a recording is anchored.
func UpdateRecordingTime(s AppState, now time.Time) AppState {
	if s.Status != StatusRecording || s.RecordingStartTime == nil {
		return s
	}
	elapsed := now.Sub(*s.RecordingStartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	s.RecordingTime = elapsed
	return s
}

// AcknowledgeError returns an error status to idle and clears the message.
// Any other status is left untouched.
func AcknowledgeError(s AppState) AppState {
	if !s.Status.IsError() {
		return s
	}
	s.Status = StatusIdle
	s.Error = nil
	s.ProcessingProgress = nil
	return s
}

// SetBackendConnected records connectivity. Losing the backend forces idle
// and drops the recording timer; regaining it only flips the flag.
func SetBackendConnected(s AppState, connected bool) AppState {
	s.BackendConnected = connected
	if connected {
		s.TransportFailures = 0
		return s
	}
	if s.Status.IsError() {
		s.Error = nil
	}
	s.Status = StatusIdle
	s.RecordingStartTime = nil
	s.RecordingTime = 0
	s.ProcessingProgress = nil
	return s
}

// NoteTransportFailure counts one failed round trip. Once the count reaches
// OfflineThreshold the backend is marked disconnected.
func NoteTransportFailure(s AppState) AppState {
	s.TransportFailures++
	if s.TransportFailures >= OfflineThreshold && s.BackendConnected {
		s = SetBackendConnected(s, false)
	}
	return s
}

// NoteTransportSuccess resets the failure count.
func NoteTransportSuccess(s AppState) AppState {
	s.TransportFailures = 0
	return s
}

// SetError sets the transient error message shown to the user.
func SetError(s AppState, msg string) AppState {
	if msg == "" {
		s.Error = nil
		return s
	}
	s.Error = &msg
	return s
}

// SetProcessingData merges the fields present in data.
func SetProcessingData(s AppState, data backend.ProcessingData) AppState {
	if data.OriginalTranscript != nil {
		v := *data.OriginalTranscript
		s.OriginalTranscript = &v
	}
	if data.FinalText != nil {
		v := *data.FinalText
		s.FinalText = &v
	}
	if data.ProfileID != nil {
		v := *data.ProfileID
		s.ProfileID = &v
	}
	return s
}

// SetProgress replaces the processing progress. Nil clears it.
func SetProgress(s AppState, p *Progress) AppState {
	if p == nil {
		s.ProcessingProgress = nil
		return s
	}
	v := *p
	if v.Progress < 0 {
		v.Progress = 0
	}
	if v.Progress > 100 {
		v.Progress = 100
	}
	s.ProcessingProgress = &v
	return s
}

// SetAutoRecovery toggles silent reconnects.
func SetAutoRecovery(s AppState, on bool) AppState {
	s.AutoRecoveryMode = on
	return s
}

// AddError records e in the error history and shows its message.
func AddError(s AppState, e notify.Entry) AppState {
	s.Errors = s.Errors.Add(e)
	return SetError(s, e.Message)
}

// RemoveError drops the i-th history entry, oldest first.
func RemoveError(s AppState, i int) AppState {
	s.Errors = s.Errors.Remove(i)
	return s
}

// ClearErrors empties the history and the transient message.
func ClearErrors(s AppState) AppState {
	s.Errors = s.Errors.Clear()
	s.Error = nil
	return s
}
