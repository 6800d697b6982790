package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Event names pushed by the backend.
const (
	EventStateChanged          = "state-changed"
	EventProcessingDataUpdated = "processing-data-updated"
	EventAppError              = "app-error"
	EventRMS                   = "rms"
)

// ErrUnknownEvent is returned by DecodeEvent for an event name outside the
// known set.
var ErrUnknownEvent = errors.New("unknown backend event")

// Event is one decoded backend push. The concrete type is one of
// StateChanged, ProcessingData, AppError or RMS.
type Event interface {
	EventName() string
}

// StateContext carries the backend's view of the recording and window flags.
type StateContext struct {
	IsRecording       bool `json:"is_recording"`
	IsProcessing      bool `json:"is_processing"`
	MainWindowVisible bool `json:"main_window_visible"`
	HasModalWindow    bool `json:"has_modal_window"`
}

// StateChanged reports a state machine transition.
type StateChanged struct {
	PreviousState string
	CurrentState  string
	Event         string
	Timestamp     time.Time
	Context       StateContext
}

func (StateChanged) EventName() string { return EventStateChanged }

// ProcessingData carries transcript and formatting results as they appear.
type ProcessingData struct {
	OriginalTranscript *string `json:"original_transcript,omitempty"`
	FinalText          *string `json:"final_text,omitempty"`
	ProfileID          *string `json:"profile_id,omitempty"`
}

func (ProcessingData) EventName() string { return EventProcessingDataUpdated }

// AppError is a domain failure reported by the backend.
type AppError struct {
	Message string
}

func (AppError) EventName() string { return EventAppError }

// RMS is one audio level sample.
type RMS struct {
	Value float64
}

func (RMS) EventName() string { return EventRMS }

type stateChangedWire struct {
	PreviousState string       `json:"previous_state"`
	CurrentState  *string      `json:"current_state"`
	Event         string       `json:"event"`
	Timestamp     int64        `json:"timestamp"`
	Context       StateContext `json:"context"`
}

// DecodeEvent decodes payload according to name. Missing optional fields
// take their zero value, unknown fields are ignored and a field of the wrong
// JSON type fails the decode.
func DecodeEvent(name string, payload json.RawMessage) (Event, error) {
	switch name {
	case EventStateChanged:
		var w stateChangedWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		if w.CurrentState == nil {
			return nil, fmt.Errorf("decode %s: missing current_state", name)
		}
		return StateChanged{
			PreviousState: w.PreviousState,
			CurrentState:  *w.CurrentState,
			Event:         w.Event,
			Timestamp:     time.UnixMilli(w.Timestamp),
			Context:       w.Context,
		}, nil

	case EventProcessingDataUpdated:
		var ev ProcessingData
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return ev, nil

	case EventAppError:
		var w struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return AppError{Message: w.Error}, nil

	case EventRMS:
		var w struct {
			Value *float64 `json:"value"`
		}
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		if w.Value == nil {
			return nil, fmt.Errorf("decode %s: missing value", name)
		}
		if math.IsNaN(*w.Value) || *w.Value < 0 {
			return nil, fmt.Errorf("decode %s: value %v out of range", name, *w.Value)
		}
		return RMS{Value: *w.Value}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// EncodeStateChanged is the inverse of DecodeEvent for state-changed. The
// backend test server and the current-state refresh use it.
func EncodeStateChanged(ev StateChanged) (json.RawMessage, error) {
	cur := ev.CurrentState
	return json.Marshal(stateChangedWire{
		PreviousState: ev.PreviousState,
		CurrentState:  &cur,
		Event:         ev.Event,
		Timestamp:     ev.Timestamp.UnixMilli(),
		Context:       ev.Context,
	})
}
