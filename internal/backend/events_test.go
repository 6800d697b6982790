package backend

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDecodeEvent_StateChanged(t *testing.T) {
	payload := json.RawMessage(`{
		"previous_state": "Idle",
		"current_state": "Recording",
		"event": "StartRecording",
		"timestamp": 1700000000123,
		"context": {"is_recording": true, "main_window_visible": true},
		"extra_field": "ignored"
	}`)

	ev, err := DecodeEvent(EventStateChanged, payload)
	if err != nil {
		t.Fatalf("DecodeEvent returned error: %v", err)
	}
	sc, ok := ev.(StateChanged)
	if !ok {
		t.Fatalf("event type = %T, want StateChanged", ev)
	}
	if sc.CurrentState != "Recording" || sc.PreviousState != "Idle" || sc.Event != "StartRecording" {
		t.Fatalf("decoded = %+v", sc)
	}
	if want := time.UnixMilli(1700000000123); !sc.Timestamp.Equal(want) {
		t.Fatalf("Timestamp = %v, want %v", sc.Timestamp, want)
	}
	if !sc.Context.IsRecording || !sc.Context.MainWindowVisible || sc.Context.HasModalWindow {
		t.Fatalf("Context = %+v", sc.Context)
	}
}

func TestDecodeEvent_StateChangedRequiresCurrentState(t *testing.T) {
	if _, err := DecodeEvent(EventStateChanged, json.RawMessage(`{"event":"x"}`)); err == nil {
		t.Fatal("DecodeEvent returned nil error for missing current_state")
	}
}

func TestDecodeEvent_RejectsWrongTypes(t *testing.T) {
	cases := map[string]string{
		EventStateChanged:          `{"current_state": 5}`,
		EventProcessingDataUpdated: `{"final_text": true}`,
		EventAppError:              `{"error": {"nested": 1}}`,
		EventRMS:                   `{"value": "loud"}`,
	}
	for name, payload := range cases {
		if _, err := DecodeEvent(name, json.RawMessage(payload)); err == nil {
			t.Fatalf("DecodeEvent(%s, %s) returned nil error", name, payload)
		}
	}
}

func TestDecodeEvent_UnknownName(t *testing.T) {
	_, err := DecodeEvent("mystery", json.RawMessage(`{}`))
	if !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("error = %v, want ErrUnknownEvent", err)
	}
}

func TestDecodeEvent_ProcessingDataOptionalFields(t *testing.T) {
	ev, err := DecodeEvent(EventProcessingDataUpdated, json.RawMessage(`{"final_text":"hello"}`))
	if err != nil {
		t.Fatalf("DecodeEvent returned error: %v", err)
	}
	pd := ev.(ProcessingData)
	if pd.FinalText == nil || *pd.FinalText != "hello" {
		t.Fatalf("FinalText = %v, want hello", pd.FinalText)
	}
	if pd.OriginalTranscript != nil || pd.ProfileID != nil {
		t.Fatalf("absent fields decoded as %+v", pd)
	}
}

func TestDecodeEvent_RMSRange(t *testing.T) {
	ev, err := DecodeEvent(EventRMS, json.RawMessage(`{"value":0.25}`))
	if err != nil {
		t.Fatalf("DecodeEvent returned error: %v", err)
	}
	if ev.(RMS).Value != 0.25 {
		t.Fatalf("Value = %v, want 0.25", ev.(RMS).Value)
	}
	if _, err := DecodeEvent(EventRMS, json.RawMessage(`{"value":-0.1}`)); err == nil {
		t.Fatal("negative rms accepted")
	}
	if _, err := DecodeEvent(EventRMS, json.RawMessage(`{}`)); err == nil {
		t.Fatal("missing rms value accepted")
	}
}

func TestEncodeStateChanged_RoundTrips(t *testing.T) {
	in := StateChanged{CurrentState: "Idle", Event: "Complete", Timestamp: time.UnixMilli(42)}
	raw, err := EncodeStateChanged(in)
	if err != nil {
		t.Fatalf("EncodeStateChanged returned error: %v", err)
	}
	out, err := DecodeEvent(EventStateChanged, raw)
	if err != nil {
		t.Fatalf("DecodeEvent returned error: %v", err)
	}
	if got := out.(StateChanged); got.CurrentState != "Idle" || !got.Timestamp.Equal(in.Timestamp) {
		t.Fatalf("round trip = %+v, want %+v", got, in)
	}
}

func TestMachineEvent_MarshalJSON(t *testing.T) {
	bare, err := json.Marshal(MachineEvent{Name: StartRecording})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(bare) != `"StartRecording"` {
		t.Fatalf("bare = %s, want \"StartRecording\"", bare)
	}

	reformat, err := json.Marshal(Reformat("7"))
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(reformat) != `{"ReformatWithProfile":{"profile_id":"7"}}` {
		t.Fatalf("reformat = %s", reformat)
	}
}
