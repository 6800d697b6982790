// Package state mirrors the backend state machine for the dictation client.
//
// # Overview
//
// The backend owns the authoritative recording/transcription state machine
// and the client only ever observes it through events. This package keeps a
// local copy (AppState) that the terminal front end renders, plus the fields
// derived from it: the recording timer anchor, the processing stage and the
// transient error message. It also holds the bounded error log, the profile
// list, the settings and the clipboard history, so one Snapshot is enough to
// draw a frame.
//
// # Architecture
//
// The sync service is the producer and the UI the consumer:
//
//	Producer (service):               Consumer (UI):
//	┌──────────────────────┐          ┌──────────────────────┐
//	│ backend event        │          │                      │
//	│      ↓               │          │                      │
//	│ store.Dispatch(act)  │─────────→│ <-store.Subscribe()  │
//	│      ↓               │ (mutex)  │      ↓               │
//	│ wake subscribers     │          │ store.Snapshot()     │
//	└──────────────────────┘          │      ↓               │
//	                                  │ render               │
//	                                  └──────────────────────┘
//
// # Reducer Contract
//
// Every change to AppState is an Action, a pure function from one AppState
// to the next. Actions never block, never perform I/O and never read the
// clock; the caller passes now in:
//
//	store.Dispatch(func(s state.AppState) state.AppState {
//		return state.Apply(s, ev, time.Now())
//	})
//
// The reducer functions are:
//
//   - Apply: folds a state-changed event. The status comes from
//     ev.CurrentState alone; previous_state and the event name are only
//     logged.
//   - ApplyCurrent: folds a get_current_state reply as if it were an event
//     stamped with now. Used after reconnecting and on poll drift.
//   - UpdateRecordingTime: recomputes the elapsed time from the anchor.
//   - AcknowledgeError: error-* → idle, message cleared; otherwise no-op.
//   - SetBackendConnected: losing the backend forces idle and drops the
//     timer; regaining it only flips the flag.
//   - NoteTransportFailure / NoteTransportSuccess: count round trips; the
//     OfflineThreshold-th failure in a row disconnects.
//   - SetProcessingData, SetProgress, SetError, SetAutoRecovery, AddError,
//     RemoveError, ClearErrors: field updates with copies of pointer values.
//
// # Invariants
//
// After every Action the reducer guarantees:
//
//	RecordingStartTime != nil   ⇔   Status == recording
//	Status not error-*          ⇒   Error == nil
//	BackendConnected == false   ⇒   Status == idle, RecordingTime == 0
//	Errors.Len()                ≤   the configured error history
//
// Entering recording clears the previous transcripts and profile id so the
// dictation view never shows the last take under a new timer.
//
// # Ordering and Idempotence
//
// Because the status is recomputed from the backend's own name on every
// event, an event that arrives twice or late converges on the same result:
// applying the same event twice yields the same AppState as applying it once.
// LastBackendSync takes the event's timestamp, so an end-to-end run of four
// events one second apart ends with LastBackendSync = t0+3s.
//
// # Classification
//
// Classify maps the backend's names onto Status. The name is lower-cased
// with '-', '_' and spaces removed, then matched against an ordered list of
// substrings, so "ProcessingTranscription", "processing_transcription" and
// "processing-transcription" are the same status. Classify is total: any
// name it does not recognise is idle.
//
// Processing statuses carry a fixed Progress:
//
//	processing-transcription  25%   Transcribing
//	processing-formatting     60%   Formatting
//	processing-clipboard      90%   Copying to clipboard
//	processing-complete      100%   Done
//
// # Store
//
// Store serialises Dispatch under a write lock, so actions apply one at a
// time in call order, and hands out Snapshots by value with the profile list
// and clipboard history copied. Subscribe returns a wake-up channel with a
// buffer of one: several changes between two reads coalesce into one wake-up,
// and a slow reader never blocks Dispatch.
//
// # Testing Considerations
//
// The zero Store is usable; NewStore sets the error and history capacities.
// Reducer functions are plain values-in, values-out and are tested without a
// Store at all.
package state
