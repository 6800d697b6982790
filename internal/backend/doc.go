// Package backend is the client side of the dictation backend's command and
// event surface.
//
// # Overview
//
// The backend owns the recording/transcription state machine. This package
// never interprets that state; it only moves requests out and events in:
//
//   - client.go: websocket transport, request/reply correlation, listeners
//   - events.go: typed push events and their decoding
//   - commands.go: command names, payload types and typed helpers
//
// # Wire Format
//
// One websocket carries JSON text frames in both directions:
//
//	client → backend  {"type":"invoke","id":"<uuid>","cmd":"is_recording","args":{...}}
//	backend → client  {"type":"reply","id":"<uuid>","ok":true,"data":...}
//	backend → client  {"type":"event","event":"state-changed","payload":{...}}
//
// Every invoke carries a fresh UUID and the reply with the same id completes
// it. Listening to an event class is itself an invoke of "listen".
//
// # Events
//
// DecodeEvent turns a name and payload into one of StateChanged,
// ProcessingData, AppError or RMS. Unknown names fail with ErrUnknownEvent,
// fields of the wrong JSON type fail the decode, and unknown fields are
// ignored. Consumers switch on the concrete type.
//
// # Failure Model
//
// A read error drops the connection: pending requests fail with
// ErrDisconnected and the OnDisconnect hook fires so the caller can reset its
// mirror and reconnect. Requests issued while disconnected fail immediately.
// Close is terminal.
//
// # Testing
//
// Consumers depend on the Backend and Invoker interfaces, so tests substitute
// an in-memory fake; the transport itself is tested against an httptest
// server running a gorilla/websocket upgrader.
package backend
