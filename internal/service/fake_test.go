package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/dictate/internal/backend"
	"github.com/five82/dictate/internal/backoff"
	"github.com/five82/dictate/internal/bus"
	"github.com/five82/dictate/internal/profile"
	"github.com/five82/dictate/internal/rms"
	"github.com/five82/dictate/internal/state"
)

type call struct {
	cmd  string
	args any
}

// fakeBackend records invocations and answers from canned results.
type fakeBackend struct {
	mu           sync.Mutex
	connectErr   error
	connects     int
	listenErr    error
	handlers     map[string]backend.Handler
	calls        []call
	results      map[string]any
	errs         map[string]error
	onDisconnect func(error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		handlers: make(map[string]backend.Handler),
		results: map[string]any{
			backend.CmdGetCurrentState:          backend.CurrentState{CurrentState: "Idle"},
			backend.CmdIsRecording:              false,
			backend.CmdLoadProfiles:             backend.ProfileSet{DefaultProfileID: profile.PinnedID},
			backend.CmdLoadSettings:             backend.Settings{RecordShortcut: "Ctrl+Shift+Space"},
			backend.CmdValidateShortcutConflict: false,
		},
		errs: make(map[string]error),
	}
}

func (f *fakeBackend) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeBackend) OnDisconnect(fn func(error)) {
	f.mu.Lock()
	f.onDisconnect = fn
	f.mu.Unlock()
}

func (f *fakeBackend) Invoke(_ context.Context, cmd string, args any, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{cmd: cmd, args: args})
	err := f.errs[cmd]
	res, ok := f.results[cmd]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if cmd == backend.CmdSaveProfiles {
		f.storeProfiles(args)
	}
	if out == nil || !ok {
		return nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeBackend) Listen(_ context.Context, event string, fn backend.Handler) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{cmd: backend.CmdListen, args: event})
	if f.listenErr != nil {
		return nil, f.listenErr
	}
	f.handlers[event] = fn
	return func() {
		f.mu.Lock()
		delete(f.handlers, event)
		f.mu.Unlock()
	}, nil
}

func (f *fakeBackend) set(cmd string, result any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if result != nil {
		f.results[cmd] = result
	}
	if err != nil {
		f.errs[cmd] = err
	} else {
		delete(f.errs, cmd)
	}
}

func (f *fakeBackend) setConnectErr(err error) {
	f.mu.Lock()
	f.connectErr = err
	f.mu.Unlock()
}

func (f *fakeBackend) setListenErr(err error) {
	f.mu.Lock()
	f.listenErr = err
	f.mu.Unlock()
}

func (f *fakeBackend) emit(ev backend.Event) bool {
	f.mu.Lock()
	fn := f.handlers[ev.EventName()]
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(ev)
	return true
}

func (f *fakeBackend) drop(cause error) {
	f.mu.Lock()
	fn := f.onDisconnect
	f.handlers = make(map[string]backend.Handler)
	f.mu.Unlock()
	if fn != nil {
		fn(cause)
	}
}

func (f *fakeBackend) count(cmd string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.cmd == cmd {
			n++
		}
	}
	return n
}

func (f *fakeBackend) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeBackend) listening() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

// sentEvents returns the machine event names passed to state_machine_event.
func (f *fakeBackend) sentEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.cmd != backend.CmdStateMachineEvent {
			continue
		}
		args, ok := c.args.(map[string]any)
		if !ok {
			continue
		}
		if ev, ok := args["event"].(backend.MachineEvent); ok {
			out = append(out, ev.String())
		}
	}
	return out
}

func (f *fakeBackend) lastArgs(cmd string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].cmd == cmd {
			return f.calls[i].args
		}
	}
	return nil
}

type fakeClipboard struct {
	mu  sync.Mutex
	got string
	err error
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.got = text
	return nil
}

var errDial = errors.New("connection refused")

func testOptions() Options {
	return Options{
		TickInterval:     5 * time.Millisecond,
		PollInterval:     10 * time.Millisecond,
		WatchdogInterval: 5 * time.Millisecond,
		AutoAckDelay:     10 * time.Millisecond,
		Reconnect:        backoff.Policy{Base: 2 * time.Millisecond, Factor: 1, Max: 2 * time.Millisecond},
		Clipboard:        &fakeClipboard{},
		Bus:              &bus.Bus{},
		Log:              zerolog.Nop(),
	}
}

func newTestService(t *testing.T, fb *fakeBackend, opts Options) *Service {
	t.Helper()
	agg := rms.New(rms.WithRetry(backoff.Policy{Base: time.Millisecond, Factor: 1, Max: time.Millisecond, Attempts: 2}))
	svc := New(fb, state.NewStore(0, 0), agg, opts)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func startService(t *testing.T, fb *fakeBackend, opts Options) *Service {
	t.Helper()
	svc := newTestService(t, fb, opts)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "backend connected", func() bool {
		return svc.Store().App().BackendConnected && fb.listening() == len(listenedEvents)
	})
	return svc
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func strPtr(s string) *string { return &s }

// become makes the fake report current as its state and pushes the
// matching state-changed event.
func (f *fakeBackend) become(current string) {
	recording := current == "Recording"
	f.set(backend.CmdGetCurrentState, backend.CurrentState{
		CurrentState: current,
		Context:      backend.StateContext{IsRecording: recording},
	}, nil)
	f.set(backend.CmdIsRecording, recording, nil)
	f.emit(backend.StateChanged{
		CurrentState: current,
		Timestamp:    time.Now(),
		Context:      backend.StateContext{IsRecording: recording},
	})
}

func (f *fakeBackend) listenedTo(event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.cmd == backend.CmdListen && c.args == event {
			return true
		}
	}
	return false
}

// storeProfiles makes a successful save visible to later load_profiles.
func (f *fakeBackend) storeProfiles(args any) {
	m, ok := args.(map[string]any)
	if !ok {
		return
	}
	set, ok := m["profiles"].(backend.ProfileSet)
	if !ok {
		return
	}
	f.mu.Lock()
	f.results[backend.CmdLoadProfiles] = set
	f.mu.Unlock()
}
