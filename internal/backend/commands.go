package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/five82/dictate/internal/profile"
)

// Command names understood by the backend.
const (
	CmdStateMachineEvent        = "state_machine_event"
	CmdSubscribeRMS             = "subscribe_rms"
	CmdIsRecording              = "is_recording"
	CmdLoadProfiles             = "load_profiles"
	CmdSelectProfile            = "select_profile"
	CmdSaveProfiles             = "save_profiles"
	CmdLoadSettings             = "load_settings"
	CmdSaveSettings             = "save_settings"
	CmdValidateShortcutConflict = "validate_shortcut_conflict"
	CmdGetCurrentState          = "get_current_state"
	CmdListen                   = "listen"
)

// Invoker issues one request and decodes the reply into out (which may be nil).
type Invoker interface {
	Invoke(ctx context.Context, cmd string, args any, out any) error
}

// Handler receives decoded events. Handlers run on the transport's read
// goroutine and must not block.
type Handler func(Event)

// Backend is the full command/event surface of the remote state machine.
type Backend interface {
	Invoker
	// Listen registers fn for event and asks the backend to start pushing it.
	// The returned function removes the registration.
	Listen(ctx context.Context, event string, fn Handler) (func(), error)
}

// CommandError is a request the backend received and rejected.
type CommandError struct {
	Cmd     string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("backend rejected %s: %s", e.Cmd, e.Message)
}

// ErrShortcutConflict is returned by ValidateShortcut for a taken shortcut.
var ErrShortcutConflict = errors.New("shortcut already in use")

// Machine event names sent through state_machine_event.
const (
	StartRecording   = "StartRecording"
	StopRecording    = "StopRecording"
	CancelRecording  = "CancelRecording"
	OpenSettings     = "OpenSettings"
	CloseSettings    = "CloseSettings"
	AcknowledgeError = "AcknowledgeError"
	ShowMainWindow   = "ShowMainWindow"
	HideMainWindow   = "HideMainWindow"
)

// MachineEvent is either a bare event name or a reformat request carrying a
// profile id.
type MachineEvent struct {
	Name      string
	ProfileID string
}

// Reformat builds the ReformatWithProfile event.
func Reformat(profileID string) MachineEvent {
	return MachineEvent{Name: "ReformatWithProfile", ProfileID: profileID}
}

// String names the event for logs.
func (e MachineEvent) String() string {
	if e.ProfileID != "" {
		return e.Name + "(" + e.ProfileID + ")"
	}
	return e.Name
}

// MarshalJSON encodes a bare name as a JSON string and a reformat request as
// {"ReformatWithProfile":{"profile_id":...}}.
func (e MachineEvent) MarshalJSON() ([]byte, error) {
	if e.ProfileID == "" {
		return json.Marshal(e.Name)
	}
	return json.Marshal(map[string]map[string]string{
		e.Name: {"profile_id": e.ProfileID},
	})
}

// ProfileSet is the load_profiles reply and save_profiles payload.
type ProfileSet struct {
	Profiles         []profile.Profile `json:"profiles"`
	DefaultProfileID string            `json:"default_profile_id"`
}

// Settings mirrors the backend's SettingsConfig.
type Settings struct {
	RecordShortcut string `json:"record_shortcut"`
	Language       string `json:"language"`
	Model          string `json:"model"`
	AutoPaste      bool   `json:"auto_paste"`
	AIFormatting   bool   `json:"ai_formatting"`
}

// CurrentState is the get_current_state reply.
type CurrentState struct {
	CurrentState string       `json:"current_state"`
	Context      StateContext `json:"context"`
}

// SendEvent issues state_machine_event.
func SendEvent(ctx context.Context, inv Invoker, ev MachineEvent) error {
	return inv.Invoke(ctx, CmdStateMachineEvent, map[string]any{"event": ev}, nil)
}

// SubscribeRMS asks the backend to start pushing rms events.
func SubscribeRMS(ctx context.Context, inv Invoker) error {
	return inv.Invoke(ctx, CmdSubscribeRMS, nil, nil)
}

// IsRecording asks whether the backend is currently capturing audio.
func IsRecording(ctx context.Context, inv Invoker) (bool, error) {
	var recording bool
	if err := inv.Invoke(ctx, CmdIsRecording, nil, &recording); err != nil {
		return false, err
	}
	return recording, nil
}

// LoadProfiles fetches the authoritative profile list.
func LoadProfiles(ctx context.Context, inv Invoker) (ProfileSet, error) {
	var set ProfileSet
	if err := inv.Invoke(ctx, CmdLoadProfiles, nil, &set); err != nil {
		return ProfileSet{}, err
	}
	return set, nil
}

// SaveProfiles persists the full profile list.
func SaveProfiles(ctx context.Context, inv Invoker, set ProfileSet) error {
	return inv.Invoke(ctx, CmdSaveProfiles, map[string]any{"profiles": set}, nil)
}

// SelectProfile makes id the default formatting profile.
func SelectProfile(ctx context.Context, inv Invoker, id string) error {
	return inv.Invoke(ctx, CmdSelectProfile, map[string]any{"profileId": id}, nil)
}

// LoadSettings fetches the settings document.
func LoadSettings(ctx context.Context, inv Invoker) (Settings, error) {
	var s Settings
	if err := inv.Invoke(ctx, CmdLoadSettings, nil, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// SaveSettings persists the settings document.
func SaveSettings(ctx context.Context, inv Invoker, s Settings) error {
	return inv.Invoke(ctx, CmdSaveSettings, map[string]any{"settings": s}, nil)
}

// ValidateShortcut returns ErrShortcutConflict when shortcut is already bound.
func ValidateShortcut(ctx context.Context, inv Invoker, shortcut string) error {
	var conflict bool
	if err := inv.Invoke(ctx, CmdValidateShortcutConflict, map[string]any{"shortcut": shortcut}, &conflict); err != nil {
		return err
	}
	if conflict {
		return fmt.Errorf("%q: %w", shortcut, ErrShortcutConflict)
	}
	return nil
}

// FetchCurrentState asks for the present state without waiting for an event.
func FetchCurrentState(ctx context.Context, inv Invoker) (CurrentState, error) {
	var cur CurrentState
	if err := inv.Invoke(ctx, CmdGetCurrentState, nil, &cur); err != nil {
		return CurrentState{}, err
	}
	return cur, nil
}
