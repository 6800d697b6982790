package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/dictate/internal/state"
)

// renderHeader renders the status bar: connection, status badge, recording
// timer and the active profile.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	app := m.snapshot.App

	parts := []string{bg.Render("dictate", styles.Logo)}

	switch {
	case !app.BackendConnected && app.LastBackendSync.IsZero():
		parts = append(parts, bg.Render("Connecting to backend...", styles.WarningText.Bold(true)))
	case app.Offline():
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
		if app.AutoRecoveryMode {
			parts = append(parts, bg.Render("Reconnecting...", styles.WarningText))
		}
	default:
		parts = append(parts, bg.Render("● ON", styles.SuccessText))
	}

	parts = append(parts, styles.StatusStyle(app.Status).Render(statusLabel(app.Status)))

	if app.Recording() {
		parts = append(parts, bg.Render(formatElapsed(app.RecordingTime), styles.DangerText))
	}

	if name := m.activeProfileName(); name != "" {
		parts = append(parts, bg.Render("Profile:", styles.MutedText)+bg.Space()+bg.Render(name, styles.AccentText))
	}

	if n := app.Errors.Len(); n > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("Errors: %d", n), styles.WarningText))
	}

	if !app.LastBackendSync.IsZero() {
		parts = append(parts, bg.Render("sync "+formatSince(m.now, app.LastBackendSync), styles.FaintText))
	}

	content := strings.Join(parts, bg.Spaces(2))
	header := styles.Header.Width(m.width).Render(content)

	if prompt := m.renderRecoveryPrompt(); prompt != "" {
		header += "\n" + prompt
	}
	return header
}

// renderRecoveryPrompt offers auto-recovery once recoverable failures pile
// up, until the user takes it or clears the errors.
func (m Model) renderRecoveryPrompt() string {
	if m.ctrl == nil || m.snapshot.App.AutoRecoveryMode || !m.ctrl.NeedsRecoveryPrompt() {
		return ""
	}
	banner := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Background)).
		Background(lipgloss.Color(m.theme.Warning)).
		Bold(true)
	return banner.Width(m.width).Padding(0, 1).Render(
		"Repeated connection failures. Press A to enable auto-recovery, x to review errors.")
}

// renderCommandBar renders the per-view key hints.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewProfiles:
		commands = []cmd{
			{"enter", "Select"},
			{"v", "Visible"},
			{"K/J", "Move"},
			{"j/k", "Navigate"},
			{"m", "Dictation"},
			{"?", "More"},
		}
	case ViewHistory:
		commands = []cmd{
			{"enter", "Copy"},
			{"j/k", "Navigate"},
			{"m", "Dictation"},
			{"?", "More"},
		}
	case ViewErrors:
		autoLabel := "Auto-recover"
		if m.snapshot.App.AutoRecoveryMode {
			autoLabel = "Manual"
		}
		commands = []cmd{
			{"d", "Dismiss"},
			{"C", "Clear"},
			{"A", autoLabel},
			{"R", "Resync"},
			{"j/k", "Navigate"},
			{"?", "More"},
		}
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"f", "Level " + levelLabel(m.logState.minLevel)},
			{"m", "Dictation"},
			{"?", "More"},
		}
	default:
		recordLabel := "Record"
		if m.snapshot.App.Recording() {
			recordLabel = "Stop"
		}
		commands = []cmd{
			{"Space", recordLabel},
			{"c", "Cancel"},
			{"1-9", "Reformat"},
			{"p", "Profiles"},
			{"y", "History"},
			{"x", "Errors"},
			{"l", "Log"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	if m.flash != "" {
		style := styles.SuccessText
		if m.flashError {
			style = styles.DangerText
		}
		segments = append(segments, bg.Render(truncate(m.flash, 60), style))
	}

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

func (m Model) activeProfileName() string {
	for _, p := range m.snapshot.Profiles {
		if p.Active {
			return p.Name
		}
	}
	return ""
}

var statusLabels = map[state.Status]string{
	state.StatusIdle:                    "IDLE",
	state.StatusRecording:               "REC",
	state.StatusProcessingTranscription: "TRANSCRIBING",
	state.StatusProcessingFormatting:    "FORMATTING",
	state.StatusProcessingClipboard:     "COPYING",
	state.StatusProcessingComplete:      "DONE",
	state.StatusSettingsOpen:            "SETTINGS",
	state.StatusProfileEditorNew:        "NEW PROFILE",
	state.StatusProfileEditorEdit:       "EDIT PROFILE",
	state.StatusErrorTranscription:      "TRANSCRIPTION FAILED",
	state.StatusErrorFormatting:         "FORMATTING FAILED",
	state.StatusErrorClipboard:          "CLIPBOARD FAILED",
	state.StatusErrorProfileValidation:  "INVALID PROFILE",
}

func statusLabel(s state.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return strings.ToUpper(string(s))
}

// formatElapsed renders a recording duration as m:ss.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// formatSince renders how long ago t was, relative to now.
func formatSince(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return t.Format("15:04:05")
	}
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// singleLine collapses whitespace runs, newlines included, into one space.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
