package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/dictate/internal/state"
)

const waveHalfHeight = 3

// renderDictation renders the main view: waveform, processing progress, the
// latest transcript and the quick-access profile bar.
func (m Model) renderDictation() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	app := m.snapshot.App
	inner := max(m.width-4, 10)

	var b strings.Builder
	b.WriteString(m.renderWaveform(waveHalfHeight, m.theme.FocusBg))
	b.WriteString("\n")
	if m.timeline != nil && m.timeline.Degraded() {
		b.WriteString(bg.Render("Audio levels unavailable", styles.WarningText))
	}
	b.WriteString("\n")

	b.WriteString(m.renderStageLine(styles, bg, inner))
	b.WriteString("\n\n")

	if app.Error != nil {
		b.WriteString(bg.Render("Error:", styles.DangerText) + bg.Space() +
			bg.Render(truncate(singleLine(*app.Error), inner-8), styles.Text))
		b.WriteString("\n")
		b.WriteString(bg.Render("a", styles.AccentText) + bg.Render(" to acknowledge", styles.FaintText))
		b.WriteString("\n\n")
	}

	if app.OriginalTranscript != nil {
		b.WriteString(bg.Render("Heard", styles.MutedText))
		b.WriteString("\n")
		b.WriteString(wrapText(*app.OriginalTranscript, inner, 3, styles.Text, bg))
		b.WriteString("\n")
	}
	if app.FinalText != nil {
		b.WriteString(bg.Render("Result", styles.MutedText))
		b.WriteString("\n")
		b.WriteString(wrapText(*app.FinalText, inner, 4, styles.Text, bg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderQuickBar(styles, bg))

	return m.renderTitledBox("Dictation", b.String(), m.width, m.contentHeight(), true)
}

// renderStageLine shows what the backend is doing right now.
func (m Model) renderStageLine(styles Styles, bg BgStyle, width int) string {
	app := m.snapshot.App
	switch {
	case app.Recording():
		return bg.Render("● Recording", styles.DangerText) + bg.Spaces(2) +
			bg.Render(formatElapsed(app.RecordingTime), styles.Text)
	case app.ProcessingProgress != nil:
		p := app.ProcessingProgress
		label := p.Message
		if label == "" {
			label = p.Stage
		}
		bar := progressBar(p.Progress, min(30, width/3))
		spin := ""
		if app.Status.IsProcessing() && app.Status != state.StatusProcessingComplete {
			spin = m.spinner.View() + " "
		}
		return bg.Render(spin+label, styles.InfoText) + bg.Spaces(2) +
			bg.Render(bar, styles.AccentText) + bg.Space() +
			bg.Render(fmt.Sprintf("%3d%%", p.Progress), styles.MutedText)
	case app.Offline():
		return bg.Render("Backend unreachable", styles.DangerText)
	default:
		return bg.Render("Ready. Press space to dictate.", styles.MutedText)
	}
}

// renderQuickBar lists the visible profiles with their reformat number.
func (m Model) renderQuickBar(styles Styles, bg BgStyle) string {
	visible := m.snapshot.VisibleProfiles()
	if len(visible) == 0 {
		return bg.Render("No profiles loaded", styles.FaintText)
	}
	parts := make([]string, 0, len(visible))
	for i, p := range visible {
		if i >= 9 {
			break
		}
		label := fmt.Sprintf("%d %s", i+1, p.Name)
		style := styles.MutedText
		if p.Active {
			style = styles.AccentText.Bold(true)
		}
		parts = append(parts, bg.Render(label, style))
	}
	return strings.Join(parts, bg.Render("  │  ", styles.FaintText))
}

// handleDictationKey processes keyboard input for the dictation view.
func (m Model) handleDictationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ctrl == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.ToggleRecord):
		m.ctrl.ToggleRecording()
	case key.Matches(msg, m.keys.Cancel):
		if m.snapshot.App.Recording() {
			m.ctrl.CancelRecording()
			m.setFlash("Recording cancelled", false)
		}
	case key.Matches(msg, m.keys.Acknowledge):
		if m.snapshot.App.Error != nil || m.snapshot.App.Status.IsError() {
			m.ctrl.AcknowledgeError()
		}
	case key.Matches(msg, m.keys.Reformat):
		m.reformat(int(msg.Runes[0] - '0'))
	}
	return m, nil
}

// reformat runs the last transcript through the n-th visible profile.
func (m *Model) reformat(n int) {
	visible := m.snapshot.VisibleProfiles()
	if n < 1 || n > len(visible) {
		return
	}
	if m.snapshot.App.OriginalTranscript == nil {
		m.setFlash("Nothing to reformat yet", true)
		return
	}
	p := visible[n-1]
	m.ctrl.ReformatWithProfile(p.ID)
	m.setFlash("Reformatting with "+p.Name, false)
}

// progressBar renders pct (0-100) as a bar of width cells.
func progressBar(pct, width int) string {
	if width <= 0 {
		return ""
	}
	pct = max(0, min(pct, 100))
	filled := pct * width / 100
	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}

// wrapText wraps text to width and keeps at most maxLines, marking a cut
// with an ellipsis.
func wrapText(text string, width, maxLines int, style lipgloss.Style, bg BgStyle) string {
	wrapped := lipgloss.NewStyle().Width(width).Render(strings.TrimSpace(text))
	lines := strings.Split(wrapped, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
		last := []rune(strings.TrimRight(lines[maxLines-1], " "))
		if keep := max(width-3, 0); len(last) > keep {
			last = last[:keep]
		}
		lines[maxLines-1] = string(last) + "..."
	}
	for i, line := range lines {
		lines[i] = bg.Render(strings.TrimRight(line, " "), style)
	}
	return strings.Join(lines, "\n")
}
