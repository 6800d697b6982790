package ui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/dictate/internal/notify"
)

// renderErrors renders the error history, newest first, with the selected
// entry's detail underneath.
func (m Model) renderErrors() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	entries := newestFirst(m.snapshot.App.Errors.Entries())
	inner := max(m.width-4, 10)
	height := m.contentHeight()

	mode := "manual"
	if m.snapshot.App.AutoRecoveryMode {
		mode = "auto-recovery"
	}
	title := fmt.Sprintf("Errors (%d) · %s", len(entries), mode)

	if len(entries) == 0 {
		return m.renderTitledBox(title, bg.Render("No errors", styles.MutedText), m.width, height, true)
	}

	listHeight := max((height-2)/2, 3)
	start, end := listWindow(m.errorCursor, len(entries), listHeight)
	lines := make([]string, 0, height)
	for i := start; i < end; i++ {
		e := entries[i]
		row := fmt.Sprintf("%s %-9s %-18s %s",
			e.Timestamp.Format("15:04:05"), e.Type, e.Subsystem, singleLine(e.Message))
		row = truncate(row, inner)
		if i == m.errorCursor {
			lines = append(lines, styles.Selected.Width(inner).Render(row))
			continue
		}
		lines = append(lines, bg.Render(row, m.errorStyle(e, styles)))
	}

	lines = append(lines, "")
	lines = append(lines, m.errorDetail(entries[clampIndex(m.errorCursor, len(entries))], inner, styles, bg)...)
	return m.renderTitledBox(title, strings.Join(lines, "\n"), m.width, height, true)
}

func (m Model) errorStyle(e notify.Entry, styles Styles) lipgloss.Style {
	switch {
	case e.Type == notify.TypePolicy:
		return styles.WarningText
	case e.Recoverable:
		return styles.Text
	default:
		return styles.DangerText
	}
}

func (m Model) errorDetail(e notify.Entry, width int, styles Styles, bg BgStyle) []string {
	recoverable := "no"
	if e.Recoverable {
		recoverable = "yes"
	}
	lines := []string{
		bg.Render("Recoverable:", styles.MutedText) + bg.Space() + bg.Render(recoverable, styles.Text),
		wrapText(e.Message, width, 4, styles.Text, bg),
	}
	for _, k := range slices.Sorted(maps.Keys(e.Context)) {
		v := e.Context[k]
		lines = append(lines, bg.Render(k+":", styles.MutedText)+bg.Space()+bg.Render(truncate(v, width-len(k)-2), styles.FaintText))
	}
	return lines
}

// handleErrorsKey processes keyboard input for the errors view. The cursor
// indexes the newest-first list; the log itself is oldest first.
func (m Model) handleErrorsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.snapshot.App.Errors.Len()
	if n == 0 || m.ctrl == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Down):
		m.errorCursor = clampIndex(m.errorCursor+1, n)
	case key.Matches(msg, m.keys.Up):
		m.errorCursor = clampIndex(m.errorCursor-1, n)
	case key.Matches(msg, m.keys.Top):
		m.errorCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.errorCursor = n - 1
	case key.Matches(msg, m.keys.Dismiss):
		m.ctrl.DismissError(n - 1 - m.errorCursor)
		m.afterErrorChange()
	case key.Matches(msg, m.keys.ClearAll):
		m.ctrl.ClearErrors()
		m.afterErrorChange()
		m.setFlash("Errors cleared", false)
	}
	return m, nil
}

func (m *Model) afterErrorChange() {
	if m.store != nil {
		m.refreshSnapshot()
	}
}

func newestFirst(entries []notify.Entry) []notify.Entry {
	out := make([]notify.Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}
