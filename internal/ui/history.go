package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// renderHistory renders the clipboard history, newest first.
func (m Model) renderHistory() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	entries := m.snapshot.History
	inner := max(m.width-4, 10)
	height := m.contentHeight()
	title := fmt.Sprintf("Clipboard history (%d)", len(entries))

	if len(entries) == 0 {
		return m.renderTitledBox(title, bg.Render("Nothing dictated yet", styles.MutedText), m.width, height, true)
	}

	names := make(map[string]string, len(m.snapshot.Profiles))
	for _, p := range m.snapshot.Profiles {
		names[p.ID] = p.Name
	}

	start, end := listWindow(m.historyCursor, len(entries), height-2)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		e := entries[i]
		meta := e.Timestamp.Format("15:04:05")
		if name := names[e.ProfileID]; name != "" {
			meta += " " + truncate(name, 12)
		}
		row := fmt.Sprintf("%-22s %s", meta, singleLine(e.Text))
		row = truncate(row, inner)
		if i == m.historyCursor {
			lines = append(lines, styles.Selected.Width(inner).Render(row))
			continue
		}
		lines = append(lines, bg.Render(row, styles.Text))
	}
	return m.renderTitledBox(title, strings.Join(lines, "\n"), m.width, height, true)
}

// handleHistoryKey processes keyboard input for the history view.
func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.snapshot.History)
	if n == 0 {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Down):
		m.historyCursor = clampIndex(m.historyCursor+1, n)
	case key.Matches(msg, m.keys.Up):
		m.historyCursor = clampIndex(m.historyCursor-1, n)
	case key.Matches(msg, m.keys.Top):
		m.historyCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.historyCursor = n - 1
	case key.Matches(msg, m.keys.Confirm):
		if m.ctrl == nil {
			return m, nil
		}
		if err := m.ctrl.CopyHistoryEntry(m.historyCursor); err != nil {
			m.setFlash("Copy failed: "+err.Error(), true)
		} else {
			m.setFlash("Copied to clipboard", false)
		}
	}
	return m, nil
}
