package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/dictate/internal/profile"
)

// renderProfiles renders the profile list with visibility and order.
func (m Model) renderProfiles() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	profiles := m.snapshot.Profiles
	inner := max(m.width-4, 10)
	height := m.contentHeight()

	visibleCount := 0
	for _, p := range profiles {
		if p.Visible && !p.Pinned() {
			visibleCount++
		}
	}
	title := fmt.Sprintf("Profiles (%d visible)", visibleCount)

	if len(profiles) == 0 {
		return m.renderTitledBox(title, bg.Render("No profiles loaded", styles.MutedText), m.width, height, true)
	}

	start, end := listWindow(m.profileCursor, len(profiles), height-2)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.formatProfileRow(profiles[i], i == m.profileCursor, inner, styles, bg))
	}
	return m.renderTitledBox(title, strings.Join(lines, "\n"), m.width, height, true)
}

func (m Model) formatProfileRow(p profile.Profile, selected bool, width int, styles Styles, bg BgStyle) string {
	active := "  "
	if p.Active {
		active = "● "
	}
	vis := "[ ]"
	switch {
	case p.Pinned():
		vis = "[*]"
	case p.Visible:
		vis = "[x]"
	}
	row := fmt.Sprintf("%s%s %-20s", active, vis, truncate(p.Name, 20))
	if p.Shortcut != nil && *p.Shortcut != "" {
		row += "  " + *p.Shortcut
	}
	if p.Description != nil && *p.Description != "" {
		row += "  " + singleLine(*p.Description)
	}
	row = truncate(row, width)

	if selected {
		return styles.Selected.Width(width).Render(row)
	}
	style := styles.Text
	if !p.Visible && !p.Pinned() {
		style = styles.MutedText
	}
	if p.Active {
		style = styles.AccentText
	}
	return bg.Render(row, style)
}

// handleProfilesKey processes keyboard input for the profiles view.
func (m Model) handleProfilesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	profiles := m.snapshot.Profiles
	if len(profiles) == 0 || m.ctrl == nil {
		return m, nil
	}
	cur := profiles[clampIndex(m.profileCursor, len(profiles))]

	switch {
	case key.Matches(msg, m.keys.Down):
		m.profileCursor = clampIndex(m.profileCursor+1, len(profiles))
	case key.Matches(msg, m.keys.Up):
		m.profileCursor = clampIndex(m.profileCursor-1, len(profiles))
	case key.Matches(msg, m.keys.Top):
		m.profileCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.profileCursor = len(profiles) - 1

	case key.Matches(msg, m.keys.Confirm):
		m.profileAction(m.ctrl.SelectProfile(cur.ID), "Selected "+cur.Name)

	case key.Matches(msg, m.keys.Visible):
		verb := "Showing "
		if cur.Visible {
			verb = "Hiding "
		}
		m.profileAction(m.ctrl.SetProfileVisible(cur.ID, !cur.Visible), verb+cur.Name)

	case key.Matches(msg, m.keys.MoveUp):
		if m.profileCursor > 0 {
			over := profiles[m.profileCursor-1]
			if m.profileAction(m.ctrl.ReorderProfiles(cur.ID, over.ID), "Moved "+cur.Name) {
				m.profileCursor--
			}
		}

	case key.Matches(msg, m.keys.MoveDown):
		if m.profileCursor < len(profiles)-1 {
			over := profiles[m.profileCursor+1]
			if m.profileAction(m.ctrl.ReorderProfiles(cur.ID, over.ID), "Moved "+cur.Name) {
				m.profileCursor++
			}
		}
	}
	return m, nil
}

// profileAction flashes the outcome of a profile mutation and reports
// whether it was accepted. Accepted changes reach the store straight away.
func (m *Model) profileAction(err error, ok string) bool {
	if err != nil {
		m.setFlash(err.Error(), true)
		return false
	}
	m.setFlash(ok, false)
	if m.store != nil {
		m.refreshSnapshot()
	}
	return true
}
