package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/dictate/internal/logtail"
)

const (
	logRefreshInterval = 2 * time.Second
	logTailLines       = 500
)

// logLevels is the cycle for the minimum level filter; "" shows everything.
var logLevels = []string{"", "INF", "WRN", "ERR"}

// logState holds the logs view state.
type logState struct {
	rawLines    []string
	follow      bool
	minLevel    string
	lastRefresh time.Time
	err         error
}

func newLogState() logState {
	return logState{follow: true}
}

// updateLogViewport resizes the viewport and re-renders its content.
func (m *Model) updateLogViewport() {
	width := max(m.width-4, 10)
	height := max(m.contentHeight()-3, 1)
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(width, height)
	}
	m.logViewport.Width = width
	m.logViewport.Height = height
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
	m.logViewport.SetContent(m.renderLogContent())
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	title := "Client log"
	if m.logState.minLevel != "" {
		title += " (" + levelLabel(m.logState.minLevel) + "+)"
	}
	box := m.renderTitledBox(title, m.logViewport.View(), m.width, m.contentHeight()-1, true)
	return box + "\n" + m.renderLogStatus(styles, bg)
}

func (m Model) renderLogStatus(styles Styles, bg BgStyle) string {
	if m.logState.err != nil {
		return bg.Render("Cannot read log: "+m.logState.err.Error(), styles.DangerText)
	}
	autoTail := "off"
	if m.logState.follow {
		autoTail = "on"
	}
	status := fmt.Sprintf("%d lines auto-tail %s", len(m.logState.rawLines), autoTail)
	parts := []string{bg.Render(status, styles.FaintText)}
	if m.logPath != "" {
		parts = append(parts, bg.Render(truncateMiddle(m.logPath, 50), styles.AccentText))
	}
	return strings.Join(parts, bg.Space()+bg.Render("•", styles.FaintText)+bg.Space())
}

// renderLogContent colours each line by its level.
func (m *Model) renderLogContent() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	lines := logtail.Filter(m.logState.rawLines, m.logState.minLevel)
	if len(lines) == 0 {
		return bg.Render("No log entries", styles.MutedText)
	}

	var b strings.Builder
	for i, line := range lines {
		style := styles.Text
		switch logtail.Level(line) {
		case "DBG", "TRC":
			style = styles.FaintText
		case "WRN":
			style = styles.WarningText
		case "ERR", "FTL", "PNC":
			style = styles.DangerText
		}
		b.WriteString(style.Render(line))
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// handleLogsKey processes keyboard input for the logs view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
			return m, m.refreshLogs()
		}
	case key.Matches(msg, m.keys.CycleLevel):
		m.logState.minLevel = nextLevel(m.logState.minLevel)
		m.updateLogViewport()
	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true
	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
		m.logState.follow = false
	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
		m.logState.follow = false
	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.PageDown()
		m.logState.follow = false
	case key.Matches(msg, m.keys.PageUp):
		m.logViewport.PageUp()
		m.logState.follow = false
	}
	return m, nil
}

type logLinesMsg struct {
	lines []string
	err   error
	at    time.Time
}

// refreshLogs reads the log tail off the UI goroutine.
func (m *Model) refreshLogs() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	m.logState.lastRefresh = m.now
	return func() tea.Msg {
		lines, err := logtail.Read(path, logTailLines)
		return logLinesMsg{lines: lines, err: err, at: time.Now()}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logState.err = msg.err
	if msg.err == nil {
		m.logState.rawLines = msg.lines
	}
	m.logState.lastRefresh = msg.at
	m.updateLogViewport()
}

func nextLevel(current string) string {
	for i, lvl := range logLevels {
		if lvl == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return logLevels[0]
}

func levelLabel(lvl string) string {
	switch lvl {
	case "INF":
		return "info"
	case "WRN":
		return "warn"
	case "ERR":
		return "error"
	default:
		return "all"
	}
}

// truncateMiddle shortens s by cutting out its middle, keeping more of the
// end (the file name) than the start.
func truncateMiddle(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	if max <= 5 {
		return string(runes[:max])
	}
	endLen := (max - 3) * 2 / 3
	startLen := max - 3 - endLen
	return string(runes[:startLen]) + "..." + string(runes[len(runes)-endLen:])
}
