package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/dictate/internal/prefs"
	"github.com/five82/dictate/internal/rms"
	"github.com/five82/dictate/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewDictation View = iota
	ViewProfiles
	ViewHistory
	ViewErrors
	ViewLogs
)

var viewOrder = []View{ViewDictation, ViewProfiles, ViewHistory, ViewErrors, ViewLogs}

// Controller is the command surface the UI drives. *service.Service
// satisfies it.
type Controller interface {
	ToggleRecording()
	CancelRecording()
	AcknowledgeError()
	ReformatWithProfile(profileID string)
	RefreshState()

	SelectProfile(id string) error
	SetProfileVisible(id string, visible bool) error
	ReorderProfiles(activeID, overID string) error

	CopyHistoryEntry(i int) error

	EnableAutoRecovery()
	DisableAutoRecovery()
	NeedsRecoveryPrompt() bool
	DismissError(i int)
	ClearErrors()
}

// Timeline is the read side of the audio level aggregator.
type Timeline interface {
	Timeline() []float64
	Active() bool
	Degraded() bool
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller Controller
	Store      *state.Store
	Timeline   Timeline
	LogPath    string
	PrefsPath  string
	ThemeName  string
	PollTick   time.Duration
	Log        zerolog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	ctrl      Controller
	store     *state.Store
	timeline  Timeline
	changes   <-chan struct{}
	logPath   string
	prefsPath string
	pollTick  time.Duration
	log       zerolog.Logger
	keys      keyMap

	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	snapshot state.Snapshot
	now      time.Time
	wave     []float64
	spinner  spinner.Model

	profileCursor int
	historyCursor int
	errorCursor   int

	// flash is a one-line result of the last user action.
	flash      string
	flashError bool
	flashAt    time.Time

	logViewport viewport.Model
	logState    logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = time.Second
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:         ctx,
		ctrl:        opts.Controller,
		store:       opts.Store,
		timeline:    opts.Timeline,
		logPath:     opts.LogPath,
		prefsPath:   prefsPath,
		pollTick:    pollTick,
		log:         opts.Log.With().Str("component", "ui").Logger(),
		keys:        DefaultKeyMap(),
		theme:       GetTheme(opts.ThemeName),
		currentView: ViewDictation,
		spinner:     sp,
		now:         time.Now(),
		logState:    newLogState(),
	}
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
	}
	if m.timeline != nil {
		m.wave = m.timeline.Timeline()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(m.frameInterval()),
		waitForChange(m.ctx, m.changes),
		m.spinner.Tick,
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case changedMsg:
		m.refreshSnapshot()
		return m, waitForChange(m.ctx, m.changes)

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		name := m.theme.Name
		m.savePrefs(func(p *prefs.Prefs) { p.Theme = name })
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.AutoRecovery):
		m.toggleAutoRecovery()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.ctrl != nil {
			m.ctrl.RefreshState()
		}
		m.setFlash("Resyncing with backend", false)
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.cycleView(1))

	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.cycleView(-1))

	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewDictation
		return m, nil

	case key.Matches(msg, m.keys.ViewDictation):
		return m.switchView(ViewDictation)
	case key.Matches(msg, m.keys.ViewProfiles):
		return m.switchView(ViewProfiles)
	case key.Matches(msg, m.keys.ViewHistory):
		return m.switchView(ViewHistory)
	case key.Matches(msg, m.keys.ViewErrors):
		return m.switchView(ViewErrors)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)
	}

	switch m.currentView {
	case ViewDictation:
		return m.handleDictationKey(msg)
	case ViewProfiles:
		return m.handleProfilesKey(msg)
	case ViewHistory:
		return m.handleHistoryKey(msg)
	case ViewErrors:
		return m.handleErrorsKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	m.currentView = v
	if v == ViewLogs {
		return m, m.refreshLogs()
	}
	return m, nil
}

func (m Model) cycleView(step int) View {
	idx := 0
	for i, v := range viewOrder {
		if v == m.currentView {
			idx = i
			break
		}
	}
	n := len(viewOrder)
	return viewOrder[((idx+step)%n+n)%n]
}

// handleTick advances the recording timer and waveform, and refreshes the
// log view when it is following.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	m.now = now
	if m.timeline != nil {
		m.wave = m.timeline.Timeline()
	}
	if m.store != nil && m.changes == nil {
		m.refreshSnapshot()
	}
	if !m.flashAt.IsZero() && now.Sub(m.flashAt) > flashTTL {
		m.flash = ""
		m.flashAt = time.Time{}
	}

	cmds := []tea.Cmd{tickCmd(m.frameInterval())}
	if m.currentView == ViewLogs && m.logState.follow && now.Sub(m.logState.lastRefresh) >= logRefreshInterval {
		cmds = append(cmds, m.refreshLogs())
	}
	return m, tea.Batch(cmds...)
}

// frameInterval redraws at the waveform's commit rate while recording and
// at the poll rate otherwise.
func (m Model) frameInterval() time.Duration {
	if m.snapshot.App.Recording() {
		return rms.CommitInterval
	}
	return m.pollTick
}

func (m *Model) refreshSnapshot() {
	m.snapshot = m.store.Snapshot()
	m.clampCursors()
}

func (m *Model) clampCursors() {
	m.profileCursor = clampIndex(m.profileCursor, len(m.snapshot.Profiles))
	m.historyCursor = clampIndex(m.historyCursor, len(m.snapshot.History))
	m.errorCursor = clampIndex(m.errorCursor, m.snapshot.App.Errors.Len())
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (m *Model) toggleAutoRecovery() {
	enabled := !m.snapshot.App.AutoRecoveryMode
	if m.ctrl != nil {
		if enabled {
			m.ctrl.EnableAutoRecovery()
		} else {
			m.ctrl.DisableAutoRecovery()
		}
	}
	m.snapshot.App.AutoRecoveryMode = enabled
	m.savePrefs(func(p *prefs.Prefs) { p.AutoRecovery = enabled })
	if enabled {
		m.setFlash("Auto-recovery on", false)
	} else {
		m.setFlash("Auto-recovery off", false)
	}
}

func (m *Model) savePrefs(fn func(*prefs.Prefs)) {
	if m.prefsPath == "" {
		return
	}
	if _, err := prefs.Update(m.prefsPath, fn); err != nil {
		m.log.Warn().Err(err).Msg("save preferences")
	}
}

const flashTTL = 4 * time.Second

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashError = isErr
	m.flashAt = m.now
	if m.flashAt.IsZero() {
		m.flashAt = time.Now()
	}
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewProfiles:
		return m.renderProfiles()
	case ViewHistory:
		return m.renderHistory()
	case ViewErrors:
		return m.renderErrors()
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderDictation()
	}
}

// contentHeight is the height left below the header and command bar.
func (m Model) contentHeight() int {
	chrome := 2
	if m.renderRecoveryPrompt() != "" {
		chrome++
	}
	if h := m.height - chrome; h > 4 {
		return h
	}
	return 4
}

// Messages

type tickMsg time.Time

type changedMsg struct{}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForChange blocks until the store reports a change or ctx ends.
func waitForChange(ctx context.Context, ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-ch:
			return changedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(opts Options) error {
	m := New(opts)
	if m.store != nil {
		ch, cancel := m.store.Subscribe()
		defer cancel()
		m.changes = ch
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
