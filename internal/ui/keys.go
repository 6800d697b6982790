package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit         key.Binding
	Help         key.Binding
	CycleTheme   key.Binding
	Tab          key.Binding
	ShiftTab     key.Binding
	Escape       key.Binding
	AutoRecovery key.Binding
	Refresh      key.Binding

	// View switching
	ViewDictation key.Binding
	ViewProfiles  key.Binding
	ViewHistory   key.Binding
	ViewErrors    key.Binding
	ViewLogs      key.Binding

	// Dictation
	ToggleRecord key.Binding
	Cancel       key.Binding
	Acknowledge  key.Binding
	Reformat     key.Binding

	// Lists
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Confirm  key.Binding
	Visible  key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Dismiss  key.Binding
	ClearAll key.Binding

	// Logs
	ToggleFollow key.Binding
	CycleLevel   key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Cycle views"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Cycle views (reverse)"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Return to dictation"),
		),
		AutoRecovery: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "Toggle auto-recovery"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Resync with backend"),
		),

		ViewDictation: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Dictation view"),
		),
		ViewProfiles: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Profiles view"),
		),
		ViewHistory: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Clipboard history"),
		),
		ViewErrors: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Errors view"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Client log"),
		),

		ToggleRecord: key.NewBinding(
			key.WithKeys(" ", "r"),
			key.WithHelp("space/r", "Start/stop recording"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Cancel recording"),
		),
		Acknowledge: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Acknowledge error"),
		),
		Reformat: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "Reformat with profile"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Select / copy"),
		),
		Visible: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "Toggle visible"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "Move profile up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "Move profile down"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "Dismiss error"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "Clear all errors"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle minimum level"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "Page down"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewDictation, k.ViewProfiles, k.ViewHistory, k.ViewErrors, k.ViewLogs},
		{k.ToggleRecord, k.Cancel, k.Acknowledge, k.Reformat},
		{k.Up, k.Down, k.Top, k.Bottom, k.Confirm},
		{k.Visible, k.MoveUp, k.MoveDown},
		{k.Dismiss, k.ClearAll, k.AutoRecovery},
		{k.ToggleFollow, k.CycleLevel, k.PageUp, k.PageDown},
		{k.Refresh, k.CycleTheme, k.Help, k.Quit},
	}
}
