// Package ui is the terminal front end of the dictation client.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program styled with lipgloss. It is a pure consumer
// of the client's state: the Model never talks to the backend and never
// mutates state.Store. It reads Snapshots, reads the audio timeline for the
// waveform, and turns key presses into calls on a Controller. In the running
// client *service.Service is the Controller and *rms.Aggregator the Timeline;
// tests pass fakes for both.
//
// # Package Structure
//
//   - app.go: Model, Options, Init/Update/View, view switching, Run
//   - keys.go: the key map (bubbles/key) shared by every view and the help
//   - header.go: header, recovery banner and command bar
//   - dictation.go: waveform, stage line, transcripts, quick-access bar
//   - waveform.go: timeline slots → mirrored bar rows
//   - profiles.go, history.go, errors.go, logs.go: one file per view
//   - layout.go, style_helpers.go: titled boxes, list windows, background fill
//   - theme.go: palettes and status colours
//   - help.go: the help overlay (bubbles/help)
//
// # View Types
//
// Five views are available:
//
//   - Dictation: waveform (60 slots mirrored around a centre line), degraded
//     notice, stage line with progress bar, current error, the Heard/Result
//     transcripts and the quick-access bar of visible profiles.
//   - Profiles: every profile with active, pinned and visibility markers.
//   - History: the clipboard history, newest first.
//   - Errors: the bounded error log, newest first, with a detail pane.
//   - Logs: the tail of the client's own log file (bubbles/viewport).
//
// # Event Flow
//
//  1. Run subscribes to the Store and starts the program in the alt screen
//  2. Init schedules a tick, the first change wait and the spinner
//  3. A Store change (changedMsg) or a tick (tickMsg) refreshes the snapshot
//  4. Key presses go to global bindings first, then to the current view
//  5. Controller calls return at once; their effects come back as Store changes
//  6. Context cancellation or quit ends the program
//
// The tick runs at rms.CommitInterval while recording so the waveform and
// timer move with the samples, and at the poll interval otherwise. Log lines
// are read off the UI goroutine and delivered as a message.
//
// # Key Bindings
//
// Global:
//
//   - m / p / y / x / l: Dictation, Profiles, History, Errors, Logs
//   - Tab, Shift+Tab: cycle views; Esc: back to Dictation
//   - A: toggle auto-recovery (saved to prefs)
//   - T: cycle theme (saved to prefs)
//   - R: resync with the backend
//   - h or ?: help; any key closes it
//   - e or Ctrl+C: exit
//
// Dictation:
//
//   - Space or r: start/stop recording
//   - c: cancel (only while recording)
//   - a: acknowledge (only in an error status)
//   - 1-9: reformat the last transcript with the n-th visible profile
//
// Profiles: j/k move, Enter selects, v toggles visibility (the pinned
// profile cannot be hidden), K/J reorder. Rejections from the visibility
// policy appear in the command bar.
//
// History: Enter copies the entry to the clipboard again.
//
// Errors: d dismisses the entry under the cursor, C clears the log.
//
// Logs: Space toggles follow, f cycles the minimum level (all, INF, WRN, ERR),
// PgUp/PgDn scroll.
//
// # Header
//
// The header shows the connection state, a status badge, the recording timer,
// the active profile, the error count and how long ago the backend last
// synced. While the error log holds more recoverable failures than the
// configured threshold and auto-recovery is off, a banner under the header
// offers auto-recovery.
//
// # Usage Example
//
//	err := ui.Run(ui.Options{
//		Context:    ctx,
//		Controller: svc,
//		Store:      store,
//		Timeline:   agg,
//		LogPath:    cfg.LogPath(),
//		ThemeName:  userPrefs.Theme,
//		PollTick:   cfg.PollInterval,
//		Log:        log,
//	})
package ui
