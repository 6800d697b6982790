// Package app is the composition root of the dictation client.
//
// Run loads config.toml, opens the rotating log file, reads the user's
// preferences and builds one Runtime: a backend.Client, the state.Store
// mirror, the rms.Aggregator timeline, the local bus.Bus and the
// service.Service that connects them. It then starts the service, relays
// SIGUSR1/SIGUSR2 onto the bus and hands the terminal to the ui package
// until the user quits or the context is cancelled.
//
// Nothing here is package-level state; every consumer receives the pieces
// it needs from the Runtime.
package app
