// Package config loads the dictation client's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/dictate/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults
//
// Paths starting with "~" are expanded against the user's home directory
// and made absolute.
//
// # Example
//
//	backend_url = "ws://127.0.0.1:7488/ws"
//	log_dir = "~/.local/share/dictate/logs"
//	log_level = "debug"
//	poll_interval_ms = 1000
//
//	[profiles]
//	max_visible = 4        # visible profiles besides the clipboard one
//	count_pinned = false   # true: the clipboard profile uses a slot
//	on_overflow = "evict"  # or "reject"
//
//	[timeline]
//	activity_threshold = 0.006
//
//	[errors]
//	history = 10
//	recovery_threshold = 2
//
// # Error Handling
//
// A missing file is not an error. Unreadable files, invalid TOML and values
// that cannot be interpreted (an unknown log level or overflow mode) are
// returned as errors prefixed with "parse config" or "open config".
package config
