// Package config loads usher's TOML configuration.
//
// # Overview
//
// The config tells usher which media server to talk to, which user to act
// as and how to tune the HTTP transport. It also names the log file the TUI
// writes to, since the terminal itself is owned by the interface.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/usher/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Server: http://127.0.0.1:8096
//   - Log file: ~/.local/share/usher/usher.log
//   - Request timeout: 30s
//   - Max retries: 3
//   - Requests per second: unlimited (0)
//   - Session poll interval: 5s
//
// # TOML Format
//
//	server_url = "https://media.example.com"
//	user_id = "5f2c..."
//	access_token = "c0ffee..."
//	log_level = "info"
//	log_file = "~/.local/share/usher/usher.log"
//	request_timeout = "30s"
//	requests_per_second = 5
//	max_retries = 3
//	poll_interval = "5s"
//
// Durations use Go duration syntax. Strings are trimmed and log_file gets
// tilde expansion.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors and malformed or negative values
//
// A missing file is not an error. Validate reports whether the result can
// actually sign in; subcommands that need a server call it, the log view
// does not.
package config
