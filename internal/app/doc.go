// Package app is the composition root for usher.
//
// # Overview
//
// This package wires configuration, preferences, logging, the media server
// client, the notification bus, the session poller and the controllers into
// the TUI. Business logic lives in the domain packages; app only connects
// them.
//
// # Startup
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> Load()                config.toml + prefs.toml (device id)
//	       ├─────> log.Configure()       JSON to the log file
//	       ├─────> Env.NewClient()       media server client
//	       ├─────> notify.NewBus()       process-wide topics
//	       ├─────> prefs.Watch()         live prefs reloads
//	       ├─────> StartPoller()         session snapshots
//	       ├─────> devices/tasks/library controllers
//	       └─────> ui.Run()              TUI (blocks)
//
// The CLI subcommands use Load and Env.NewClient directly and skip the rest.
// Logging must be configured before NewClient because the client captures
// its logger when it is built.
//
// # Session Polling
//
// StartPoller fetches GET /Sessions on a timer and writes the result into
// a state.Store. After a failure the wait doubles per consecutive failure
// (5s, 10s, 20s, capped at 30s) and resets after the next success. Two
// consecutive failures make the snapshot report offline. While offline mode
// is switched on in prefs the poller does not touch the network at all.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Invalid config or prefs location
//   - Missing access token
//   - Log file cannot be opened
//
// Recoverable errors (logged, the TUI keeps running):
//   - Session poll failures
//   - The prefs watcher failing to start
package app
