// Package ui provides the terminal user interface for usher.
//
// The interface is a Bubble Tea program styled with Lip Gloss. Model is the
// single root model; each view keeps its own slice of state on it and
// renders into a titled box sized to the terminal.
//
// # Views
//
//   - Library: paged items, next up, resume and search results, backed by a
//     library.Library; random pick, watched toggle and playback start
//   - Sessions: active sessions from state.Store with a detail pane
//   - Devices: server devices with two-press delete
//   - Tasks: scheduled tasks grouped by category with progress bars
//   - Player: the playback controller for the current item
//   - Logs: the tail of usher's own log file with a level filter
//
// # Event Flow
//
// Controllers publish on channels. bridge.go turns the next value of a
// change, event or bus channel into a tea.Msg, and each handler re-arms its
// wait after consuming the message. A closed channel ends the wait quietly.
// The tick drives session snapshots, log following, background task
// reloads and the playback clock.
//
// Preference changes go through prefs.Save; the prefs watcher publishes the
// result on the bus and the model applies it from there, so edits made to
// the file by hand take effect the same way.
package ui
