// Package state holds the latest view of the server's active sessions.
//
// # Overview
//
// The session poller in package app writes into a Store and the UI reads
// Snapshots on its own refresh tick. The Store is the only coordination
// point between the two goroutines.
//
//	Producer (poller):              Consumer (UI):
//	┌──────────────────┐           ┌──────────────────┐
//	│ GetSessions()    │           │                  │
//	│      ↓           │           │                  │
//	│ store.Update()   │──────────→│ store.Snapshot() │
//	│      ↓           │  (mutex)  │      ↓           │
//	│  repeat...       │           │  render sessions │
//	└──────────────────┘           └──────────────────┘
//
// # Update Semantics
//
//	// Success case: replace the session list
//	store.Update(sessions, nil)
//	→ snapshot.Sessions = sessions
//	→ snapshot.HasSessions = true
//	→ snapshot.LastError = nil
//	→ snapshot.ConsecutiveFailures = 0
//
//	// Error case: keep old data, record error
//	store.Update(nil, err)
//	→ snapshot.Sessions = <unchanged>
//	→ snapshot.LastError = err
//	→ snapshot.ConsecutiveFailures++
//
// Two consecutive failures make the snapshot report IsOffline, which the
// header renders as an offline badge. A single blip does not.
//
// # Copying
//
// Update and Snapshot both copy the session slice, and Snapshot wraps the
// stored error, so callers may keep or mutate what they receive.
//
// The zero Store is ready to use.
package state
