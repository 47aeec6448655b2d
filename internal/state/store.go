package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/usher/internal/jellyfin"
)

// Snapshot represents the latest session data available to the UI.
type Snapshot struct {
	Sessions            []jellyfin.SessionInfo
	HasSessions         bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the server has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// NowPlaying returns the sessions that are currently playing something.
func (s Snapshot) NowPlaying() []jellyfin.SessionInfo {
	var out []jellyfin.SessionInfo
	for _, sess := range s.Sessions {
		if sess.NowPlayingItem != nil {
			out = append(out, sess)
		}
	}
	return out
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored snapshot. When err is non-nil the previous data is
// kept but the error is recorded for visibility.
func (s *Store) Update(sessions []jellyfin.SessionInfo, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Sessions = cloneSessions(sessions)
	s.snapshot.HasSessions = true
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Sessions = cloneSessions(s.snapshot.Sessions)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneSessions(items []jellyfin.SessionInfo) []jellyfin.SessionInfo {
	if len(items) == 0 {
		return nil
	}
	dup := make([]jellyfin.SessionInfo, len(items))
	copy(dup, items)
	return dup
}
