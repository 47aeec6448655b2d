package app

import (
	"context"
	"time"

	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/log"
	"github.com/five82/usher/internal/state"
)

const (
	defaultPollInterval = 5 * time.Second
	maxBackoff          = 30 * time.Second
	// sessionWindow limits the poll to sessions active this recently.
	sessionWindow = 15 * time.Minute
)

// SessionsAPI is what the poller needs from the media server.
type SessionsAPI interface {
	GetSessions(ctx context.Context, activeWithin time.Duration) ([]jellyfin.SessionInfo, error)
}

// PollerOptions tune StartPoller.
type PollerOptions struct {
	Interval time.Duration
	// Paused skips polls while it returns true, for offline mode.
	Paused func() bool
}

// StartPoller launches a background goroutine that refreshes the store. After
// a failure the next poll waits longer, doubling up to maxBackoff. It returns
// immediately; the returned channel closes when the goroutine exits.
func StartPoller(ctx context.Context, store *state.Store, api SessionsAPI, opts PollerOptions) <-chan struct{} {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			if opts.Paused == nil || !opts.Paused() {
				refresh(ctx, store, api)
			}
			timer.Reset(calculateBackoff(store.Snapshot().ConsecutiveFailures, interval))
		}
	}()
	return done
}

// calculateBackoff returns the wait before the next poll given the number of
// consecutive failures.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}

func refresh(ctx context.Context, store *state.Store, api SessionsAPI) {
	sessions, err := api.GetSessions(ctx, sessionWindow)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		store.Update(nil, err)
		logger := log.WithComponent("poller")
		logger.Warn().Err(err).Int("failures", store.Snapshot().ConsecutiveFailures).Msg("session poll failed")
		return
	}
	store.Update(sessions, nil)
}
