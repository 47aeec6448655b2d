package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type fakeSessions struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (f *fakeSessions) GetSessions(context.Context, time.Duration) ([]jellyfin.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return []jellyfin.SessionInfo{{ID: "s1"}}, nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestStartPoller_UpdatesStoreAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &state.Store{}
	api := &fakeSessions{errs: []error{errors.New("down")}}

	done := StartPoller(ctx, store, api, PollerOptions{Interval: 5 * time.Millisecond})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !store.Snapshot().HasSessions {
		time.Sleep(5 * time.Millisecond)
	}
	snap := store.Snapshot()
	if !snap.HasSessions || snap.ConsecutiveFailures != 0 {
		t.Fatalf("snapshot = %+v, want sessions after recovery", snap)
	}
	if api.count() < 2 {
		t.Fatalf("calls = %d, want at least 2", api.count())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestStartPoller_PausedSkipsPolls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &state.Store{}
	api := &fakeSessions{}
	var paused atomic.Bool
	paused.Store(true)

	done := StartPoller(ctx, store, api, PollerOptions{Interval: 5 * time.Millisecond, Paused: paused.Load})
	time.Sleep(50 * time.Millisecond)
	if api.count() != 0 {
		t.Fatalf("calls = %d while paused, want 0", api.count())
	}

	paused.Store(false)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && api.count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if api.count() == 0 {
		t.Fatal("poller never resumed")
	}
	cancel()
	<-done
}
