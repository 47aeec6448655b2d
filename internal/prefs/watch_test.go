package prefs

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/five82/usher/internal/notify"
)

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recorder) Publish(topic notify.Topic, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, notify.Message{Topic: topic, Payload: payload})
}

func (r *recorder) topics() []notify.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Topic, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Topic)
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestWatch_PublishesOfflineModeChange(t *testing.T) {
	prefsFile := filepath.Join(t.TempDir(), "prefs.toml")
	initial := Default()
	if err := Save(prefsFile, initial); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec := &recorder{}
	w, err := Watch(context.Background(), prefsFile, initial, rec, WatchOptions{Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	defer w.Close()

	next := initial
	next.OfflineMode = true
	if err := Save(prefsFile, next); err != nil {
		t.Fatalf("Save: %v", err)
	}

	waitFor(t, func() bool { return w.Current().OfflineMode })
	topics := rec.topics()
	if len(topics) != 1 || topics[0] != notify.TopicOfflineModeDidChange {
		t.Fatalf("topics = %v, want only %q", topics, notify.TopicOfflineModeDidChange)
	}
}

func TestWatch_PublishesDisplayChange(t *testing.T) {
	prefsFile := filepath.Join(t.TempDir(), "prefs.toml")
	initial := Default()
	if err := Save(prefsFile, initial); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec := &recorder{}
	w, err := Watch(context.Background(), prefsFile, initial, rec, WatchOptions{Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	defer w.Close()

	next := initial
	next.Theme = "Slate"
	if err := Save(prefsFile, next); err != nil {
		t.Fatalf("Save: %v", err)
	}

	waitFor(t, func() bool { return w.Current().Theme == "Slate" })
	waitFor(t, func() bool { return len(rec.topics()) == 1 })
	if got := rec.topics()[0]; got != notify.TopicDisplayPreferencesDidChange {
		t.Fatalf("topic = %q, want %q", got, notify.TopicDisplayPreferencesDidChange)
	}
}

func TestWatch_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := Watch(ctx, filepath.Join(t.TempDir(), "prefs.toml"), Default(), nil, WatchOptions{})
	if err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	cancel()
	select {
	case <-w.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher loop did not exit after cancel")
	}
}
