package prefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/five82/usher/internal/log"
	"github.com/five82/usher/internal/notify"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads the preferences file when it changes on disk and
// publishes the topics for whatever changed.
type Watcher struct {
	path     string
	bus      notify.Publisher
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	debounce time.Duration

	mu      sync.RWMutex
	current Prefs
	timer   *time.Timer

	done chan struct{}
}

// WatchOptions tune a Watcher.
type WatchOptions struct {
	// Debounce collapses bursts of file events. Defaults to 250ms.
	Debounce time.Duration
}

// Watch starts watching path. The directory is watched rather than the file
// because Save replaces the file by rename. Stop the watcher by cancelling
// ctx or calling Close.
func Watch(ctx context.Context, path string, initial Prefs, bus notify.Publisher, opts WatchOptions) (*Watcher, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create prefs dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch prefs dir: %w", err)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	w := &Watcher{
		path:     resolved,
		bus:      bus,
		watcher:  fw,
		logger:   log.WithComponent("prefs"),
		debounce: debounce,
		current:  initial,
		done:     make(chan struct{}),
	}
	go w.loop(ctx)
	return w, nil
}

// Current returns the most recently loaded preferences.
func (w *Watcher) Current() Prefs {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops watching and waits for the loop to exit.
func (w *Watcher) Close() {
	_ = w.watcher.Close()
	<-w.done
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug().Str("op", event.Op.String()).Msg("prefs file changed")
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("prefs watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	next, _ := Load(w.path)

	w.mu.Lock()
	prev := w.current
	w.current = next
	w.mu.Unlock()

	if w.bus == nil {
		return
	}
	if prev.OfflineMode != next.OfflineMode {
		w.logger.Info().Bool("offline", next.OfflineMode).Msg("offline mode changed")
		w.bus.Publish(notify.TopicOfflineModeDidChange, next.OfflineMode)
	}
	if !prev.SameDisplay(next) {
		w.logger.Info().Str("theme", next.Theme).Msg("display preferences changed")
		w.bus.Publish(notify.TopicDisplayPreferencesDidChange, next)
	}
}
