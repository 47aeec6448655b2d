package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/five82/usher/internal/devices"
	"github.com/five82/usher/internal/library"
	"github.com/five82/usher/internal/log"
	"github.com/five82/usher/internal/notify"
	"github.com/five82/usher/internal/prefs"
	"github.com/five82/usher/internal/state"
	"github.com/five82/usher/internal/tasks"
	"github.com/five82/usher/internal/ui"
)

// Run boots the usher TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	env, err := Load(opts)
	if err != nil {
		return err
	}

	logFile, err := openLogFile(env.Config.LogPath())
	if err != nil {
		return err
	}
	defer logFile.Close()
	log.Configure(log.Config{Level: env.Config.LogLevel, Output: logFile})
	logger := log.WithComponent("app")

	client, err := env.NewClient()
	if err != nil {
		return err
	}
	logger.Info().Str(log.FieldBaseURL, client.BaseURL().String()).Msg("starting usher")

	bus := notify.NewBus(0)
	defer bus.Close()

	watcher, err := prefs.Watch(ctx, env.PrefsPath, env.Prefs, bus, prefs.WatchOptions{})
	if err != nil {
		// The TUI still works without live reloads.
		logger.Warn().Err(err).Msg("prefs watcher unavailable")
	} else {
		defer watcher.Close()
	}
	offline := func() bool {
		if watcher != nil {
			return watcher.Current().OfflineMode
		}
		return env.Prefs.OfflineMode
	}

	store := &state.Store{}

	pollCtx, stopPolling := context.WithCancel(ctx)
	// Populate the store before the first frame.
	refresh(pollCtx, store, client)
	polled := StartPoller(pollCtx, store, client, PollerOptions{Interval: env.Config.PollInterval, Paused: offline})
	defer func() {
		stopPolling()
		<-polled
	}()

	deviceManager := devices.New(client, client.DeviceID())
	defer deviceManager.Close()
	taskManager := tasks.New(client)
	defer taskManager.Close()

	catalog := library.NewCatalog(client, library.Options{
		PageSize: env.Prefs.PageSize,
		Sort:     library.Sort{By: env.Prefs.SortBy, Order: env.Prefs.SortOrder},
	})

	return ui.Run(ui.Options{
		Context:   ctx,
		Store:     store,
		Catalog:   catalog,
		Devices:   deviceManager,
		Tasks:     taskManager,
		Playback:  client,
		Editing:   client,
		Bus:       bus,
		ServerURL: client.BaseURL().String(),
		Prefs:     env.Prefs,
		PrefsPath: env.PrefsPath,
		LogPath:   env.Config.LogPath(),
	})
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}
