package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/usher/internal/app"
	"github.com/five82/usher/internal/controller"
	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/log"
	"github.com/five82/usher/internal/notify"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

type rootFlags struct {
	configPath string
	prefsPath  string
	server     string
	poll       time.Duration
	verbose    bool
}

func (f *rootFlags) options() app.Options {
	opts := app.Options{
		ConfigPath: f.configPath,
		PrefsPath:  f.prefsPath,
		ServerURL:  f.server,
		PollEvery:  f.poll,
		Version:    Version,
	}
	if f.verbose {
		opts.LogLevel = "debug"
	}
	return opts
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "usher",
		Short: "Terminal client for a Jellyfin media server",
		Long: `usher browses a Jellyfin library, watches active sessions and
administers devices and scheduled tasks. Run without a subcommand to open
the terminal UI.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), flags.options())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file path (default ~/.config/usher/config.toml)")
	pf.StringVar(&flags.prefsPath, "prefs", "", "preferences file path (default ~/.config/usher/prefs.toml)")
	pf.StringVar(&flags.server, "server", "", "server URL, overrides server_url")
	pf.DurationVar(&flags.poll, "poll", 0, "session poll interval (default from config, 5s)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newDevicesCmd(flags),
		newItemsCmd(flags),
		newRandomCmd(flags),
		newWatchedCmd(flags),
		newTagsCmd(flags),
		newStudiosCmd(flags),
		newRefreshCmd(flags),
		newTasksCmd(flags),
		newAvatarCmd(flags),
		newPlayCmd(flags),
	)
	return root
}

// session is the per-command state of a CLI subcommand.
type session struct {
	env    *app.Env
	client *jellyfin.Client
	bus    *notify.Bus
}

// newSession loads config, logs to stderr and connects the client.
func newSession(flags *rootFlags) (*session, error) {
	env, err := app.Load(flags.options())
	if err != nil {
		return nil, err
	}
	log.Configure(log.Config{Level: env.Config.LogLevel, Output: os.Stderr, Service: "usher", Console: true})

	client, err := env.NewClient()
	if err != nil {
		return nil, err
	}
	return &session{env: env, client: client, bus: notify.NewBus(0)}, nil
}

func (s *session) Close() { s.bus.Close() }

// getItem fetches one item by id.
func (s *session) getItem(ctx context.Context, id string) (jellyfin.Item, error) {
	item, err := s.client.GetItem(ctx, id)
	if err != nil {
		return jellyfin.Item{}, fmt.Errorf("get item %s: %w", id, err)
	}
	return item, nil
}

type awaiter interface {
	Await(ctx context.Context) (controller.State, error)
}

// settle waits for c to go idle and reports its error state.
func settle(ctx context.Context, c awaiter) error {
	state, err := c.Await(ctx)
	if err != nil {
		return err
	}
	if state.Err != nil {
		return state.Err
	}
	return nil
}

// drain returns the events already buffered on ch.
func drain[E any](ch <-chan E) []E {
	var out []E
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}
