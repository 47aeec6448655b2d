package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/five82/usher/internal/config"
	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/prefs"
)

// Options configure the usher application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/usher/prefs.toml
	ServerURL  string // overrides server_url when set
	PollEvery  time.Duration
	LogLevel   string // overrides log_level when set
	Version    string
}

// Env is the loaded configuration shared by the TUI and the CLI commands.
type Env struct {
	Config    config.Config
	Prefs     prefs.Prefs
	PrefsPath string
	Version   string
}

// Load reads config and prefs and applies the option overrides. It makes
// sure a device id exists so every session reports the same device.
func Load(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if server := strings.TrimSpace(opts.ServerURL); server != "" {
		cfg.ServerURL = strings.TrimRight(server, "/")
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = opts.PollEvery
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}

	prefsPath, err := prefs.ResolvePath(opts.PrefsPath)
	if err != nil {
		return nil, fmt.Errorf("resolve prefs path: %w", err)
	}
	userPrefs, err := prefs.EnsureDeviceID(prefsPath)
	if err != nil {
		return nil, fmt.Errorf("load prefs: %w", err)
	}

	return &Env{Config: cfg, Prefs: userPrefs, PrefsPath: prefsPath, Version: opts.Version}, nil
}

// NewClient builds the media server client. Configure logging first; the
// client captures its logger on construction.
func (e *Env) NewClient() (*jellyfin.Client, error) {
	if err := e.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	client, err := jellyfin.NewClient(jellyfin.Options{
		ServerURL:         e.Config.ServerURL,
		UserID:            e.Config.UserID,
		AccessToken:       e.Config.AccessToken,
		DeviceID:          e.Prefs.DeviceID,
		DeviceName:        hostname(),
		Version:           e.Version,
		Timeout:           e.Config.RequestTimeout,
		RequestsPerSecond: e.Config.RequestsPerSecond,
		MaxRetries:        e.Config.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("init media server client: %w", err)
	}
	return client, nil
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || strings.TrimSpace(name) == "" {
		return ""
	}
	return "usher@" + name
}
