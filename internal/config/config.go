package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures how usher reaches the media server and where it logs.
type Config struct {
	ServerURL         string
	UserID            string
	AccessToken       string
	LogLevel          string
	LogFile           string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	MaxRetries        int
	PollInterval      time.Duration
}

const (
	defaultConfigPath     = "~/.config/usher/config.toml"
	defaultLogFile        = "~/.local/share/usher/usher.log"
	defaultServerURL      = "http://127.0.0.1:8096"
	defaultLogLevel       = "info"
	defaultRequestTimeout = 30 * time.Second
	defaultMaxRetries     = 3
	defaultPollInterval   = 5 * time.Second
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		ServerURL:      defaultServerURL,
		LogLevel:       defaultLogLevel,
		LogFile:        mustExpand(defaultLogFile),
		RequestTimeout: defaultRequestTimeout,
		MaxRetries:     defaultMaxRetries,
		PollInterval:   defaultPollInterval,
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load locates and parses the usher config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		ServerURL         string  `toml:"server_url"`
		UserID            string  `toml:"user_id"`
		AccessToken       string  `toml:"access_token"`
		LogLevel          string  `toml:"log_level"`
		LogFile           string  `toml:"log_file"`
		RequestTimeout    string  `toml:"request_timeout"`
		RequestsPerSecond float64 `toml:"requests_per_second"`
		MaxRetries        *int    `toml:"max_retries"`
		PollInterval      string  `toml:"poll_interval"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.ServerURL); v != "" {
		cfg.ServerURL = strings.TrimRight(v, "/")
	}
	cfg.UserID = strings.TrimSpace(raw.UserID)
	cfg.AccessToken = strings.TrimSpace(raw.AccessToken)
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if cfg.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout, defaultRequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = parseDuration("poll_interval", raw.PollInterval, defaultPollInterval); err != nil {
		return Config{}, err
	}
	if raw.RequestsPerSecond < 0 {
		return Config{}, fmt.Errorf("parse config: requests_per_second must not be negative")
	}
	cfg.RequestsPerSecond = raw.RequestsPerSecond
	if raw.MaxRetries != nil {
		if *raw.MaxRetries < 0 {
			return Config{}, fmt.Errorf("parse config: max_retries must not be negative")
		}
		cfg.MaxRetries = *raw.MaxRetries
	}

	return cfg, nil
}

// Validate reports whether the config can sign in to a server.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return fmt.Errorf("server_url is required")
	}
	if strings.TrimSpace(c.AccessToken) == "" {
		return fmt.Errorf("access_token is required")
	}
	return nil
}

// LogPath returns the log file, defaulting when unset.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogFile) == "" {
		return mustExpand(defaultLogFile)
	}
	return c.LogFile
}

func parseDuration(key, raw string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("parse config: %s must be positive", key)
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
