// Package prefs handles usher user preferences persistence.
// Preferences are stored in ~/.config/usher/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences for usher.
type Prefs struct {
	Theme       string `toml:"theme"`
	SortBy      string `toml:"sort_by"`
	SortOrder   string `toml:"sort_order"`
	PageSize    int    `toml:"page_size"`
	OfflineMode bool   `toml:"offline_mode"`
	DeviceID    string `toml:"device_id"`
}

const (
	defaultPrefsPath = "~/.config/usher/prefs.toml"
	defaultTheme     = "Nightfox"
	defaultSortBy    = "SortName"
	defaultSortOrder = "Ascending"
	defaultPageSize  = 50
	maxPageSize      = 500
)

// Default returns the preferences used when no file exists.
func Default() Prefs {
	return Prefs{
		Theme:     defaultTheme,
		SortBy:    defaultSortBy,
		SortOrder: defaultSortOrder,
		PageSize:  defaultPageSize,
	}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Default(), nil
	}

	prefs := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Default(), nil // Graceful degradation
	}

	return prefs.normalized(), nil
}

// EnsureDeviceID loads the preferences and, when no device id is stored yet,
// generates one and saves it. The id identifies this install to the server.
func EnsureDeviceID(path string) (Prefs, error) {
	p, err := Load(path)
	if err != nil {
		return p, err
	}
	if p.DeviceID != "" {
		return p, nil
	}
	p.DeviceID = uuid.NewString()
	if err := Save(path, p); err != nil {
		return p, fmt.Errorf("save device id: %w", err)
	}
	return p, nil
}

// Save writes preferences to the given path, creating directories as needed.
// The file is replaced atomically so a watcher never reads a partial write.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p.normalized())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := renameio.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

// SameDisplay reports whether two preference sets render the same way.
func (p Prefs) SameDisplay(other Prefs) bool {
	return p.Theme == other.Theme &&
		p.SortBy == other.SortBy &&
		p.SortOrder == other.SortOrder &&
		p.PageSize == other.PageSize
}

func (p Prefs) normalized() Prefs {
	def := Default()
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = def.Theme
	}
	p.SortBy = strings.TrimSpace(p.SortBy)
	if p.SortBy == "" {
		p.SortBy = def.SortBy
	}
	switch strings.ToLower(strings.TrimSpace(p.SortOrder)) {
	case "descending":
		p.SortOrder = "Descending"
	default:
		p.SortOrder = def.SortOrder
	}
	if p.PageSize <= 0 {
		p.PageSize = def.PageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	p.DeviceID = strings.TrimSpace(p.DeviceID)
	return p
}

// ResolvePath returns the absolute preferences path, defaulting when empty.
func ResolvePath(path string) (string, error) {
	return resolvePath(path)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
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
