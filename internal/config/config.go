// Package config provides the immutable settings vhdm reads once at
// startup: where the tracking database lives, how much detach history to
// retain, and where mounts are created. Commands construct one Settings
// value and pass it down; nothing in the core packages reads configuration
// or environment on its own.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// CfgEnv overrides the config file location when set.
const CfgEnv = "VHDM_CFG"

// CfgFile is the config file name inside the config directory.
const CfgFile = "config.toml"

// Settings is the environment-level configuration for one invocation.
type Settings struct {
	// DatabasePath is the tracking database file. Empty means the default
	// under the data directory.
	DatabasePath string `toml:"database_path,omitempty"`
	// JournalPath is the sqlite operation journal. Empty means the
	// default under the data directory.
	JournalPath string `toml:"journal_path,omitempty"`
	// DetachHistoryMax caps the retained detach history length.
	DetachHistoryMax int `toml:"detach_history_max"`
	// HistoryListDefault is how many history entries `vhdm history`
	// shows without an explicit --limit.
	HistoryListDefault int `toml:"history_list_default"`
	// MountRoot is where `vhdm mount` creates mount points.
	MountRoot string `toml:"mount_root"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		DetachHistoryMax:   50,
		HistoryListDefault: 10,
		MountRoot:          "/mnt/wsl",
	}
}

// Dir returns the vhdm config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/vhdm if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "vhdm"), nil
}

// DataDir returns the vhdm data directory (~/.vhdm), creating it if
// needed. The tracking database, journal, daemon PID file and log all live
// here.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	dir := filepath.Join(home, ".vhdm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create vhdm directory: %w", err)
	}
	return dir, nil
}

// Load reads the config file and fills unset fields with defaults. A
// missing file is not an error; the defaults apply. The file location is
// {Dir()}/config.toml unless VHDM_CFG points elsewhere.
func Load() (Settings, error) {
	path := os.Getenv(CfgEnv)
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return Defaults(), err
		}
		path = filepath.Join(dir, CfgFile)
	}
	return loadFile(path)
}

func loadFile(path string) (Settings, error) {
	settings := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return Defaults(), fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Zero or negative values fall back rather than disabling features.
	defaults := Defaults()
	if settings.DetachHistoryMax < 1 {
		settings.DetachHistoryMax = defaults.DetachHistoryMax
	}
	if settings.HistoryListDefault < 1 {
		settings.HistoryListDefault = defaults.HistoryListDefault
	}
	if settings.MountRoot == "" {
		settings.MountRoot = defaults.MountRoot
	}
	return settings, nil
}

// ResolveDatabasePath returns the effective tracking database path:
// flagValue when set, otherwise the configured path, otherwise the default
// under the data directory.
func (s Settings) ResolveDatabasePath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if s.DatabasePath != "" {
		return s.DatabasePath, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tracking.json"), nil
}

// ResolveJournalPath returns the effective operation journal path.
func (s Settings) ResolveJournalPath() (string, error) {
	if s.JournalPath != "" {
		return s.JournalPath, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal.db"), nil
}
