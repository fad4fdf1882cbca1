// Package paths provides XDG-compliant path resolution for fleetview.
//
// Resolution order:
// 1. FLEETVIEW_HOME (portable root) → $FLEETVIEW_HOME/{config,state,cache}
// 2. XDG env vars → $XDG_*_HOME/fleetview
// 3. Platform defaults → ~/.config/fleetview, ~/.local/state/fleetview, etc.
package paths

import (
	"os"
	"path/filepath"
)

const appName = "fleetview"

func home(sub, xdgVar string, fallback ...string) string {
	if root := os.Getenv("FLEETVIEW_HOME"); root != "" {
		return filepath.Join(root, sub)
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append(append([]string{homeDir}, fallback...), appName)...)
	}
	return ""
}

// ConfigDir returns the configuration directory. The global fleetview.yml
// lives here.
func ConfigDir() string {
	return home("config", "XDG_CONFIG_HOME", ".config")
}

// StateDir returns the state directory. Used for the session file and logs.
func StateDir() string {
	return home("state", "XDG_STATE_HOME", ".local", "state")
}

// CacheDir returns the cache directory.
func CacheDir() string {
	return home("cache", "XDG_CACHE_HOME", ".cache")
}

// LogDir returns the directory holding log files.
func LogDir() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "logs")
}

// LogFilePath returns the default log file.
func LogFilePath() string {
	dir := LogDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "fleetview.log")
}

// SessionFilePath returns the file holding the login session.
func SessionFilePath() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "session.yml")
}

// EnsureDirs creates all fleetview directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), CacheDir(), LogDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
