// Package state persists small pieces of UI state between runs, such as the
// last dashboard zoom. It lives in the fleetview state directory, next to the
// session file.
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/grovetools/fleetview/pkg/paths"
)

// Keys used by fleetview itself.
const (
	KeyZoom = "viewport.zoom"
)

// State is a flat map of keys to values.
type State map[string]interface{}

func stateFilePath() (string, error) {
	dir := paths.StateDir()
	if dir == "" {
		return "", fmt.Errorf("no state directory available")
	}
	return filepath.Join(dir, "state.yml"), nil
}

// Load reads the state file. A missing file is an empty state.
func Load() (State, error) {
	path, err := stateFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(State), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if st == nil {
		st = make(State)
	}
	return st, nil
}

// Save writes the whole state file.
func Save(st State) error {
	path, err := stateFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
func Get(key string) (interface{}, bool, error) {
	st, err := Load()
	if err != nil {
		return nil, false, err
	}
	val, ok := st[key]
	return val, ok, nil
}

// GetString returns "" when key is missing or not a string.
func GetString(key string) (string, error) {
	val, ok, err := Get(key)
	if err != nil || !ok {
		return "", err
	}
	str, _ := val.(string)
	return str, nil
}

// GetFloat accepts any numeric yaml value; ok is false otherwise.
func GetFloat(key string) (float64, bool, error) {
	val, ok, err := Get(key)
	if err != nil || !ok {
		return 0, false, err
	}
	switch v := val.(type) {
	case float64:
		return v, true, nil
	case int:
		return float64(v), true, nil
	}
	return 0, false, nil
}

// Set stores value under key.
func Set(key string, value interface{}) error {
	st, err := Load()
	if err != nil {
		return err
	}
	st[key] = value
	return Save(st)
}

// Delete removes key.
func Delete(key string) error {
	st, err := Load()
	if err != nil {
		return err
	}
	delete(st, key)
	return Save(st)
}
