// Package session holds the authenticated operator session. A session is
// created by login, passed explicitly to the API client and destroyed by
// logout; nothing reads it from ambient state.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/grovetools/fleetview/errors"
	"github.com/grovetools/fleetview/pkg/models"
	"github.com/grovetools/fleetview/pkg/paths"
)

// Session is an authenticated operator.
type Session struct {
	Token    string      `yaml:"token"`
	User     models.User `yaml:"user"`
	Server   string      `yaml:"server"`
	IssuedAt time.Time   `yaml:"issued_at"`
}

// Valid reports whether the session carries a token.
func (s *Session) Valid() bool {
	return s != nil && s.Token != ""
}

// Store persists a session to a yaml file.
type Store struct {
	path string
}

// NewStore returns a store backed by path, or the default session file if
// path is empty.
func NewStore(path string) *Store {
	if path == "" {
		path = paths.SessionFilePath()
	}
	return &Store{path: path}
}

// Path returns the session file location.
func (s *Store) Path() string { return s.path }

// Load reads the saved session. A missing file is SESSION_MISSING.
func (s *Store) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.SessionMissing()
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var sess Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	if !sess.Valid() {
		return nil, errors.SessionMissing()
	}
	return &sess, nil
}

// Save writes the session, readable only by the current user.
func (s *Store) Save(sess *Session) error {
	if !sess.Valid() {
		return errors.InvalidInput("refusing to save a session without a token")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Delete removes the saved session. Deleting a missing session is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
