// Package session persists the Browserbase context identifier between runs so
// a logged-in LinkedIn browser profile can be reused.
//
// The file holds the bare identifier followed by a newline, which keeps it
// compatible with context files written by hand or by other tools.
package session

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/logger"
)

// DefaultFile is the session file name used when none is configured
const DefaultFile = ".linkedin_context_id"

// Store is a single-value key store backed by one file
type Store struct {
	path   string
	logger logger.Logger
}

// Info describes a stored session
type Info struct {
	Path      string    `json:"path"`
	ContextID string    `json:"context_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStore creates a store for path; an empty path uses DefaultFile
func NewStore(path string, log logger.Logger) *Store {
	if path == "" {
		path = DefaultFile
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{path: path, logger: log}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored identifier, or "" when no session exists
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to read session file")
	}

	id := strings.TrimSpace(string(data))
	if id != "" {
		s.logger.DebugWithFields("Loaded session context", map[string]interface{}{
			"path":       s.path,
			"context_id": id,
		})
	}
	return id, nil
}

// Save writes id atomically
func (s *Store) Save(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errs.New(errs.ErrorTypeValidation, "refusing to save an empty session id")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to create session directory")
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(id+"\n"), 0600); err != nil {
		return errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to write session file")
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to rename session file")
	}

	s.logger.InfoWithFields("Session context saved", map[string]interface{}{
		"path":       s.path,
		"context_id": id,
	})
	return nil
}

// Delete removes the session file. A missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to delete session file")
	}
	s.logger.InfoWithFields("Session context reset", map[string]interface{}{"path": s.path})
	return nil
}

// Exists reports whether a non-empty session is stored
func (s *Store) Exists() bool {
	id, err := s.Load()
	return err == nil && id != ""
}

// Info returns the stored session, or nil when none exists
func (s *Store) Info() (*Info, error) {
	id, err := s.Load()
	if err != nil || id == "" {
		return nil, err
	}

	stat, err := os.Stat(s.path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to stat session file")
	}

	return &Info{Path: s.path, ContextID: id, UpdatedAt: stat.ModTime()}, nil
}
