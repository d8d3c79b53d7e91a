package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	errs "socialfetch/pkg/errors"
)

// ArtifactStore keeps downloaded binaries (PDFs, media, archived HTML) in one
// directory and decides whether an existing file is skipped or replaced
type ArtifactStore struct {
	dir       string
	overwrite bool
	saved     map[string]int64
	mu        sync.RWMutex
}

// NewArtifactStore creates dir if needed
func NewArtifactStore(dir string, overwrite bool) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to create artifact directory")
	}

	return &ArtifactStore{
		dir:       dir,
		overwrite: overwrite,
		saved:     make(map[string]int64),
	}, nil
}

// Dir returns the artifact directory
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Path returns where name is stored
func (s *ArtifactStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether name is already on disk and non-empty
func (s *ArtifactStore) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && !info.IsDir() && info.Size() > 0
}

// ShouldSkip reports whether a download of name can be skipped
func (s *ArtifactStore) ShouldSkip(name string) bool {
	return !s.overwrite && s.Exists(name)
}

// Save streams r into name through a temporary file and returns the bytes written
func (s *ArtifactStore) Save(name string, r io.Reader) (int64, error) {
	target := s.Path(name)

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.part")
	if err != nil {
		return 0, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to create temporary file")
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	closeErr := tmp.Close()

	if err != nil {
		os.Remove(tmpName)
		return n, errs.Wrap(errs.TypeOrDefault(err, errs.ErrorTypeNetwork), err, fmt.Sprintf("failed to save %s", name))
	}
	if closeErr != nil {
		os.Remove(tmpName)
		return n, errs.Wrap(errs.ErrorTypeFilesystem, closeErr, "failed to close file")
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return n, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to rename temporary file")
	}

	s.mu.Lock()
	s.saved[name] = n
	s.mu.Unlock()

	return n, nil
}

// SaveBytes writes data to name
func (s *ArtifactStore) SaveBytes(name string, data []byte) (int64, error) {
	return s.Save(name, bytes.NewReader(data))
}

// SavedCount returns the number of artifacts written by this store
func (s *ArtifactStore) SavedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.saved)
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeName turns s into a file-name fragment of at most maxLen bytes.
// Runs of unsafe characters become a single underscore.
func SanitizeName(s string, maxLen int) string {
	out := unsafeName.ReplaceAllString(strings.TrimSpace(s), "_")
	out = strings.Trim(out, "_")
	if maxLen > 0 && len(out) > maxLen {
		out = strings.TrimRight(out[:maxLen], "_")
	}
	if out == "" {
		return "untitled"
	}
	return out
}
