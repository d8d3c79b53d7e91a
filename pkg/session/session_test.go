package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/logger"
)

func TestLoadMissingIsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), DefaultFile), nil)

	id, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.False(t, s.Exists())

	info, err := s.Info()
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestSaveLoadDelete(t *testing.T) {
	tl := logger.NewTestLogger()
	path := filepath.Join(t.TempDir(), "state", DefaultFile)
	s := NewStore(path, tl)

	require.NoError(t, s.Save("ctx_123"))
	assert.True(t, s.Exists())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ctx_123\n", string(raw))

	stat, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), stat.Mode().Perm())

	id, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "ctx_123", id)

	info, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, "ctx_123", info.ContextID)

	require.NoError(t, s.Delete())
	assert.False(t, s.Exists())
	require.NoError(t, s.Delete(), "deleting twice should be harmless")
	assert.True(t, tl.HasMessage("Session context reset"))
}

func TestLoadTrimsHandWrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("  abc-def \r\n"), 0644))

	id, err := NewStore(path, nil).Load()
	require.NoError(t, err)
	assert.Equal(t, "abc-def", id)
}

func TestSaveRejectsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), DefaultFile), nil)
	err := s.Save("   ")
	assert.True(t, errs.Is(err, errs.ErrorTypeValidation))
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, DefaultFile, NewStore("", nil).Path())
}
