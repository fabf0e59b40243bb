package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// exerciseStorage runs the behaviour every backend must share.
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "growth-hub-storage", []byte(`{"messages":[]}`)))
	got, err := s.Get(ctx, "growth-hub-storage")
	require.NoError(t, err)
	assert.Equal(t, `{"messages":[]}`, string(got))

	require.NoError(t, s.Put(ctx, "growth-hub-storage", []byte(`{"messages":[1]}`)))
	got, err = s.Get(ctx, "growth-hub-storage")
	require.NoError(t, err)
	assert.Equal(t, `{"messages":[1]}`, string(got))

	require.NoError(t, s.Delete(ctx, "growth-hub-storage"))
	_, err = s.Get(ctx, "growth-hub-storage")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting a missing key is not an error
	assert.NoError(t, s.Delete(ctx, "growth-hub-storage"))
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	exerciseStorage(t, s)
}

func TestMemoryStorage_CopiesValues(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", buf))
	buf[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestBoltStorage(t *testing.T) {
	s, err := NewBoltStorage(filepath.Join(t.TempDir(), "data", "growth.bolt"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStorage(t, s)
}

func TestSQLiteStorage(t *testing.T) {
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "growth.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStorage(t, s)
}

func TestNew(t *testing.T) {
	logger := zap.NewNop()

	s, err := New(Options{Driver: DriverMemory}, logger)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)

	s, err = New(Options{Driver: DriverBolt, Path: filepath.Join(t.TempDir(), "x.bolt")}, logger)
	require.NoError(t, err)
	assert.IsType(t, &BoltStorage{}, s)
	require.NoError(t, s.Close())

	_, err = New(Options{Driver: "redis"}, logger)
	assert.Error(t, err)
}
