package lockfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	lock, err := Acquire(zap.NewNop(), path, "run-1")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "run-1")

	require.NoError(t, lock.Release())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestAcquireContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	lock, err := Acquire(zap.NewNop(), path, "run-1")
	require.NoError(t, err)
	defer lock.Release()

	_, err = Acquire(zap.NewNop(), path, "run-2")
	require.ErrorIs(t, err, ErrLocked)
}

func TestAcquireStealsStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	require.NoError(t, os.WriteFile(path, []byte("dead-run 123\n"), 0o644))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	lock, err := Acquire(zap.NewNop(), path, "run-2")
	require.NoError(t, err)
	defer lock.Release()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "run-2")
}

func TestReleaseTwiceIsSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	lock, err := Acquire(zap.NewNop(), path, "run-1")
	require.NoError(t, err)
	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
}
