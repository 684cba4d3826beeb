package marker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	p := For("/run/app/notify")
	require.Equal(t, "/run/app/notify.stop", p.Stop)
	require.Equal(t, "/run/app/notify.reload", p.Reload)
}

func TestSignalIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc.stop")

	require.False(t, IsSignaled(path))

	for i := 0; i < 3; i++ {
		require.NoError(t, Signal(path))
	}

	require.True(t, IsSignaled(path))

	s, err := os.Stat(path)
	require.NoError(t, err)
	require.Zero(t, s.Size())

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestSignalTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc.reload")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	require.NoError(t, Signal(path))

	s, err := os.Stat(path)
	require.NoError(t, err)
	require.Zero(t, s.Size())
}

func TestSignalMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "svc.stop")
	require.Error(t, Signal(path))
}

func TestClear(t *testing.T) {
	p := For(filepath.Join(t.TempDir(), "svc"))

	require.NoError(t, Signal(p.Stop))
	require.NoError(t, Signal(p.Reload))

	p.Clear()
	require.False(t, IsSignaled(p.Stop))
	require.False(t, IsSignaled(p.Reload))

	// Clearing twice is fine.
	p.Clear()
}

func TestWaitCleared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc.reload")
	require.NoError(t, Signal(path))

	go func() {
		time.Sleep(30 * time.Millisecond)
		Clear(path)
	}()

	err := WaitCleared(context.Background(), path, 5*time.Millisecond, nil)
	require.NoError(t, err)
	require.False(t, IsSignaled(path))
}

func TestWaitClearedCanceled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc.reload")
	require.NoError(t, Signal(path))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var ticks int
	err := WaitCleared(ctx, path, 5*time.Millisecond, func() { ticks++ })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Positive(t, ticks)
}
