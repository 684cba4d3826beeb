// Package marker implements the sentinel file protocol shared between the
// supervisor and the supervised process. A marker carries no payload: its
// existence is the message. The supervisor creates a marker to ask for
// something and the child acknowledges by deleting it.
package marker

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
)

const (
	// StopSuffix is appended to the notify base to form the stop marker.
	StopSuffix = ".stop"
	// ReloadSuffix is appended to the notify base to form the reload marker.
	ReloadSuffix = ".reload"
)

// Pair holds the two marker paths derived from one notify base.
type Pair struct {
	Stop   string
	Reload string
}

// For returns the marker pair for the given notify base path.
func For(notify string) Pair {
	return Pair{
		Stop:   notify + StopSuffix,
		Reload: notify + ReloadSuffix,
	}
}

// Clear removes both markers, ignoring errors.
func (p Pair) Clear() {
	Clear(p.Stop)
	Clear(p.Reload)
}

// Signal creates the marker at path. Signaling an existing marker leaves a
// single empty file behind.
func Signal(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return errors.Wrap(err, "failed to create marker")
	}

	return errors.Wrap(f.Close(), "failed to close marker")
}

// IsSignaled reports whether the marker at path exists.
func IsSignaled(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Clear deletes the marker at path. Errors are ignored: a marker that is
// already gone is the desired outcome.
func Clear(path string) {
	os.Remove(path)
}

// WaitCleared polls every interval until the marker at path is gone. tick is
// called after every unsuccessful check if it's not nil.
func WaitCleared(ctx context.Context, path string, interval time.Duration, tick func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for IsSignaled(path) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if tick != nil && IsSignaled(path) {
			tick()
		}
	}

	return nil
}
