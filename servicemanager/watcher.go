package servicemanager

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/marker"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/shutdown"
)

// Watcher watches the directory of a marker pair and wakes the run loop as
// soon as either marker is created or deleted. The run loop works without
// it; it only stops marker changes from waiting out a whole poll quantum.
type Watcher struct {
	w     *fsnotify.Watcher
	j     Journaler
	src   *shutdown.Source
	names map[string]struct{}
}

// TryWatch watches the markers until ctx is canceled. If the directory
// cannot be watched, a warning is written into the journal and TryWatch
// returns right away.
func TryWatch(ctx context.Context, markers marker.Pair, src *shutdown.Source, j Journaler) {
	w, err := NewWatcher(markers, src, j)
	if err != nil {
		j.Write(&EventWarning{
			Component: "watcher",
			Error:     fmt.Sprintf("not watching markers because: %v", err),
		})
		return
	}

	w.Watch(ctx)
}

// NewWatcher creates a watcher for the given markers. Both markers must live
// in the same directory, which is always the case for a pair made by
// marker.For.
func NewWatcher(markers marker.Pair, src *shutdown.Source, j Journaler) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create watcher")
	}

	dir := filepath.Dir(markers.Stop)

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, errors.Wrap(err, "failed to watch dir")
	}

	return &Watcher{
		w:   watcher,
		j:   j,
		src: src,
		names: map[string]struct{}{
			filepath.Clean(markers.Stop):   {},
			filepath.Clean(markers.Reload): {},
		},
	}, nil
}

// Watch blocks until ctx is canceled. The watcher is closed afterwards.
func (w *Watcher) Watch(ctx context.Context) {
	defer w.w.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.j.Write(&EventWarning{
				Component: "watcher",
				Error:     "fsnotify error: " + err.Error(),
			})

		case evt, ok := <-w.w.Events:
			if !ok {
				return
			}
			if w.isMarkerChange(evt) {
				w.src.Wake()
			}
		}
	}
}

func (w *Watcher) isMarkerChange(evt fsnotify.Event) bool {
	if _, ok := w.names[filepath.Clean(evt.Name)]; !ok {
		return false
	}
	return evt.Has(fsnotify.Create) || evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename)
}
