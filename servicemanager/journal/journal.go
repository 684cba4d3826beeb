// Package journal provides implementations of servicemanager's Journaler
// interface: the service log file, the console, and structured diagnostics.
package journal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"git.unix.lgbt/diamondburned/servicemanager/servicemanager"
)

// TimeFormat is the timestamp layout of log lines, in local time.
const TimeFormat = "2006-01-02 15:04:05"

// Writer is a simple journaler that writes one line per event into the
// writer: the timestamp, a tab, then the event's message.
type Writer struct {
	mutex sync.Mutex
	w     io.Writer
	now   func() time.Time
}

var _ servicemanager.Journaler = (*Writer)(nil)

// NewWriter creates a new journal writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, now: time.Now}
}

// Write writes the given event into the writer. Writes are concurrently safe
// and each line is written at once.
func (l *Writer) Write(ev servicemanager.Event) error {
	line := l.now().Format(TimeFormat) + "\t" + ev.Message() + "\n"

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if _, err := io.WriteString(l.w, line); err != nil {
		return errors.Wrap(err, "failed to write event")
	}

	return nil
}

// FileWriter is a Writer that appends to a log file. The file is never
// truncated; rotating it is left to external tools.
type FileWriter struct {
	*Writer
	f *os.File
}

// OpenFile opens or creates the log file at path for appending.
func OpenFile(path string) (*FileWriter, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log file")
	}

	return &FileWriter{
		Writer: NewWriter(f),
		f:      f,
	}, nil
}

// Close closes the file.
func (f *FileWriter) Close() error {
	return errors.Wrap(f.f.Close(), "failed to close log file")
}

// HumanWriter prints event messages for a person watching the console.
// Quiet events are skipped.
type HumanWriter struct {
	mutex sync.Mutex
	w     io.Writer
}

var _ servicemanager.Journaler = (*HumanWriter)(nil)

// NewHumanWriter creates a new console journaler.
func NewHumanWriter(w io.Writer) *HumanWriter {
	return &HumanWriter{w: w}
}

func (h *HumanWriter) Write(ev servicemanager.Event) error {
	if servicemanager.IsQuiet(ev) {
		return nil
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, err := io.WriteString(h.w, ev.Message()+"\n"); err != nil {
		return errors.Wrap(err, "failed to print event")
	}

	return nil
}

// SlogWriter logs every event, quiet or not, as a structured record.
type SlogWriter struct {
	l *slog.Logger
}

var _ servicemanager.Journaler = SlogWriter{}

// NewSlogWriter creates a journaler that logs into l.
func NewSlogWriter(l *slog.Logger) SlogWriter {
	return SlogWriter{l}
}

func (s SlogWriter) Write(ev servicemanager.Event) error {
	s.l.Log(context.Background(), level(ev), ev.Message(),
		slog.String("type", ev.Type()),
		slog.Any("event", ev),
	)
	return nil
}

func level(ev servicemanager.Event) slog.Level {
	switch ev.(type) {
	case *servicemanager.EventProcessSpawnError, *servicemanager.EventForceTerminateError:
		return slog.LevelError
	case *servicemanager.EventWarning,
		*servicemanager.EventPIDFileError,
		*servicemanager.EventStopMarkerError,
		*servicemanager.EventForceTerminated:
		return slog.LevelWarn
	case *servicemanager.EventProcessStarting, *servicemanager.EventProcessSpawned:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// multiWriter combines multiple journalers.
type multiWriter struct {
	writers []servicemanager.Journaler
}

// MultiWriter creates a journaler that writes to multiple other journalers.
// Nil journalers are skipped. Every journaler is written to even if an
// earlier one fails; the first error is returned.
func MultiWriter(ws ...servicemanager.Journaler) servicemanager.Journaler {
	writers := make([]servicemanager.Journaler, 0, len(ws))
	for _, w := range ws {
		if w != nil {
			writers = append(writers, w)
		}
	}

	return &multiWriter{writers}
}

func (w *multiWriter) Write(event servicemanager.Event) error {
	var firstErr error
	for _, writer := range w.writers {
		if err := writer.Write(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
