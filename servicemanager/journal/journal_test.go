package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.unix.lgbt/diamondburned/servicemanager/servicemanager"
)

func TestWriterFormat(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf)
	w.now = func() time.Time {
		return time.Date(2024, 3, 9, 7, 5, 2, 0, time.Local)
	}

	require.NoError(t, w.Write(&servicemanager.EventStarted{}))
	require.NoError(t, w.Write(&servicemanager.EventProcessExited{PID: 9, ExitCode: 2}))

	require.Equal(t, ""+
		"2024-03-09 07:05:02\tService manager started.\n"+
		"2024-03-09 07:05:02\tProcess terminated with exit code 2.\n",
		buf.String())
}

func TestFileWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("earlier line\n"), 0644))

	f, err := OpenFile(path)
	require.NoError(t, err)

	require.NoError(t, f.Write(&servicemanager.EventStarted{}))
	require.NoError(t, f.Write(&servicemanager.EventStopped{}))
	require.NoError(t, f.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "earlier line", lines[0])
	require.True(t, strings.HasSuffix(lines[1], "\tService manager started."), lines[1])
	require.True(t, strings.HasSuffix(lines[2], "\tService manager stopped."), lines[2])

	_, err = time.ParseInLocation(TimeFormat, strings.SplitN(lines[1], "\t", 2)[0], time.Local)
	require.NoError(t, err)
}

func TestHumanWriterSkipsQuiet(t *testing.T) {
	var buf bytes.Buffer
	h := NewHumanWriter(&buf)

	require.NoError(t, h.Write(&servicemanager.EventStarted{}))
	require.NoError(t, h.Write(&servicemanager.EventProcessStarting{Command: []string{"/bin/app"}}))
	require.NoError(t, h.Write(&servicemanager.EventPIDFileError{}))
	require.NoError(t, h.Write(&servicemanager.EventShutdownRequested{}))

	require.Equal(t, ""+
		"Service manager started.\n"+
		"Attempting clean shutdown.  Please wait.\n",
		buf.String())
}

func TestSlogWriter(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := NewSlogWriter(l)
	require.NoError(t, s.Write(&servicemanager.EventProcessExited{PID: 9, ExitCode: 2}))
	require.NoError(t, s.Write(&servicemanager.EventForceTerminateError{Error: "denied"}))

	dec := json.NewDecoder(&buf)

	var rec struct {
		Level string `json:"level"`
		Msg   string `json:"msg"`
		Type  string `json:"type"`
		Event struct {
			PID      int `json:"pid"`
			ExitCode int `json:"exit_code"`
		} `json:"event"`
	}

	require.NoError(t, dec.Decode(&rec))
	require.Equal(t, "INFO", rec.Level)
	require.Equal(t, "Process terminated with exit code 2.", rec.Msg)
	require.Equal(t, "process exited", rec.Type)
	require.Equal(t, 9, rec.Event.PID)
	require.Equal(t, 2, rec.Event.ExitCode)

	require.NoError(t, dec.Decode(&rec))
	require.Equal(t, "ERROR", rec.Level)
}

type failJournal struct{ err error }

func (f failJournal) Write(servicemanager.Event) error { return f.err }

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer
	errFirst := errors.New("first")

	w := MultiWriter(
		NewHumanWriter(&a),
		nil,
		failJournal{errFirst},
		failJournal{errors.New("second")},
		NewHumanWriter(&b),
	)

	err := w.Write(&servicemanager.EventStarted{})
	require.ErrorIs(t, err, errFirst)
	require.Equal(t, "Service manager started.\n", a.String())
	require.Equal(t, "Service manager started.\n", b.String())
}

func TestTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\r\n\nthree\nfour\n"), 0644))

	lines, err := Tail(path, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"two", "three", "four"}, lines)

	lines, err = Tail(path, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two", "three", "four"}, lines)

	_, err = Tail(filepath.Join(t.TempDir(), "missing.log"), 3)
	require.ErrorIs(t, err, os.ErrNotExist)
}
