package servicemanager

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mockJournal is an in-memory storage of journals, primarily used for testing.
// A zero-value instance is a valid instance.
type mockJournal struct {
	mutex    sync.Mutex
	journals []Event
}

var _ Journaler = (*mockJournal)(nil)

// Write appends a journal event into the internal store.
func (m *mockJournal) Write(ev Event) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.journals = append(m.journals, ev)
	return nil
}

// Journals returns a copy of the journal slice.
func (m *mockJournal) Journals() []Event {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return append([]Event(nil), m.journals...)
}

// Types returns the type of every journal in order.
func (m *mockJournal) Types() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return typesOf(m.journals)
}

// Count returns how many journals of the given type were written.
func (m *mockJournal) Count(typ string) int {
	var n int
	for _, t := range m.Types() {
		if t == typ {
			n++
		}
	}
	return n
}

// Verify compares the oldest written events against want and consumes them.
// With strict, nothing else may have been written. The events left over are
// returned, so consecutive calls walk through the journal.
func (m *mockJournal) Verify(t *testing.T, strict bool, want []Event) []Event {
	t.Helper()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	switch {
	case strict && len(want) != len(m.journals):
		t.Errorf("got %d events, want exactly %d: %v", len(m.journals), len(want), typesOf(m.journals))
		return nil
	case len(want) > len(m.journals):
		t.Errorf("got %d events, want at least %d: %v", len(m.journals), len(want), typesOf(m.journals))
		return nil
	}

	if diff := cmp.Diff(want, m.journals[:len(want)]); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	m.journals = m.journals[len(want):]
	return m.journals
}

func typesOf(events []Event) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type()
	}
	return types
}

func TestIsQuiet(t *testing.T) {
	quiet := []Event{
		&EventProcessStarting{},
		&EventProcessSpawned{},
		&EventPIDFileError{},
		&EventStopRequested{},
		&EventReloadRequested{},
		&EventReloaded{},
		&EventReloadTimeout{},
	}
	for _, ev := range quiet {
		if !IsQuiet(ev) {
			t.Errorf("%s should be quiet", ev.Type())
		}
	}

	loud := []Event{
		&EventStarted{},
		&EventShutdownRequested{},
		&EventProcessSpawnError{},
		&EventForceTerminated{},
		&EventProcessExited{},
		&EventStopped{},
		&EventWarning{},
	}
	for _, ev := range loud {
		if IsQuiet(ev) {
			t.Errorf("%s should not be quiet", ev.Type())
		}
	}
}

func TestEventMessages(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{&EventStarted{}, "Service manager started."},
		{&EventStopped{ExitCode: 1}, "Service manager stopped."},
		{&EventProcessExited{PID: 4, ExitCode: 3}, "Process terminated with exit code 3."},
		{&EventForceTerminated{}, "Process force terminated."},
		{&EventForceTerminateError{}, "Process force termination initiation failed."},
		{&EventShutdownRequested{}, "Attempting clean shutdown.  Please wait."},
		{&EventPIDFileError{}, "Unable to create PID file."},
		{
			&EventProcessStarting{Command: []string{"/bin/app", "-x"}},
			"Starting process:  '/bin/app' '-x'",
		},
		{
			&EventProcessSpawnError{Command: []string{"/bin/app"}, Error: "permission denied"},
			"An error occurred while attempting to start the process.  permission denied.  Command = '/bin/app'",
		},
		{
			&EventProcessSpawnError{Command: []string{"/bin/app"}, Error: "operation not permitted", Hint: "Run as root."},
			"An error occurred while attempting to start the process.  operation not permitted.  Run as root.  Command = '/bin/app'",
		},
	}

	for _, test := range tests {
		if got := test.ev.Message(); got != test.want {
			t.Errorf("%s: got %q, expected %q", test.ev.Type(), got, test.want)
		}
	}
}
