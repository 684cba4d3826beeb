package servicemanager

import (
	"fmt"
	"strings"

	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/serviceinfo"
)

// eventType describes an event type.
type eventType = string

const (
	eventWarning             eventType = "warning"
	eventStarted             eventType = "started"
	eventProcessStarting     eventType = "process starting"
	eventProcessSpawnError   eventType = "process spawn error"
	eventProcessSpawned      eventType = "process spawned"
	eventPIDFileError        eventType = "pid file error"
	eventShutdownRequested   eventType = "shutdown requested"
	eventStopMarkerError     eventType = "stop marker error"
	eventStopRequested       eventType = "stop requested"
	eventReloadRequested     eventType = "reload requested"
	eventReloaded            eventType = "reloaded"
	eventReloadTimeout       eventType = "reload timeout"
	eventForceTerminated     eventType = "force terminated"
	eventForceTerminateError eventType = "force terminate error"
	eventProcessExited       eventType = "process exited"
	eventStopped             eventType = "stopped"
)

// Event is an interface describing known events.
type Event interface {
	Type() string
	// Message is the line written into the service log.
	Message() string
	event()
}

// quietEvent is implemented by events that are only written into the log
// file and never shown on the console.
type quietEvent interface {
	quiet()
}

// IsQuiet returns true if ev should not be displayed on the console.
func IsQuiet(ev Event) bool {
	_, ok := ev.(quietEvent)
	return ok
}

// EventWarning is emitted when a non-fatal error occurs outside of the run
// loop's state transitions.
type EventWarning struct {
	Component string `json:"component"`
	Error     string `json:"error"`
}

func (ev *EventWarning) Type() string { return eventWarning }
func (ev *EventWarning) event()       {}

func (ev *EventWarning) Message() string {
	return fmt.Sprintf("Warning (%s):  %s", ev.Component, ev.Error)
}

// EventStarted is emitted once when the run loop begins.
type EventStarted struct{}

func (ev *EventStarted) Type() string    { return eventStarted }
func (ev *EventStarted) event()          {}
func (ev *EventStarted) Message() string { return "Service manager started." }

// EventProcessStarting is emitted right before the child is spawned.
type EventProcessStarting struct {
	Command []string `json:"command"`
}

func (ev *EventProcessStarting) Type() string { return eventProcessStarting }
func (ev *EventProcessStarting) event()       {}
func (ev *EventProcessStarting) quiet()       {}

func (ev *EventProcessStarting) Message() string {
	return "Starting process:  " + serviceinfo.JoinArgs(ev.Command)
}

// EventProcessSpawnError is emitted when the child fails to start. The run
// loop stops afterwards.
type EventProcessSpawnError struct {
	Command []string `json:"command"`
	Error   string   `json:"error"`
	// Hint is set when the failure calls for elevated privileges.
	Hint string `json:"hint,omitempty"`
}

func (ev *EventProcessSpawnError) Type() string { return eventProcessSpawnError }
func (ev *EventProcessSpawnError) event()       {}

func (ev *EventProcessSpawnError) Message() string {
	var b strings.Builder
	b.WriteString("An error occurred while attempting to start the process.  ")
	b.WriteString(ev.Error)
	b.WriteString(".")
	if ev.Hint != "" {
		b.WriteString("  ")
		b.WriteString(ev.Hint)
	}
	b.WriteString("  Command = ")
	b.WriteString(serviceinfo.JoinArgs(ev.Command))
	return b.String()
}

// EventProcessSpawned is emitted when the child has been started.
type EventProcessSpawned struct {
	PID int `json:"pid"`
}

func (ev *EventProcessSpawned) Type() string { return eventProcessSpawned }
func (ev *EventProcessSpawned) event()       {}
func (ev *EventProcessSpawned) quiet()       {}

func (ev *EventProcessSpawned) Message() string {
	return fmt.Sprintf("Process started with PID %d.", ev.PID)
}

// EventPIDFileError is emitted when the pid file cannot be written. It is
// not fatal.
type EventPIDFileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

func (ev *EventPIDFileError) Type() string    { return eventPIDFileError }
func (ev *EventPIDFileError) event()          {}
func (ev *EventPIDFileError) quiet()          {}
func (ev *EventPIDFileError) Message() string { return "Unable to create PID file." }

// EventShutdownRequested is emitted when the run loop first observes an
// external stop request.
type EventShutdownRequested struct{}

func (ev *EventShutdownRequested) Type() string { return eventShutdownRequested }
func (ev *EventShutdownRequested) event()       {}

func (ev *EventShutdownRequested) Message() string {
	return "Attempting clean shutdown.  Please wait."
}

// EventStopMarkerError is emitted when the stop marker cannot be created.
// The child is then terminated without waiting.
type EventStopMarkerError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

func (ev *EventStopMarkerError) Type() string { return eventStopMarkerError }
func (ev *EventStopMarkerError) event()       {}

func (ev *EventStopMarkerError) Message() string {
	return "Unable to create stop notification file.  " + ev.Error
}

// EventStopRequested is emitted when a stop marker the supervisor didn't
// create itself is noticed.
type EventStopRequested struct{}

func (ev *EventStopRequested) Type() string    { return eventStopRequested }
func (ev *EventStopRequested) event()          {}
func (ev *EventStopRequested) quiet()          {}
func (ev *EventStopRequested) Message() string { return "Process stop requested." }

// EventReloadRequested is emitted when a reload marker is noticed.
type EventReloadRequested struct{}

func (ev *EventReloadRequested) Type() string    { return eventReloadRequested }
func (ev *EventReloadRequested) event()          {}
func (ev *EventReloadRequested) quiet()          {}
func (ev *EventReloadRequested) Message() string { return "Process reload requested." }

// EventReloaded is emitted when the child acknowledges a reload.
type EventReloaded struct{}

func (ev *EventReloaded) Type() string    { return eventReloaded }
func (ev *EventReloaded) event()          {}
func (ev *EventReloaded) quiet()          {}
func (ev *EventReloaded) Message() string { return "Process reloaded." }

// EventReloadTimeout is emitted when the child did not acknowledge a reload
// in time and is asked to stop instead.
type EventReloadTimeout struct{}

func (ev *EventReloadTimeout) Type() string { return eventReloadTimeout }
func (ev *EventReloadTimeout) event()       {}
func (ev *EventReloadTimeout) quiet()       {}

func (ev *EventReloadTimeout) Message() string {
	return "Process did not reload in time.  Restarting process."
}

// EventForceTerminated is emitted after the child had to be terminated.
type EventForceTerminated struct {
	// Killed is true if the child ignored the termination request.
	Killed bool `json:"killed"`
}

func (ev *EventForceTerminated) Type() string    { return eventForceTerminated }
func (ev *EventForceTerminated) event()          {}
func (ev *EventForceTerminated) Message() string { return "Process force terminated." }

// EventForceTerminateError is emitted when the child cannot even be killed.
// The run loop stops afterwards.
type EventForceTerminateError struct {
	Error string `json:"error"`
}

func (ev *EventForceTerminateError) Type() string { return eventForceTerminateError }
func (ev *EventForceTerminateError) event()       {}

func (ev *EventForceTerminateError) Message() string {
	return "Process force termination initiation failed."
}

// EventProcessExited is emitted when the child has been reaped.
type EventProcessExited struct {
	PID      int `json:"pid"`
	ExitCode int `json:"exit_code"`
}

func (ev *EventProcessExited) Type() string { return eventProcessExited }
func (ev *EventProcessExited) event()       {}

func (ev *EventProcessExited) Message() string {
	return fmt.Sprintf("Process terminated with exit code %d.", ev.ExitCode)
}

// EventStopped is emitted right before the run loop returns.
type EventStopped struct {
	ExitCode int `json:"exit_code"`
}

func (ev *EventStopped) Type() string    { return eventStopped }
func (ev *EventStopped) event()          {}
func (ev *EventStopped) Message() string { return "Service manager stopped." }
