package servicemanager

import (
	"fmt"
	"time"
)

// Phase is a state of the run loop. The numeric values are stable and show
// up in debug output.
type Phase int

const (
	PhaseStarting               Phase = 0
	PhaseRunning                Phase = 1
	PhaseForceTerminate         Phase = 2
	PhaseReaped                 Phase = 3
	PhaseGraceStop              Phase = 4
	PhaseGraceStopAfterShutdown Phase = 5
	PhaseGraceReload            Phase = 6
	PhaseTerminal               Phase = 100
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseForceTerminate:
		return "force terminate"
	case PhaseReaped:
		return "reaped"
	case PhaseGraceStop:
		return "grace stop"
	case PhaseGraceStopAfterShutdown:
		return "grace stop after shutdown"
	case PhaseGraceReload:
		return "grace reload"
	case PhaseTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// polling returns true for the phases that wait on the child.
func (p Phase) polling() bool {
	switch p {
	case PhaseRunning, PhaseGraceStop, PhaseGraceStopAfterShutdown, PhaseGraceReload:
		return true
	default:
		return false
	}
}

// timed returns true for the phases that consume the grace budget.
func (p Phase) timed() bool {
	switch p {
	case PhaseGraceStop, PhaseGraceStopAfterShutdown, PhaseGraceReload:
		return true
	default:
		return false
	}
}

// State is the run loop's state. It is owned by whoever drives the Machine.
type State struct {
	Phase Phase
	// Remaining is the grace budget left in a timed phase.
	Remaining time.Duration
	// Next is the phase entered after the child has been reaped.
	Next     Phase
	ExitCode int
	PID      int
}

// Observation is a fact about the outside world reported to the Machine.
type Observation interface {
	observation()
}

// Spawned reports that the child has started.
type Spawned struct {
	PID int
}

// SpawnFailed reports that the child could not be started.
type SpawnFailed struct {
	Err error
	// Hint is shown along with the error, if any.
	Hint string
}

// Polled reports what a poll wait has found.
type Polled struct {
	// Elapsed is how long the wait actually took.
	Elapsed  time.Duration
	Exited   bool
	ExitCode int
	// StopRequested is true if an external stop has been requested.
	StopRequested bool
	StopMarker    bool
	ReloadMarker  bool
}

// StopSignalFailed reports that the stop marker could not be created.
type StopSignalFailed struct {
	File string
	Err  error
}

// Terminated reports the outcome of forced termination.
type Terminated struct {
	ExitCode int
	// Killed is true if the child had to be killed unconditionally.
	Killed bool
	// Err is set if not even the kill could be initiated.
	Err error
}

// Settled reports the end of the pause after a child exit.
type Settled struct {
	StopRequested bool
}

func (Spawned) observation()          {}
func (SpawnFailed) observation()      {}
func (Polled) observation()           {}
func (StopSignalFailed) observation() {}
func (Terminated) observation()       {}
func (Settled) observation()          {}

// Effect is an action the Machine asks its driver to perform. Effects are
// performed in order. Spawn, Poll, Terminate and Settle each produce the
// next Observation and end the batch; SignalStop ends it only if it fails,
// producing StopSignalFailed.
type Effect interface {
	effect()
}

// WriteJournal writes an event into the journal.
type WriteJournal struct {
	Event Event
}

// ClearFiles deletes the pid file and both markers.
type ClearFiles struct{}

// Spawn starts the child and produces Spawned or SpawnFailed.
type Spawn struct{}

// WritePIDFile writes the supervisor's and the child's PIDs.
type WritePIDFile struct {
	PID int
}

// Poll waits up to Timeout for the child to exit or for a wake up, then
// produces Polled.
type Poll struct {
	Timeout time.Duration
}

// SignalStop creates the stop marker.
type SignalStop struct{}

// Terminate terminates the child and produces Terminated.
type Terminate struct{}

// Settle pauses after a child exit and produces Settled.
type Settle struct{}

// Exit ends the run loop with Code.
type Exit struct {
	Code int
}

func (WriteJournal) effect() {}
func (ClearFiles) effect()   {}
func (Spawn) effect()        {}
func (WritePIDFile) effect() {}
func (Poll) effect()         {}
func (SignalStop) effect()   {}
func (Terminate) effect()    {}
func (Settle) effect()       {}
func (Exit) effect()         {}

// Machine is the run loop's transition function. It does no I/O.
type Machine struct {
	// Wait is the grace budget for stop and reload requests. A negative
	// Wait never runs out.
	Wait time.Duration
	// Quantum bounds every poll wait.
	Quantum time.Duration
	// Command is the child's argv, used in journal events.
	Command []string
}

// Begin returns the initial state and its effects.
func (m Machine) Begin() (State, []Effect) {
	st := State{Phase: PhaseStarting}
	return st, append([]Effect{WriteJournal{&EventStarted{}}}, m.enter(st)...)
}

// Step applies obs to st. An observation that doesn't apply to the current
// phase leaves the state untouched and yields no effects.
func (m Machine) Step(st State, obs Observation) (State, []Effect) {
	switch obs := obs.(type) {
	case Spawned:
		if st.Phase != PhaseStarting {
			return st, nil
		}
		st.PID = obs.PID
		st.Phase = PhaseRunning
		return st, m.transition(st,
			WriteJournal{&EventProcessSpawned{PID: obs.PID}},
			WritePIDFile{PID: obs.PID},
		)

	case SpawnFailed:
		if st.Phase != PhaseStarting {
			return st, nil
		}
		st.ExitCode = 1
		st.Phase = PhaseTerminal
		return st, m.transition(st, WriteJournal{&EventProcessSpawnError{
			Command: m.Command,
			Error:   errorString(obs.Err),
			Hint:    obs.Hint,
		}})

	case Polled:
		if !st.Phase.polling() {
			return st, nil
		}
		return m.poll(st, obs)

	case StopSignalFailed:
		if st.Phase != PhaseGraceStop && st.Phase != PhaseGraceStopAfterShutdown {
			return st, nil
		}
		st.Next = m.afterStop(st.Phase)
		st.Phase = PhaseForceTerminate
		return st, m.transition(st, WriteJournal{&EventStopMarkerError{
			File:  obs.File,
			Error: errorString(obs.Err),
		}})

	case Terminated:
		if st.Phase != PhaseForceTerminate {
			return st, nil
		}
		if obs.Err != nil {
			st.Phase = PhaseTerminal
			return st, m.transition(st, WriteJournal{&EventForceTerminateError{
				Error: obs.Err.Error(),
			}})
		}
		st.ExitCode = exitCode(obs.ExitCode)
		if obs.Killed {
			st.ExitCode = 1
		}
		st.Phase = PhaseReaped
		return st, m.transition(st, WriteJournal{&EventForceTerminated{Killed: obs.Killed}})

	case Settled:
		if st.Phase != PhaseReaped {
			return st, nil
		}
		if obs.StopRequested {
			st.Next = PhaseTerminal
		}
		st.Phase = st.Next
		st.PID = 0
		return st, m.enter(st)

	default:
		return st, nil
	}
}

// poll applies the rules of a polling phase in priority order.
func (m Machine) poll(st State, obs Polled) (State, []Effect) {
	switch {
	case obs.Exited:
		st.ExitCode = exitCode(obs.ExitCode)
		st.Next = m.afterStop(st.Phase)
		st.Phase = PhaseReaped
		return st, m.enter(st)

	case obs.StopRequested && st.Phase != PhaseGraceStopAfterShutdown:
		st.Phase = PhaseGraceStopAfterShutdown
		st.Remaining = m.Wait
		return st, m.transition(st,
			WriteJournal{&EventShutdownRequested{}},
			SignalStop{},
		)

	case st.Phase == PhaseGraceStop || st.Phase == PhaseGraceStopAfterShutdown:
		if m.expire(&st, obs.Elapsed) {
			st.Next = m.afterStop(st.Phase)
			st.Phase = PhaseForceTerminate
		}
		return st, m.enter(st)

	case obs.StopMarker:
		st.Phase = PhaseGraceStop
		st.Remaining = m.Wait
		return st, m.transition(st, WriteJournal{&EventStopRequested{}})

	case obs.ReloadMarker:
		if st.Phase != PhaseGraceReload {
			st.Phase = PhaseGraceReload
			st.Remaining = m.Wait
			return st, m.transition(st, WriteJournal{&EventReloadRequested{}})
		}
		if !m.expire(&st, obs.Elapsed) {
			return st, m.enter(st)
		}
		st.Phase = PhaseGraceStop
		st.Remaining = m.Wait
		return st, m.transition(st,
			WriteJournal{&EventReloadTimeout{}},
			SignalStop{},
		)

	default:
		var effects []Effect
		if st.Phase == PhaseGraceReload {
			effects = append(effects, WriteJournal{&EventReloaded{}})
		}
		st.Phase = PhaseRunning
		st.Remaining = 0
		return st, m.transition(st, effects...)
	}
}

// expire consumes elapsed from the budget and returns true once it has run
// out. The budget never runs out if Wait is negative.
func (m Machine) expire(st *State, elapsed time.Duration) bool {
	if m.Wait < 0 {
		return false
	}
	if elapsed > st.Remaining {
		elapsed = st.Remaining
	}
	st.Remaining -= elapsed
	return st.Remaining <= 0
}

// afterStop returns the phase that follows reaping a child in phase p.
func (m Machine) afterStop(p Phase) Phase {
	if p == PhaseGraceStopAfterShutdown {
		return PhaseTerminal
	}
	return PhaseStarting
}

// transition returns effects followed by the entry effects of st.
func (m Machine) transition(st State, effects ...Effect) []Effect {
	return append(effects, m.enter(st)...)
}

// enter returns the effects performed on entering st.Phase.
func (m Machine) enter(st State) []Effect {
	switch st.Phase {
	case PhaseStarting:
		return []Effect{
			WriteJournal{&EventProcessStarting{Command: m.Command}},
			ClearFiles{},
			Spawn{},
		}
	case PhaseRunning, PhaseGraceStop, PhaseGraceStopAfterShutdown, PhaseGraceReload:
		return []Effect{Poll{Timeout: m.pollTimeout(st)}}
	case PhaseForceTerminate:
		return []Effect{Terminate{}}
	case PhaseReaped:
		return []Effect{
			WriteJournal{&EventProcessExited{PID: st.PID, ExitCode: st.ExitCode}},
			Settle{},
		}
	case PhaseTerminal:
		return []Effect{
			ClearFiles{},
			WriteJournal{&EventStopped{ExitCode: st.ExitCode}},
			Exit{Code: st.ExitCode},
		}
	default:
		return nil
	}
}

func (m Machine) pollTimeout(st State) time.Duration {
	if st.Phase.timed() && m.Wait >= 0 && st.Remaining < m.Quantum {
		return st.Remaining
	}
	return m.Quantum
}

// exitCode maps a reaped status to the code recorded in the state. Deaths by
// signal have no exit code and count as 0.
func exitCode(code int) int {
	if code < 0 {
		return 0
	}
	return code
}

func errorString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
