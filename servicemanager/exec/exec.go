// Package exec provides an abstraction around package os' Process
// implementation so the run loop can be driven by fake processes in tests.
package exec

import (
	"os"

	"github.com/pkg/errors"
)

// Process describes a started child process.
type Process interface {
	PID() int
	// Terminate asks the process to exit on its own. It returns
	// ErrTerminateUnsupported where the platform has no catchable
	// termination request.
	Terminate() error
	// Kill terminates the process unconditionally.
	Kill() error
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// ExitStatus returns the exit status. It is only valid after Done is
	// closed.
	ExitStatus() ExitStatus
}

// ExitStatus is a process' exit status.
type ExitStatus struct {
	PID   int
	Code  int // -1 if killed by a signal
	Error error
}

// ErrTerminateUnsupported is returned by Terminate on platforms that can
// only kill.
var ErrTerminateUnsupported = errors.New("graceful termination is not supported")

// Command describes how to start a process.
type Command struct {
	Argv []string
	Dir  string

	// User and Group are the POSIX identity the process runs as. Empty
	// values keep the supervisor's identity.
	User  string
	Group string

	// Priority and CreateFlags are OR'd into the Windows creation flags.
	Priority    uint32
	CreateFlags uint32
}

// Spawner starts processes.
type Spawner interface {
	Start(Command) (Process, error)
}

// SpawnerFunc is a function that implements Spawner.
type SpawnerFunc func(Command) (Process, error)

// Start calls f.
func (f SpawnerFunc) Start(cmd Command) (Process, error) { return f(cmd) }

// System spawns real processes.
var System Spawner = SpawnerFunc(StartProcess)

// Validate checks that cmd can be started as configured. It resolves the
// user and group so that unknown names surface before anything is spawned.
func Validate(cmd Command) error {
	if len(cmd.Argv) == 0 {
		return errors.New("empty command")
	}
	_, err := sysProcAttr(cmd)
	return err
}

// StartProcess starts cmd on the system. The standard streams are inherited.
func StartProcess(cmd Command) (Process, error) {
	if len(cmd.Argv) == 0 {
		return nil, errors.New("empty command")
	}

	attr, err := sysProcAttr(cmd)
	if err != nil {
		return nil, err
	}

	p, err := os.StartProcess(cmd.Argv[0], cmd.Argv, &os.ProcAttr{
		Dir:   cmd.Dir,
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
		Sys:   attr,
	})
	if err != nil {
		return nil, err
	}

	return newProcess(p), nil
}

type process struct {
	proc   *os.Process
	done   chan struct{}
	status ExitStatus
}

var _ Process = (*process)(nil)

func newProcess(p *os.Process) *process {
	proc := &process{
		proc: p,
		done: make(chan struct{}),
	}
	go proc.wait()
	return proc
}

func (proc *process) wait() {
	s, err := proc.proc.Wait()

	code := -1
	if s != nil {
		code = s.ExitCode()
	}

	proc.status = ExitStatus{
		PID:   proc.proc.Pid,
		Code:  code,
		Error: err,
	}
	close(proc.done)
}

func (proc *process) PID() int { return proc.proc.Pid }

func (proc *process) Done() <-chan struct{} { return proc.done }

func (proc *process) Kill() error {
	return errors.Wrap(proc.proc.Kill(), "failed to kill process")
}

func (proc *process) Terminate() error {
	return terminate(proc.proc)
}

func (proc *process) ExitStatus() ExitStatus {
	select {
	case <-proc.done:
		return proc.status
	default:
		return ExitStatus{PID: proc.proc.Pid, Code: -1}
	}
}
