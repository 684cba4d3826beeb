package servicemanager

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"

	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/exec"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/marker"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/serviceinfo"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/shutdown"
)

// PollQuantum bounds every wait of the run loop, so that markers and stop
// requests are noticed even without a wake up.
var PollQuantum = 2 * time.Second

// SettleDelay is the pause after the child exits before the next step.
var SettleDelay = time.Second

// KillGrace is how long a terminated child may take to exit before it is
// killed unconditionally.
var KillGrace = exec.TerminateGrace

// Loop drives a Machine against the host: it owns the child process, the
// pid file and the markers of one service.
type Loop struct {
	PollQuantum time.Duration
	SettleDelay time.Duration
	KillGrace   time.Duration

	cfg     serviceinfo.Config
	markers marker.Pair
	spawner exec.Spawner
	src     *shutdown.Source
	j       Journaler

	proc exec.Process
}

// NewLoop creates a run loop for the service described by cfg. Children are
// started with spawner and stop requests are read from src.
func NewLoop(cfg serviceinfo.Config, spawner exec.Spawner, src *shutdown.Source, j Journaler) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &SetupError{Msg: "invalid service configuration", Err: err}
	}

	l := &Loop{
		PollQuantum: PollQuantum,
		SettleDelay: SettleDelay,
		KillGrace:   KillGrace,

		cfg:     cfg,
		markers: marker.For(cfg.Notify),
		spawner: spawner,
		src:     src,
		j:       j,
	}

	if err := exec.Validate(l.command()); err != nil {
		return nil, &SetupError{Msg: "invalid service command", Err: err}
	}

	return l, nil
}

// Markers returns the marker pair of the supervised service.
func (l *Loop) Markers() marker.Pair { return l.markers }

// Run runs the loop until it reaches the terminal phase and returns the exit
// code. Run must only be called once.
func (l *Loop) Run() int {
	// Children are bound to the spawning thread on Linux. See package exec.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	m := Machine{
		Wait:    l.cfg.Wait,
		Quantum: l.PollQuantum,
		Command: l.cfg.Command,
	}

	st, effects := m.Begin()

	for {
		obs, code, done := l.perform(effects)
		if done {
			return code
		}
		if obs == nil {
			panic(fmt.Sprintf("servicemanager: no observation in phase %v", st.Phase))
		}

		st, effects = m.Step(st, obs)
	}
}

// perform runs effects in order until one of them produces an observation or
// ends the loop.
func (l *Loop) perform(effects []Effect) (obs Observation, code int, done bool) {
	for _, effect := range effects {
		switch effect := effect.(type) {
		case WriteJournal:
			l.j.Write(effect.Event)
		case ClearFiles:
			l.clearFiles()
		case Spawn:
			return l.spawn(), 0, false
		case WritePIDFile:
			l.writePIDFile(effect.PID)
		case Poll:
			return l.poll(effect.Timeout), 0, false
		case SignalStop:
			if err := marker.Signal(l.markers.Stop); err != nil {
				return StopSignalFailed{File: l.markers.Stop, Err: err}, 0, false
			}
		case Terminate:
			return l.terminate(), 0, false
		case Settle:
			return l.settle(), 0, false
		case Exit:
			return nil, effect.Code, true
		}
	}

	return nil, 0, false
}

func (l *Loop) command() exec.Command {
	return exec.Command{
		Argv:        l.cfg.Command,
		Dir:         l.cfg.Dir,
		User:        l.cfg.User,
		Group:       l.cfg.Group,
		Priority:    l.cfg.Priority,
		CreateFlags: l.cfg.CreateFlags,
	}
}

func (l *Loop) clearFiles() {
	if l.cfg.PIDFile != "" {
		os.Remove(l.cfg.PIDFile)
	}
	l.markers.Clear()
}

func (l *Loop) spawn() Observation {
	proc, err := l.spawner.Start(l.command())
	if err != nil {
		obs := SpawnFailed{Err: err}
		if exec.IsElevationRequired(err) {
			obs.Hint = exec.ElevationHint
		}
		return obs
	}

	l.proc = proc
	return Spawned{PID: proc.PID()}
}

func (l *Loop) writePIDFile(pid int) {
	if l.cfg.PIDFile == "" {
		return
	}

	data := fmt.Sprintf("%d\n%d\n", os.Getpid(), pid)

	if err := os.WriteFile(l.cfg.PIDFile, []byte(data), 0644); err != nil {
		l.j.Write(&EventPIDFileError{
			File:  l.cfg.PIDFile,
			Error: errors.Wrap(err, "failed to write pid file").Error(),
		})
	}
}

func (l *Loop) poll(timeout time.Duration) Observation {
	start := time.Now()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-l.proc.Done():
	case <-l.src.Woken():
	case <-timer.C:
	}

	obs := Polled{Elapsed: time.Since(start)}
	if obs.Elapsed > timeout {
		obs.Elapsed = timeout
	}

	select {
	case <-l.proc.Done():
		obs.Exited = true
		obs.ExitCode = l.proc.ExitStatus().Code
	default:
	}

	obs.StopRequested = l.src.StopRequested()
	obs.StopMarker = marker.IsSignaled(l.markers.Stop)
	obs.ReloadMarker = marker.IsSignaled(l.markers.Reload)

	return obs
}

func (l *Loop) terminate() Observation {
	proc := l.proc

	if err := proc.Terminate(); err == nil {
		timer := time.NewTimer(l.KillGrace)
		defer timer.Stop()

		select {
		case <-proc.Done():
			return Terminated{ExitCode: proc.ExitStatus().Code}
		case <-timer.C:
		}
	}

	if err := proc.Kill(); err != nil {
		if !errors.Is(err, os.ErrProcessDone) {
			select {
			case <-proc.Done():
				return Terminated{ExitCode: proc.ExitStatus().Code}
			default:
				return Terminated{Err: err}
			}
		}

		// The child exited on its own in the meantime. Done closes only
		// once it is reaped.
		timer := time.NewTimer(l.KillGrace)
		defer timer.Stop()

		select {
		case <-proc.Done():
			return Terminated{ExitCode: proc.ExitStatus().Code}
		case <-timer.C:
			return Terminated{Err: err}
		}
	}

	<-proc.Done()
	return Terminated{Killed: true}
}

func (l *Loop) settle() Observation {
	time.Sleep(l.SettleDelay)
	return Settled{StopRequested: l.src.StopRequested()}
}
