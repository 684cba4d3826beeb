//go:build !windows

package control

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// processAlive reports whether pid exists. A process we may not signal
// still exists.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// runningSupervisor returns the supervisor PID from the pid file if that
// process is alive.
func runningSupervisor(pidFile string) (int, bool) {
	pid, _, err := ReadPIDFile(pidFile)
	if err != nil || !processAlive(pid) {
		return 0, false
	}
	return pid, true
}

func pidFileStatus(svc Service) (Status, error) {
	if _, ok := runningSupervisor(svc.PIDFile); ok {
		return StatusRunning, nil
	}
	return StatusStopped, nil
}

// terminateSupervisor asks the supervisor recorded in the pid file to shut
// down and waits until it's gone.
func terminateSupervisor(ctx context.Context, svc Service, progress io.Writer) error {
	pid, ok := runningSupervisor(svc.PIDFile)
	if !ok {
		return ErrNotRunning
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return errors.Wrapf(err, "failed to signal service manager process %d", pid)
	}

	fmt.Fprint(progress, "Stopping service...")

	if err := waitUntil(ctx, progress, func() bool { return !processAlive(pid) }); err != nil {
		return err
	}

	fmt.Fprintln(progress, "\nService successfully stopped.")
	return nil
}

// waitUntil polls cond every PollInterval, printing a dot per failed check.
func waitUntil(ctx context.Context, progress io.Writer, cond func() bool) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for !cond() {
		select {
		case <-ctx.Done():
			fmt.Fprintln(progress)
			return ctx.Err()
		case <-ticker.C:
			fmt.Fprint(progress, ".")
		}
	}

	return nil
}
