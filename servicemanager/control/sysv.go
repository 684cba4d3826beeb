//go:build !windows && !darwin

package control

import (
	"context"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
)

// DefaultInitDir is where SysV init scripts are installed.
const DefaultInitDir = "/etc/init.d"

// sysv registers services as SysV init scripts and runs the supervisor as a
// detached daemon.
type sysv struct {
	initDir string
}

func newManager(opts Options) Manager {
	dir := opts.InitDir
	if dir == "" {
		dir = DefaultInitDir
	}
	return &sysv{initDir: dir}
}

func (m *sysv) scriptPath(name string) string {
	return filepath.Join(m.initDir, name)
}

func (m *sysv) Install(svc Service) error {
	script, err := Render(SysVInitTemplate, svc)
	if err != nil {
		return wrapError(OpInstall, svc.Name, err)
	}

	if err := os.WriteFile(m.scriptPath(svc.Name), script, 0744); err != nil {
		return wrapError(OpInstall, svc.Name, errors.Wrap(err, "failed to write init script"))
	}

	return nil
}

func (m *sysv) Uninstall(svc Service) error {
	err := os.Remove(m.scriptPath(svc.Name))
	if err != nil && !os.IsNotExist(err) {
		return wrapError(OpUninstall, svc.Name, errors.Wrap(err, "failed to remove init script"))
	}
	return nil
}

// Start launches "<Executable> run <Name>" in a new session and waits until
// it has written the pid file.
func (m *sysv) Start(ctx context.Context, svc Service, progress io.Writer) error {
	if pid, ok := runningSupervisor(svc.PIDFile); ok {
		return wrapError(OpStart, svc.Name,
			errors.Wrapf(ErrAlreadyRunning, "via service manager process %d", pid))
	}

	dir := svc.Dir
	if dir == "" {
		dir = "/"
	}

	cmd := osexec.Command(svc.Executable, "run", svc.Name)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return wrapError(OpStart, svc.Name, errors.Wrap(err, "failed to launch service manager"))
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	fmt.Fprint(progress, "Starting service...")

	if svc.PIDFile == "" {
		// Nothing to confirm the start with.
		fmt.Fprintln(progress, "\nService started.")
		return nil
	}

	var exitErr error
	started := func() bool {
		select {
		case err := <-exited:
			exitErr = errors.Errorf("service manager exited early: %v", err)
			if err == nil {
				exitErr = errors.New("service manager exited early")
			}
			return true
		default:
		}

		pid, _, err := ReadPIDFile(svc.PIDFile)
		return err == nil && pid == cmd.Process.Pid
	}

	if err := waitUntil(ctx, progress, started); err != nil {
		return wrapError(OpStart, svc.Name, err)
	}
	if exitErr != nil {
		fmt.Fprintln(progress)
		return wrapError(OpStart, svc.Name, exitErr)
	}

	fmt.Fprintln(progress, "\nService successfully started.")
	return nil
}

func (m *sysv) Stop(ctx context.Context, svc Service, progress io.Writer) error {
	return wrapError(OpStop, svc.Name, terminateSupervisor(ctx, svc, progress))
}

func (m *sysv) Status(svc Service) (Status, error) {
	st, err := pidFileStatus(svc)
	return st, wrapError(OpStatus, svc.Name, err)
}
