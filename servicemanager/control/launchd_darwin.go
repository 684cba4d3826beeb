package control

import (
	"context"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"path/filepath"

	"github.com/pkg/errors"
)

// DefaultInitDir is where launchd daemon plists are installed.
const DefaultInitDir = "/Library/LaunchDaemons"

// launchctl is the launchd control tool.
const launchctl = "/bin/launchctl"

// launchd registers services as launchd daemons.
type launchd struct {
	dir string
}

func newManager(opts Options) Manager {
	dir := opts.InitDir
	if dir == "" {
		dir = DefaultInitDir
	}
	return &launchd{dir: dir}
}

func (m *launchd) plistPath(name string) string {
	return filepath.Join(m.dir, LaunchdLabel(name)+".plist")
}

func (m *launchd) Install(svc Service) error {
	plist, err := Render(LaunchdTemplate, svc)
	if err != nil {
		return wrapError(OpInstall, svc.Name, err)
	}

	if err := os.WriteFile(m.plistPath(svc.Name), plist, 0644); err != nil {
		return wrapError(OpInstall, svc.Name, errors.Wrap(err, "failed to write launchd plist"))
	}

	return nil
}

func (m *launchd) Uninstall(svc Service) error {
	err := os.Remove(m.plistPath(svc.Name))
	if err != nil && !os.IsNotExist(err) {
		return wrapError(OpUninstall, svc.Name, errors.Wrap(err, "failed to remove launchd plist"))
	}
	return nil
}

func (m *launchd) Start(ctx context.Context, svc Service, progress io.Writer) error {
	if pid, ok := runningSupervisor(svc.PIDFile); ok {
		return wrapError(OpStart, svc.Name,
			errors.Wrapf(ErrAlreadyRunning, "via service manager process %d", pid))
	}

	fmt.Fprint(progress, "Starting service...")

	if err := m.launchctl(ctx, "load", svc.Name); err != nil {
		fmt.Fprintln(progress)
		return wrapError(OpStart, svc.Name, err)
	}

	fmt.Fprintln(progress, "\nService successfully started.")
	return nil
}

func (m *launchd) Stop(ctx context.Context, svc Service, progress io.Writer) error {
	fmt.Fprint(progress, "Stopping service...")

	if err := m.launchctl(ctx, "unload", svc.Name); err != nil {
		fmt.Fprintln(progress)
		return wrapError(OpStop, svc.Name, err)
	}

	fmt.Fprintln(progress, "\nService successfully stopped.")
	return nil
}

func (m *launchd) Status(svc Service) (Status, error) {
	st, err := pidFileStatus(svc)
	return st, wrapError(OpStatus, svc.Name, err)
}

func (m *launchd) launchctl(ctx context.Context, verb, name string) error {
	cmd := osexec.CommandContext(ctx, launchctl, verb, "-w", m.plistPath(name))

	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) {
			return errors.Errorf("launchctl %s exited with code %d: %s",
				verb, exitErr.ExitCode(), out)
		}
		return errors.Wrapf(err, "failed to run launchctl %s", verb)
	}

	return nil
}
