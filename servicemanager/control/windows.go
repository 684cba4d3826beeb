//go:build windows

package control

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// DefaultInitDir is unused on Windows.
const DefaultInitDir = ""

// scm registers services with the Windows Service Control Manager.
type scm struct{}

func newManager(Options) Manager { return scm{} }

func (scm) Install(s Service) error {
	m, err := mgr.Connect()
	if err != nil {
		return wrapError(OpInstall, s.Name, errors.Wrap(err, "failed to connect to service control manager"))
	}
	defer m.Disconnect()

	cfg := mgr.Config{
		StartType:   mgr.StartAutomatic,
		DisplayName: s.Name,
	}

	service, err := m.CreateService(s.Name, s.Executable, cfg, "run", s.Name)
	if err != nil {
		return wrapError(OpInstall, s.Name, err)
	}
	service.Close()

	return nil
}

func (scm) Uninstall(s Service) error {
	return withService(OpUninstall, s.Name, func(service *mgr.Service) error {
		return service.Delete()
	})
}

func (scm) Start(ctx context.Context, s Service, progress io.Writer) error {
	return withService(OpStart, s.Name, func(service *mgr.Service) error {
		st, err := service.Query()
		if err != nil {
			return err
		}
		if st.State == svc.Running {
			return errors.Wrapf(ErrAlreadyRunning, "via service manager process %d", st.ProcessId)
		}

		if err := service.Start(); err != nil {
			return err
		}

		fmt.Fprint(progress, "Starting service...")

		if err := waitState(ctx, service, progress, svc.Running); err != nil {
			return err
		}

		fmt.Fprintln(progress, "\nService successfully started.")
		return nil
	})
}

func (scm) Stop(ctx context.Context, s Service, progress io.Writer) error {
	return withService(OpStop, s.Name, func(service *mgr.Service) error {
		st, err := service.Control(svc.Stop)
		if err != nil {
			if errors.Is(err, windows.ERROR_SERVICE_NOT_ACTIVE) {
				return ErrNotRunning
			}
			return err
		}

		fmt.Fprint(progress, "Stopping service...")

		if st.State != svc.Stopped {
			if err := waitState(ctx, service, progress, svc.Stopped); err != nil {
				return err
			}
		}

		fmt.Fprintln(progress, "\nService successfully stopped.")
		return nil
	})
}

func (scm) Status(s Service) (Status, error) {
	var status Status

	err := withService(OpStatus, s.Name, func(service *mgr.Service) error {
		st, err := service.Query()
		if err != nil {
			return err
		}

		switch st.State {
		case svc.Stopped:
			status = StatusStopped
		case svc.Running:
			status = StatusRunning
		default:
			status = StatusPending
		}

		return nil
	})

	return status, err
}

func withService(op Op, name string, fn func(*mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return wrapError(op, name, errors.Wrap(err, "failed to connect to service control manager"))
	}
	defer m.Disconnect()

	service, err := m.OpenService(name)
	if err != nil {
		return wrapError(op, name, err)
	}
	defer service.Close()

	return wrapError(op, name, fn(service))
}

func waitState(ctx context.Context, service *mgr.Service, progress io.Writer, want svc.State) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		st, err := service.Query()
		if err != nil {
			fmt.Fprintln(progress)
			return err
		}
		if st.State == want {
			return nil
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(progress)
			return ctx.Err()
		case <-ticker.C:
			fmt.Fprint(progress, ".")
		}
	}
}
