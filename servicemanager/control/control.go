// Package control registers services with the operating system's service
// manager and starts, stops and queries them through it.
package control

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
)

// Status is the state of a registered service.
type Status int

const (
	StatusStopped Status = iota
	StatusRunning
	// StatusPending means the service is starting or stopping.
	StatusPending
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusRunning:
		return "running"
	case StatusPending:
		return "pending"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Op names the control operation that failed.
type Op string

const (
	OpInstall   Op = "install"
	OpUninstall Op = "uninstall"
	OpStart     Op = "start"
	OpStop      Op = "stop"
	OpStatus    Op = "query"
)

// Error is returned by every Manager method.
type Error struct {
	Op   Op
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to %s service %q: %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrapError(op Op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Name: name, Err: err}
}

var (
	// ErrAlreadyRunning is returned by Start if the service is running.
	ErrAlreadyRunning = errors.New("service is already running")
	// ErrNotRunning is returned by Stop if the service isn't running.
	ErrNotRunning = errors.New("service is not running")
)

// Service identifies a service to the control plane.
type Service struct {
	Name string
	// Executable is the servicemanager binary that runs the service.
	Executable string
	// PIDFile is the service's pid file, if any.
	PIDFile string
	// Dir is the service's working directory, if any.
	Dir string
}

// Manager is the operating system's service manager.
type Manager interface {
	// Install registers the service so that the system runs
	// "<Executable> run <Name>".
	Install(Service) error
	// Uninstall removes the registration. The service should be stopped
	// first.
	Uninstall(Service) error
	// Start starts the service and waits until it runs. Progress is printed
	// into progress.
	Start(ctx context.Context, svc Service, progress io.Writer) error
	// Stop stops the service and waits until it is gone. Progress is printed
	// into progress.
	Stop(ctx context.Context, svc Service, progress io.Writer) error
	// Status queries the service's state.
	Status(Service) (Status, error)
}

// Options configures New.
type Options struct {
	// InitDir overrides where registrations are written: the init script
	// directory for SysV init and the daemon plist directory for launchd.
	// It is unused on Windows.
	InitDir string
}

// PollInterval is how often Start and Stop check on the service. One
// progress dot is printed per check.
var PollInterval = time.Second

// New returns the Manager of the running operating system.
func New(opts Options) Manager {
	return newManager(opts)
}
