package exec

import (
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// TerminateGrace is zero: Windows processes are killed right away.
const TerminateGrace time.Duration = 0

// errorElevationRequired is ERROR_ELEVATION_REQUIRED.
const errorElevationRequired = syscall.Errno(740)

func terminate(p *os.Process) error {
	return ErrTerminateUnsupported
}

// IsElevationRequired reports whether err means the supervisor lacks the
// privileges to start the process.
func IsElevationRequired(err error) bool {
	return errors.Is(err, errorElevationRequired)
}

// ElevationHint is appended to spawn errors for which IsElevationRequired
// is true.
const ElevationHint = "The program must be run as Administrator."

func sysProcAttr(cmd Command) (*syscall.SysProcAttr, error) {
	return &syscall.SysProcAttr{
		CreationFlags: cmd.Priority | cmd.CreateFlags,
	}, nil
}
