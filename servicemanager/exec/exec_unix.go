//go:build !windows

package exec

import (
	"os"
	"os/user"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// TerminateGrace is how long a terminated process is given to exit before
// it is killed.
const TerminateGrace = 3 * time.Second

func terminate(p *os.Process) error {
	return errors.Wrap(p.Signal(unix.SIGTERM), "failed to send SIGTERM")
}

// IsElevationRequired reports whether err means the supervisor lacks the
// privileges to start the process as configured.
func IsElevationRequired(err error) bool {
	return errors.Is(err, unix.EPERM)
}

// ElevationHint is appended to spawn errors for which IsElevationRequired
// is true.
const ElevationHint = "The program must be run as root."

func sysProcAttr(cmd Command) (*syscall.SysProcAttr, error) {
	attr := &syscall.SysProcAttr{}
	platformAttr(attr)

	if cmd.User == "" && cmd.Group == "" {
		return attr, nil
	}

	cred := &syscall.Credential{
		Uid: uint32(os.Getuid()),
		Gid: uint32(os.Getgid()),
	}

	if cmd.User != "" {
		u, err := user.Lookup(cmd.User)
		if err != nil {
			return nil, errors.Wrapf(err, "unknown user %q", cmd.User)
		}
		uid, err := strconv.ParseUint(u.Uid, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid uid for user %q", cmd.User)
		}
		cred.Uid = uint32(uid)
	}

	if cmd.Group != "" {
		g, err := user.LookupGroup(cmd.Group)
		if err != nil {
			return nil, errors.Wrapf(err, "unknown group %q", cmd.Group)
		}
		gid, err := strconv.ParseUint(g.Gid, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid gid for group %q", cmd.Group)
		}
		cred.Gid = uint32(gid)
	}

	// The child drops its supplementary groups, then sets the group before
	// the user so that it can still change groups.
	attr.Credential = cred
	return attr, nil
}
