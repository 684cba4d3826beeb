package servicemanager

import (
	"context"

	"github.com/pkg/errors"

	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/exec"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/serviceinfo"
)

// ErrUnknownAction is returned by RunAction if the service has no such
// action.
var ErrUnknownAction = errors.New("unknown action")

// RunAction runs the named custom action of the service in its working
// directory and returns the action's exit code. It doesn't touch the run
// loop of the service in any way. The action is killed if ctx is canceled.
func RunAction(ctx context.Context, cfg serviceinfo.Config, name string, spawner exec.Spawner) (int, error) {
	action, ok := cfg.Action(name)
	if !ok {
		return 1, errors.Wrapf(ErrUnknownAction, "%q", name)
	}
	if len(action.Command) == 0 {
		return 1, errors.Errorf("action %q has an empty command", name)
	}

	proc, err := spawner.Start(exec.Command{
		Argv:        action.Command,
		Dir:         cfg.Dir,
		Priority:    cfg.Priority,
		CreateFlags: cfg.CreateFlags,
	})
	if err != nil {
		return 1, errors.Wrap(err, "failed to start action")
	}

	select {
	case <-proc.Done():
	case <-ctx.Done():
		proc.Kill()
		<-proc.Done()
		return 1, ctx.Err()
	}

	status := proc.ExitStatus()
	if status.Error != nil {
		return 1, errors.Wrap(status.Error, "failed to wait for action")
	}

	return exitCode(status.Code), nil
}
