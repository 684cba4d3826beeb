package shutdown

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows/svc"
)

// IsService reports whether the process was started by the service control
// manager.
func IsService() (bool, error) {
	ok, err := svc.IsWindowsService()
	return ok, errors.Wrap(err, "failed to detect service mode")
}

// RunService runs fn under the service control dispatcher as the named
// service. Stop and shutdown requests from the service control manager are
// delivered to src. The exit code of fn is reported as the service's exit
// code and returned.
func RunService(name string, src *Source, fn func() int) (int, error) {
	h := &handler{src: src, fn: fn}

	if err := svc.Run(name, h); err != nil {
		return 1, errors.Wrap(err, "failed to run service dispatcher")
	}

	return h.code, nil
}

type handler struct {
	src  *Source
	fn   func() int
	code int
}

const accepted = svc.AcceptStop | svc.AcceptShutdown

func (h *handler) Execute(_ []string, reqs <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	changes <- svc.Status{State: svc.StartPending}

	exited := make(chan int, 1)
	go func() { exited <- h.fn() }()

	changes <- svc.Status{State: svc.Running, Accepts: accepted}

	for {
		select {
		case code := <-exited:
			h.code = code
			changes <- svc.Status{State: svc.StopPending}
			return false, uint32(code)

		case req := <-reqs:
			switch req.Cmd {
			case svc.Interrogate:
				changes <- req.CurrentStatus
			case svc.Stop, svc.Shutdown:
				changes <- svc.Status{State: svc.StopPending}
				h.src.RequestStop()
			}
		}
	}
}
