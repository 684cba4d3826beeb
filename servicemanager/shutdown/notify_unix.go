//go:build !windows

package shutdown

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// StopSignals request a clean shutdown.
var StopSignals = []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGQUIT}

// WakeSignals only wake the loop.
var WakeSignals = []os.Signal{unix.SIGHUP, unix.SIGCHLD}

// Notify routes the process' signals into src until the returned function is
// called. If the same stop signal arrives twice in a row, its default
// disposition is restored and the signal is raised again, so an impatient
// second Ctrl+C still kills the supervisor.
func Notify(src *Source) (stop func()) {
	stops := make(chan os.Signal, 4)
	wakes := make(chan os.Signal, 4)
	signal.Notify(stops, StopSignals...)
	signal.Notify(wakes, WakeSignals...)

	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		forward(src, stops, wakes, done, raise)
	}()

	return func() {
		signal.Stop(stops)
		signal.Stop(wakes)
		close(done)
		<-exited
	}
}

func raise(sig os.Signal) {
	signal.Reset(sig)
	unix.Kill(unix.Getpid(), sig.(unix.Signal))
}

func forward(src *Source, stops, wakes <-chan os.Signal, done <-chan struct{}, fallback func(os.Signal)) {
	var last os.Signal

	for {
		select {
		case <-done:
			return
		case sig := <-stops:
			if sig == last {
				fallback(sig)
				continue
			}
			last = sig
			src.RequestStop()
		case sig := <-wakes:
			last = sig
			src.Wake()
		}
	}
}
