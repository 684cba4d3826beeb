package shutdown

import (
	"os"
	"os/signal"
)

// Notify routes console interrupts into src until the returned function is
// called. A second interrupt in a row exits the process the way the default
// console handler would.
func Notify(src *Source) (stop func()) {
	stops := make(chan os.Signal, 4)
	signal.Notify(stops, os.Interrupt)

	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)

		var seen bool
		for {
			select {
			case <-done:
				return
			case <-stops:
				if seen {
					signal.Reset(os.Interrupt)
					os.Exit(1)
				}
				seen = true
				src.RequestStop()
			}
		}
	}()

	return func() {
		signal.Stop(stops)
		close(done)
		<-exited
	}
}
