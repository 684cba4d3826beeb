// Package shutdown turns OS stop requests into a flag and a wake channel
// that the run loop polls. Everything that feeds a Source only sets state:
// no logging and no file I/O happen on the delivery path.
package shutdown

import "sync/atomic"

// Source is the run loop's view of external shutdown requests. The zero
// value is not usable; use NewSource.
type Source struct {
	stopped atomic.Bool
	wake    chan struct{}
}

// NewSource creates a Source with no stop requested.
func NewSource() *Source {
	return &Source{wake: make(chan struct{}, 1)}
}

// RequestStop records a stop request and wakes the loop. Calling it more
// than once is fine.
func (s *Source) RequestStop() {
	s.stopped.Store(true)
	s.Wake()
}

// StopRequested reports whether a stop was ever requested.
func (s *Source) StopRequested() bool {
	return s.stopped.Load()
}

// Wake interrupts the loop's current wait without requesting a stop. Wakes
// coalesce: at most one is pending at a time.
func (s *Source) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Woken receives once per pending wake.
func (s *Source) Woken() <-chan struct{} {
	return s.wake
}
