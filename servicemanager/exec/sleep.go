package exec

import (
	"sync"
	"sync/atomic"
	"time"
)

// Forever is a duration long enough to never elapse in a test.
const Forever = time.Duration(1<<63 - 1)

type sleepProcess struct {
	once  sync.Once
	done  chan struct{}
	timer *time.Timer
	delay time.Duration

	pid  int
	code int32
	exit atomic.Int32

	terminated atomic.Int32
	killed     atomic.Int32
}

// SleepProcess is a fake process returned by NewSleepProcess.
type SleepProcess interface {
	Process
	// Terminations returns how many times Terminate was called.
	Terminations() int
	// Kills returns how many times Kill was called.
	Kills() int
}

// NewSleepProcess creates a process that only idles. It is used for testing.
// The process exits with code after dura. Terminate makes it exit with code
// 0 after delay, so a delay of Forever makes it ignore termination; Kill
// makes it exit with -1 immediately.
func NewSleepProcess(dura, delay time.Duration, pid, code int) SleepProcess {
	mock := &sleepProcess{
		done:  make(chan struct{}),
		timer: time.NewTimer(dura),
		delay: delay,
		pid:   pid,
		code:  int32(code),
	}
	mock.exit.Store(-2)

	go mock.run()
	return mock
}

func (mock *sleepProcess) run() {
	<-mock.timer.C
	mock.finish(mock.code)
}

// finish sets the exit code if it's still unset (-2) and marks the process
// as exited.
func (mock *sleepProcess) finish(code int32) {
	if !mock.exit.CompareAndSwap(-2, code) {
		return
	}

	mock.once.Do(func() {
		close(mock.done)
		// Release run if it's still waiting.
		mock.timer.Reset(0)
	})
}

func (mock *sleepProcess) PID() int { return mock.pid }

func (mock *sleepProcess) Done() <-chan struct{} { return mock.done }

func (mock *sleepProcess) Terminate() error {
	mock.terminated.Add(1)

	if mock.delay <= 0 {
		mock.finish(0)
		return nil
	}

	go func() {
		t := time.NewTimer(mock.delay)
		defer t.Stop()

		select {
		case <-t.C:
			mock.finish(0)
		case <-mock.done:
		}
	}()

	return nil
}

func (mock *sleepProcess) Kill() error {
	mock.killed.Add(1)
	mock.finish(-1)
	return nil
}

func (mock *sleepProcess) ExitStatus() ExitStatus {
	return ExitStatus{
		PID:  mock.pid,
		Code: int(mock.exit.Load()),
	}
}

func (mock *sleepProcess) Terminations() int { return int(mock.terminated.Load()) }

func (mock *sleepProcess) Kills() int { return int(mock.killed.Load()) }
