package engine

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/anvorisk/queuectl/internal"
)

const (
	stopped = iota
	started
)

var (
	// ErrDoubleStarted is returned when Start is called on a worker that
	// has already been started.
	//
	// Workers follow a strict lifecycle and must not be started more
	// than once without being stopped.
	ErrDoubleStarted = errors.New("worker double start")

	// ErrDoubleStopped is returned when Stop is called on a worker that
	// is not currently running.
	ErrDoubleStopped = errors.New("worker double stop")

	// ErrStopTimeout is returned when a worker fails to shut down within
	// the provided timeout during Stop.
	//
	// In this case, the worker may still be terminating in the background.
	ErrStopTimeout = errors.New("worker stop timeout")
)

// lcBase is the shared started/stopped guard behind both Worker and
// CleanWorker's Start/Stop methods: it refuses a double start, and
// Stop blocks only until the loop the caller started actually
// returns, not merely until it has been asked to.
type lcBase struct {
	state atomic.Int32
}

func (lb *lcBase) tryStart() error {
	if !lb.state.CompareAndSwap(stopped, started) {
		return ErrDoubleStarted
	}
	return nil
}

func (lb *lcBase) tryStop(timeout time.Duration, df internal.DoneFunc) error {
	if !lb.state.CompareAndSwap(started, stopped) {
		return ErrDoubleStopped
	}
	done := df()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// runGuarded transitions into the started state and runs fn on a new
// goroutine, recovering any panic so that a single misbehaving job
// handler degrades to a logged error instead of taking the calling
// process down with it. This gives Start/Stop callers the same crash
// isolation Supervisor already gives the Worker goroutines it spawns
// directly. The returned DoneChan closes once fn (or the recovered
// panic) returns.
func (lb *lcBase) runGuarded(log *slog.Logger, fn func()) (internal.DoneChan, error) {
	if err := lb.tryStart(); err != nil {
		return nil, err
	}
	done := make(internal.DoneChan)
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				log.Error("background loop panicked, exiting", "panic", r)
			}
		}()
		fn()
	}()
	return done, nil
}
