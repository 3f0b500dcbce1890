package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/anvorisk/queuectl/executor"
	"github.com/anvorisk/queuectl/job"
	"github.com/anvorisk/queuectl/store"

	"github.com/anvorisk/queuectl/internal"
)

const (
	// idlePoll is how often an Idle Worker calls Store.Lease when no
	// job was returned; the sleep is interrupted immediately by
	// shutdown, so this only bounds latency, not responsiveness.
	idlePoll = time.Second

	// busyPoll bounds how often a Busy Worker checks its child's exit
	// status and the elapsed-timeout condition; timeouts are enforced
	// at <=100ms granularity.
	busyPoll = 100 * time.Millisecond

	// terminateGrace is how long a Worker waits after asking a timed-out
	// child to exit gracefully before escalating to a forceful kill.
	terminateGrace = time.Second
)

// WorkerConfig configures a single Worker's polling cadence. Zero
// values fall back to the defaults above.
type WorkerConfig struct {
	IdlePoll time.Duration
	BusyPoll time.Duration
}

// Worker is a single-slot Idle/Busy/Draining state machine: it leases
// at most one job at a time from a store.Store, hands its command to
// an executor.Executor, enforces the job's timeout, and writes the
// outcome back through Finalize.
type Worker struct {
	lcBase
	id       string
	store    store.Store
	exec     executor.Executor
	log      *slog.Logger
	idlePoll time.Duration
	busyPoll time.Duration
	done     internal.DoneChan
}

// NewWorker creates a Worker identified by id (used only for logging).
// The worker is not started automatically; call Run from a goroutine
// under the Supervisor's shared context.
func NewWorker(id string, st store.Store, ex executor.Executor, config *WorkerConfig, log *slog.Logger) *Worker {
	if config == nil {
		config = &WorkerConfig{}
	}
	idle := config.IdlePoll
	if idle <= 0 {
		idle = idlePoll
	}
	busy := config.BusyPoll
	if busy <= 0 {
		busy = busyPoll
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		id:       id,
		store:    st,
		exec:     ex,
		log:      log.With("worker", id),
		idlePoll: idle,
		busyPoll: busy,
	}
}

// Run executes the Idle/Busy/Draining loop until ctx is cancelled. It
// returns once the worker has drained its in-flight job (if any) and
// left no row in the processing state. Run must be called at most
// once per Worker; calling it again after it returns creates a new
// lifecycle only if Start/Stop have not already been used.
//
// Run is the primitive the Supervisor drives directly (one goroutine
// per Worker, sharing one context); Start/Stop exist for callers that
// want the lcBase double-start/double-stop guards instead.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		j, err := w.store.Lease(ctx)
		if err != nil {
			w.log.Error("lease failed", "error", err)
			w.sleep(ctx, w.idlePoll)
			continue
		}
		if j == nil {
			w.sleep(ctx, w.idlePoll)
			continue
		}
		w.runJob(ctx, j.Id, j.Command, j.Timeout)
	}
}

// runJob drives one leased job from Busy through to Finalize,
// including Draining behavior if ctx is cancelled mid-flight: the
// child is never killed on shutdown, only on its own timeout.
func (w *Worker) runJob(ctx context.Context, id, command string, timeout time.Duration) {
	if err := w.store.MarkStarted(ctx, id); err != nil {
		w.log.Error("mark started failed", "id", id, "error", err)
		w.release(id)
		return
	}

	handle, err := w.exec.Start(&job.Job{Id: id, Command: command})
	if err != nil {
		// A failure to even start the command consumes one attempt and
		// is finalized normally, exactly like a non-zero exit.
		w.log.Warn("executor start failed", "id", id, "error", err)
		w.finalize(ctx, id, false)
		return
	}
	defer handle.Close()

	start := time.Now()
	timedOut := false
	killedAfterTerminate := false

	for {
		code, pollErr := handle.Poll()
		if pollErr == nil {
			success := code == 0 && !timedOut
			w.finalize(ctx, id, success)
			return
		}

		if !timedOut && timeout > 0 && time.Since(start) > timeout {
			timedOut = true
			w.log.Warn("job exceeded timeout, terminating", "id", id, "timeout", timeout)
			_ = handle.Terminate()
		} else if timedOut && !killedAfterTerminate && time.Since(start) > timeout+terminateGrace {
			killedAfterTerminate = true
			w.log.Warn("job ignored terminate, killing", "id", id)
			_ = handle.Kill()
		}

		if ctx.Err() != nil && !timedOut {
			// Draining: a shutdown was signalled while this job is
			// still within its timeout budget. Keep polling until it
			// exits naturally rather than killing it.
			w.sleepUninterruptible(w.busyPoll)
			continue
		}
		w.sleep(ctx, w.busyPoll)
	}
}

func (w *Worker) finalize(ctx context.Context, id string, success bool) {
	if _, err := w.store.Finalize(context.WithoutCancel(ctx), id, success); err != nil {
		w.log.Error("finalize failed", "id", id, "error", err)
		w.release(id)
	}
}

func (w *Worker) release(id string) {
	if err := w.store.Release(context.Background(), id); err != nil {
		w.log.Error("release failed", "id", id, "error", err)
	}
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// sleepUninterruptible is used only while Draining a Busy worker: the
// wait must not be cut short by the very cancellation that put the
// worker into Draining.
func (w *Worker) sleepUninterruptible(d time.Duration) {
	time.Sleep(d)
}

// Start begins Run on an internal goroutine, recovering any panic so
// a single misbehaving job can never take the caller down with it.
// Returns ErrDoubleStarted if already running.
func (w *Worker) Start(ctx context.Context) error {
	done, err := w.runGuarded(w.log, func() { w.Run(ctx) })
	if err != nil {
		return err
	}
	w.done = done
	return nil
}

// Stop waits up to timeout for the worker's Run goroutine to return
// after its context has been cancelled by the caller.
func (w *Worker) Stop(timeout time.Duration) error {
	return w.tryStop(timeout, func() internal.DoneChan { return w.done })
}
