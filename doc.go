// Package engine implements the Worker and Supervisor components of a
// durable, local background-job queue.
//
// # Overview
//
// Jobs are enqueued through a store.Store against a single embedded
// SQL database. A Supervisor starts a fleet of Worker goroutines, each
// a single-slot state machine with three states: Idle, Busy, Draining.
// A Worker leases at most one job at a time from the Store, hands its
// command to an executor.Executor, and writes the outcome back through
// the Store, consulting the policy package for retry/backoff/DLQ
// decisions.
//
// # State machine
//
//	pending    -> processing
//	scheduled  -> processing
//	failed     -> processing
//	processing -> completed
//	processing -> failed     (retries remain)
//	processing -> dead       (retries exhausted)
//	processing -> pending    (via release, crash/shutdown recovery)
//	dead       -> pending    (via RetryDlq)
//	failed     -> pending    (via Requeue)
//
// completed and dead are terminal.
//
// # Shutdown
//
// A Worker that is Idle when shutdown is signalled stops immediately.
// A Worker that is Busy keeps polling its child until it exits
// naturally; the child is never killed on shutdown. A Worker never
// leaves a row in processing when it stops: any unexpected exit path
// releases the lease back to the Store.
package engine
