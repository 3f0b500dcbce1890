// Package job defines the stateful representation of a queued shell
// command within the queuectl lifecycle.
//
// A Job is the only first-class entity the engine persists. It carries
// both the caller-supplied command and the scheduling/retry metadata
// maintained by the store and worker loop: Status, Attempts,
// MaxRetries, Priority, Timeout and the RunAt/CreatedAt/UpdatedAt/
// StartedAt/CompletedAt timestamps.
//
// Job values returned by a store.Store are snapshots. Mutating them
// does not change persisted state; transitions happen only through
// store.Store operations.
package job
