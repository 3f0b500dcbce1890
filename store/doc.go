// Package store defines the storage contract for queuectl: the only
// component permitted to write the jobs table, and the only source of
// truth for job state.
//
// Store exposes atomic lease, finalize, requeue, release and
// config-read operations. All operations that read then
// write (Lease, Finalize on failure, RecoverOrphans, Requeue) must be
// serializable with respect to each other so two concurrent pollers
// can never observe and claim the same eligible row.
//
// Cleaner is a separate, narrower contract for retention cleanup: it
// may only delete jobs already in a terminal state.
//
// Implementations are expected to generate every timestamp themselves;
// callers never supply CreatedAt/UpdatedAt/etc.
package store
