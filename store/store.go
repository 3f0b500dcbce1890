package store

import (
	"context"
	"errors"
	"time"

	"github.com/anvorisk/queuectl/job"
)

var (
	// ErrDuplicateID is returned by Enqueue when id already exists.
	ErrDuplicateID = errors.New("store: duplicate job id")

	// ErrNotFound is returned when an operation targets a job that does
	// not exist, or exists but is not in the state the operation
	// requires (e.g. Requeue of an id that is not failed/dead).
	ErrNotFound = errors.New("store: job not found")

	// ErrBadStatus is returned by Cleaner.Clean when asked to delete a
	// non-terminal status.
	ErrBadStatus = errors.New("store: status is not terminal")
)

// EnqueueOptions carries the optional fields of an enqueue request.
// RunAt must already be resolved to a UTC instant (or nil for "run
// now"); parsing the wire string is policy.ParseRunAt's job, not the
// store's.
type EnqueueOptions struct {
	MaxRetries *uint32
	RunAt      *time.Time
	Priority   int
	Timeout    time.Duration
}

// Store is the single component that writes the jobs table. All
// operations below must be safe to call concurrently from multiple
// workers and CLI invocations against the same database file.
type Store interface {
	// Enqueue inserts a new job row. Returns ErrDuplicateID if id
	// already exists. If opts.MaxRetries is nil, the store reads the
	// max_retries config default. If opts.Timeout is zero, it defaults
	// to job.DefaultTimeout. Initial status is job.Scheduled if RunAt is
	// a future instant, else job.Pending.
	Enqueue(ctx context.Context, id, command string, opts EnqueueOptions) (*job.Job, error)

	// Lease atomically selects the highest-priority, oldest eligible
	// job (status Pending, or Scheduled/Failed with RunAt <= now),
	// transitions it to Processing and returns it. Returns (nil, nil)
	// if no job is eligible. The select and the update happen inside
	// one transaction holding a write lock for its duration, so two
	// concurrent Lease calls can never return the same row.
	Lease(ctx context.Context) (*job.Job, error)

	// MarkStarted sets StartedAt on a leased job. Split from Lease
	// because the lease transaction must stay short.
	MarkStarted(ctx context.Context, id string) error

	// Finalize implements the Processing -> {Completed, Failed, Dead}
	// transitions. On success it sets Completed (without incrementing
	// Attempts, by design — see DESIGN.md). On failure it increments
	// Attempts and, depending on the new value against MaxRetries,
	// either schedules a backoff retry (Failed) or moves the job to the
	// dead-letter state (Dead). Returns the job's post-finalize
	// snapshot.
	Finalize(ctx context.Context, id string, success bool) (*job.Job, error)

	// Release transitions a job from Processing back to Pending. It is
	// a no-op (no error) if the row is in any other state. Used on
	// graceful worker shutdown and after unexpected worker errors.
	Release(ctx context.Context, id string) error

	// RecoverOrphans moves every row currently Processing back to
	// Pending with RunAt cleared. Called once by the Supervisor at
	// startup, before any worker leases, since no live worker can hold
	// a lease left behind by a crashed process.
	RecoverOrphans(ctx context.Context) (int64, error)

	// Requeue transitions a Failed or Dead job back to Pending,
	// resetting Attempts to 0 and clearing RunAt. Returns ErrNotFound
	// if id does not exist in one of those states.
	Requeue(ctx context.Context, id string) error

	// RetryDlq is a Requeue specialized to the Dead state only,
	// matching the `dlq retry` CLI command.
	RetryDlq(ctx context.Context, id string) error

	// Delete unconditionally removes a job row regardless of status.
	Delete(ctx context.Context, id string) error

	// GetByState returns every job currently in the given status,
	// ordered the same way Lease would consider them
	// (priority DESC, created_at ASC).
	GetByState(ctx context.Context, status job.Status) ([]*job.Job, error)

	// Summary returns a per-state job count.
	Summary(ctx context.Context) (job.Summary, error)

	// GetConfig returns a single config value, or ("", false) if unset.
	GetConfig(ctx context.Context, key string) (string, bool, error)

	// SetConfig sets a config value. Implementations only need to
	// persist the two keys the engine reads (max_retries, backoff_base);
	// rejecting other keys is a CLI-layer concern.
	SetConfig(ctx context.Context, key, value string) error

	// GetAllConfig returns every stored config key/value pair.
	GetAllConfig(ctx context.Context) (map[string]string, error)

	// Close releases the underlying database handle.
	Close() error
}

// Cleaner permanently deletes jobs already in a terminal state
// (Completed or Dead). It is a narrower, administrative-only contract
// separate from Store so that retention sweeps can never touch a
// Pending/Scheduled/Processing/Failed row.
type Cleaner interface {
	// Clean deletes jobs matching status (job.Unknown means both
	// Completed and Dead) whose UpdatedAt is at or before *before, if
	// before is non-nil. It returns the number of deleted rows. Clean
	// returns ErrBadStatus if status refers to a non-terminal state.
	Clean(ctx context.Context, status job.Status, before *time.Time) (int64, error)
}
