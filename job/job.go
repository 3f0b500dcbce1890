package job

import "time"

// Job represents a shell command managed by the queue storage.
//
// CreatedAt is set on insert and is immutable. UpdatedAt is touched on
// every state transition. StartedAt is set when the current attempt
// begins (by Store.MarkStarted), separately from the lease transition
// itself, because the lease transaction must stay short. CompletedAt is
// non-nil if and only if Status is Completed.
//
// Job values should be treated as snapshots of storage state. Mutating
// fields directly does not change the underlying queue state;
// transitions must be performed through store.Store operations.
type Job struct {
	Id      string
	Command string

	Status     Status
	Attempts   uint32
	MaxRetries uint32
	Priority   int
	Timeout    time.Duration

	RunAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	StartedAt   *time.Time
	CompletedAt *time.Time
}

// DefaultTimeout is the per-job wall-clock budget when the caller
// omits Timeout (300s).
const DefaultTimeout = 300 * time.Second

// Summary is a per-state job count, as returned by store.Store.Summary.
type Summary map[Status]int64

// Total returns the number of jobs across every state in the summary.
func (s Summary) Total() int64 {
	var total int64
	for _, n := range s {
		total += n
	}
	return total
}
