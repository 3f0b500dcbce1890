package sqlite

import (
	"context"
	"time"

	"github.com/anvorisk/queuectl/job"
	"github.com/anvorisk/queuectl/store"
)

// Clean implements store.Cleaner: it only ever deletes rows already
// in a terminal state, and never touches
// Pending/Scheduled/Processing/Failed jobs.
func (s *Store) Clean(ctx context.Context, status job.Status, before *time.Time) (int64, error) {
	if status != job.Unknown && status != job.Completed && status != job.Dead {
		return 0, store.ErrBadStatus
	}
	q := s.db.NewDelete().Model((*jobModel)(nil))
	if status != job.Unknown {
		q = q.Where("status = ?", status)
	} else {
		q = q.Where("status IN (?, ?)", job.Completed, job.Dead)
	}
	if before != nil {
		q = q.Where("updated_at <= ?", before.UTC())
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return getAffected(res), nil
}
