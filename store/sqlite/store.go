package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/anvorisk/queuectl/job"
	"github.com/anvorisk/queuectl/policy"
	"github.com/anvorisk/queuectl/store"

	"github.com/uptrace/bun"
)

const (
	defaultMaxRetries  = 3
	configMaxRetries   = "max_retries"
	configBackoffBase  = "backoff_base"
)

// Store implements store.Store and store.Cleaner using bun against a
// modernc.org/sqlite database, as a single type rather than one per
// narrow interface.
type Store struct {
	db  *bun.DB
	log *slog.Logger
}

// New wraps an already-opened, already-initialized *bun.DB (see Open)
// as a store.Store.
func New(db *bun.DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, log: log}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

func (s *Store) maxRetriesDefault(ctx context.Context) uint32 {
	v, ok, err := s.GetConfig(ctx, configMaxRetries)
	if err != nil || !ok {
		return defaultMaxRetries
	}
	parsed, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		s.log.Warn("invalid max_retries config, using default", "value", v)
		return defaultMaxRetries
	}
	return uint32(parsed)
}

func (s *Store) backoffBase(ctx context.Context, tx bun.IDB) int {
	var m configModel
	err := tx.NewSelect().Model(&m).Where("key = ?", configBackoffBase).Scan(ctx)
	if err != nil {
		return policy.DefaultBackoffBase
	}
	base, err := strconv.Atoi(m.Value)
	if err != nil {
		s.log.Warn("invalid backoff_base config, using default", "value", m.Value)
		return policy.DefaultBackoffBase
	}
	return base
}

// Enqueue implements store.Store.
func (s *Store) Enqueue(ctx context.Context, id, command string, opts store.EnqueueOptions) (*job.Job, error) {
	now := time.Now().UTC()

	maxRetries := uint32(0)
	if opts.MaxRetries != nil {
		maxRetries = *opts.MaxRetries
	} else {
		maxRetries = s.maxRetriesDefault(ctx)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = job.DefaultTimeout
	}

	status := job.Pending
	var runAt *time.Time
	if opts.RunAt != nil {
		status = job.Scheduled
		t := opts.RunAt.UTC()
		runAt = &t
	}

	m := &jobModel{
		Id:         id,
		Command:    command,
		Status:     status,
		Attempts:   0,
		MaxRetries: maxRetries,
		Priority:   opts.Priority,
		TimeoutSec: int64(timeout / time.Second),
		RunAt:      runAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateID
		}
		return nil, err
	}
	return m.toJob(), nil
}

// Lease implements store.Store. The selection and the transition to
// Processing happen inside a single UPDATE ... WHERE id IN (subquery)
// RETURNING statement, so they are atomic with respect to any other
// Lease call: SQLite executes one statement as one implicit
// transaction, and the connection pool is capped to a single
// connection (see Open), so two concurrent Lease calls can never
// observe and claim the same row without needing to hand-issue BEGIN
// IMMEDIATE (bun's transaction API does not expose that
// SQLite-specific verb).
func (s *Store) Lease(ctx context.Context) (*job.Job, error) {
	now := time.Now().UTC()
	sub := s.db.NewSelect().
		Model((*jobModel)(nil)).
		Column("id").
		Where("status = ?", job.Pending).
		WhereOr("(status = ? OR status = ?) AND run_at <= ?", job.Scheduled, job.Failed, now).
		Order("priority DESC", "created_at ASC").
		Limit(1)

	var models []*jobModel
	err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Processing).
		Set("run_at = NULL").
		Set("updated_at = ?", now).
		Where("id IN (?)", sub).
		Returning("*").
		Scan(ctx, &models)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	return models[0].toJob(), nil
}

// MarkStarted implements store.Store.
func (s *Store) MarkStarted(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("started_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", job.Processing).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return store.ErrNotFound
	}
	return nil
}

// Finalize implements store.Store.
func (s *Store) Finalize(ctx context.Context, id string, success bool) (*job.Job, error) {
	now := time.Now().UTC()
	if success {
		var models []*jobModel
		err := s.db.NewUpdate().
			Model((*jobModel)(nil)).
			Set("status = ?", job.Completed).
			Set("completed_at = ?", now).
			Set("updated_at = ?", now).
			Where("id = ?", id).
			Where("status = ?", job.Processing).
			Returning("*").
			Scan(ctx, &models)
		if err != nil {
			return nil, err
		}
		if len(models) == 0 {
			return nil, store.ErrNotFound
		}
		return models[0].toJob(), nil
	}

	var result *job.Job
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var m jobModel
		err := tx.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrNotFound
			}
			return err
		}
		if m.Status != job.Processing {
			return store.ErrNotFound
		}

		newAttempts := m.Attempts + 1
		base := s.backoffBase(ctx, tx)

		if policy.IsTerminal(newAttempts, m.MaxRetries) {
			_, err = tx.NewUpdate().
				Model((*jobModel)(nil)).
				Set("status = ?", job.Dead).
				Set("attempts = ?", newAttempts).
				Set("updated_at = ?", now).
				Where("id = ?", id).
				Exec(ctx)
			if err != nil {
				return err
			}
			m.Status = job.Dead
			m.Attempts = newAttempts
			m.UpdatedAt = now
		} else {
			runAt := policy.ResolveRunAt(now, base, newAttempts)
			_, err = tx.NewUpdate().
				Model((*jobModel)(nil)).
				Set("status = ?", job.Failed).
				Set("attempts = ?", newAttempts).
				Set("run_at = ?", runAt).
				Set("updated_at = ?", now).
				Where("id = ?", id).
				Exec(ctx)
			if err != nil {
				return err
			}
			m.Status = job.Failed
			m.Attempts = newAttempts
			m.RunAt = &runAt
			m.UpdatedAt = now
		}
		result = m.toJob()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Release implements store.Store. A no-op for any non-Processing row.
func (s *Store) Release(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Pending).
		Set("run_at = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", job.Processing).
		Exec(ctx)
	return err
}

// RecoverOrphans implements store.Store.
func (s *Store) RecoverOrphans(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Pending).
		Set("run_at = NULL").
		Set("updated_at = ?", now).
		Where("status = ?", job.Processing).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return getAffected(res), nil
}

func (s *Store) requeueWhere(ctx context.Context, id string, statuses ...job.Status) error {
	now := time.Now().UTC()
	q := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Pending).
		Set("attempts = 0").
		Set("run_at = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", id)
	if len(statuses) == 1 {
		q = q.Where("status = ?", statuses[0])
	} else {
		q = q.Where("status IN (?)", bun.In(statuses))
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return store.ErrNotFound
	}
	return nil
}

// Requeue implements store.Store.
func (s *Store) Requeue(ctx context.Context, id string) error {
	return s.requeueWhere(ctx, id, job.Failed, job.Dead)
}

// RetryDlq implements store.Store.
func (s *Store) RetryDlq(ctx context.Context, id string) error {
	return s.requeueWhere(ctx, id, job.Dead)
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*jobModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return store.ErrNotFound
	}
	return nil
}

// GetByState implements store.Store.
func (s *Store) GetByState(ctx context.Context, status job.Status) ([]*job.Job, error) {
	var models []*jobModel
	q := s.db.NewSelect().Model(&models).Order("priority DESC", "created_at ASC")
	if status != job.Unknown {
		q = q.Where("status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return jobsToJobs(models), nil
}

// Summary implements store.Store.
func (s *Store) Summary(ctx context.Context) (job.Summary, error) {
	var rows []struct {
		Status job.Status `bun:"status"`
		Count  int64      `bun:"n"`
	}
	err := s.db.NewSelect().
		Model((*jobModel)(nil)).
		ColumnExpr("status").
		ColumnExpr("count(*) AS n").
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	summary := make(job.Summary, len(rows))
	for _, r := range rows {
		summary[r.Status] = r.Count
	}
	return summary, nil
}

// GetConfig implements store.Store.
func (s *Store) GetConfig(ctx context.Context, key string) (string, bool, error) {
	var m configModel
	err := s.db.NewSelect().Model(&m).Where("key = ?", key).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return m.Value, true, nil
}

// SetConfig implements store.Store.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	m := &configModel{Key: key, Value: value}
	_, err := s.db.NewInsert().
		Model(m).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}

// GetAllConfig implements store.Store.
func (s *Store) GetAllConfig(ctx context.Context) (map[string]string, error) {
	var models []*configModel
	if err := s.db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, err
	}
	ret := make(map[string]string, len(models))
	for _, m := range models {
		ret[m.Key] = m.Value
	}
	return ret, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
