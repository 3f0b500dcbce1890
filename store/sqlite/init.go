package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

func createJobsTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*jobModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createConfigTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*configModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createLeaseIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_status_run_at").
		Column("status", "run_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func createOrderIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_priority_created").
		Column("priority", "created_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func createUpdatedIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_status_updated").
		Column("status", "updated_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func seedDefaultConfig(ctx context.Context, db bun.IDB) error {
	defaults := []*configModel{
		{Key: "max_retries", Value: "3"},
		{Key: "backoff_base", Value: "2"},
	}
	for _, c := range defaults {
		_, err := db.NewInsert().
			Model(c).
			On("CONFLICT (key) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func initSchema(ctx context.Context, db *bun.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	steps := []func(context.Context, bun.IDB) error{
		createJobsTable,
		createConfigTable,
		createLeaseIndex,
		createOrderIndex,
		createUpdatedIndex,
		seedDefaultConfig,
	}
	for _, step := range steps {
		if err := step(ctx, tx); err != nil {
			return errors.Join(err, tx.Rollback())
		}
	}
	return tx.Commit()
}

// dsn builds a modernc.org/sqlite connection string with WAL mode and
// a busy_timeout enabled, so readers are never blocked by a writer
// holding a long transaction.
func dsn(path string) string {
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
}

// Open opens (creating if absent) the SQLite database at path and
// ensures the jobs/config schema and default config rows exist. The
// returned *bun.DB has its connection pool capped at 1, which
// modernc.org/sqlite requires for correct write-serialization
// semantics under WAL.
func Open(ctx context.Context, path string) (*bun.DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
