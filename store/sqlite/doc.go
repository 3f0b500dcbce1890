// Package sqlite is a bun-based SQL implementation of store.Store and
// store.Cleaner: string job ids, a closed field set (no free-form
// metadata/payload), priority + run_at scheduling and the
// pending/scheduled/processing/failed/completed/dead job state
// machine.
//
// # Schema
//
// Open creates the jobs and config tables (if not already present) and
// the indexes Lease/GetByState/Clean rely on, inside one transaction.
// Schema evolution beyond additive, idempotent CREATE IF NOT EXISTS is
// out of scope; the "init" CLI command simply calls Open.
//
// # Concurrency
//
// Lease and the success path of Finalize are single atomic
// UPDATE ... RETURNING statements, so SQLite's own per-statement
// locking is all the serialization they need. The failure path of
// Finalize, RecoverOrphans and Requeue run inside db.RunInTx. Neither
// bun nor database/sql expose SQLite's BEGIN IMMEDIATE verb directly,
// so serialization across all of these instead comes from capping the
// connection pool at one connection (see Open) — every statement and
// transaction this package issues therefore already executes one at a
// time, so two concurrent Lease calls never return the same row. The
// DSN enables WAL mode so external readers are not blocked by a
// writer holding that one connection.
package sqlite
