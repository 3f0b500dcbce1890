package sqlite_test

import (
	"context"
	"testing"

	"github.com/anvorisk/queuectl/store/sqlite"
	"github.com/uptrace/bun"
)

func newTestStore(t *testing.T) (*sqlite.Store, *bun.DB) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return sqlite.New(db, nil), db
}
