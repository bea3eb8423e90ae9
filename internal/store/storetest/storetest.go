// Package storetest opens migrated SQLite stores for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/webbase/adminapi/internal/store"
)

// Open creates a fresh SQLite store in t.TempDir(), applies all migrations
// and registers cleanup.
func Open(t *testing.T) *store.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "adminapi.sqlite")

	db, err := store.Open(context.Background(), store.DriverSQLite, "file:"+path)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.MigrateUp(context.Background()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return db
}

// Exec runs a statement and fails the test on error.
func Exec(t *testing.T, db store.Querier, query string, args ...any) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// InsertID runs an INSERT ... RETURNING id statement and returns the id.
func InsertID(t *testing.T, db store.Querier, query string, args ...any) int64 {
	t.Helper()
	var id int64
	if err := db.QueryRowContext(context.Background(), query, args...).Scan(&id); err != nil {
		t.Fatalf("insert %q: %v", query, err)
	}
	return id
}
