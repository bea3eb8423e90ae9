// Package store opens the credential store and maps driver-specific errors
// onto driver-independent predicates.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported values for the DATABASE_DRIVER setting.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxQuerier is a Querier that can also run a function in a transaction.
type TxQuerier interface {
	Querier
	WithTx(ctx context.Context, fn func(q Querier) error) error
}

// DB wraps a *sql.DB together with the driver it was opened with.
type DB struct {
	*sql.DB
	driver string
}

// Open connects to the store using the given driver and DSN and verifies
// the connection.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var (
		sqlDB *sql.DB
		err   error
	)

	switch driver {
	case DriverPostgres:
		sqlDB, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
	case DriverSQLite:
		sqlDB, err = sql.Open("sqlite3", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		// Single writer; every query in this service finishes its rows before
		// issuing the next statement.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{DB: sqlDB, driver: driver}, nil
}

// Driver returns the driver name the store was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
func (db *DB) WithTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// sqliteDSN appends the connection parameters the schema relies on.
func sqliteDSN(dsn string) string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", "5000")
	if !strings.Contains(dsn, ":memory:") {
		params.Set("_journal_mode", "WAL")
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + params.Encode()
}

// Placeholders returns n comma-separated $N placeholders starting at start.
func Placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}
