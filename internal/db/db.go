// Package db adapts database/sql so the store package can run against
// either of two drivers: a CGO-free driver for tests and tooling that
// never touch the vector index, and a CGO driver with the sqlite-vec
// extension loaded for production use.
package db

import (
	"context"
	"database/sql"
)

// DB is the narrow surface the store package needs from a SQL connection.
type DB interface {
	Query(query string, args ...any) (Rows, error)
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(query string, args ...any) Row
	QueryRowContext(ctx context.Context, query string, args ...any) Row
	Exec(query string, args ...any) (Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (Result, error)
	Begin() (Tx, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	Close() error
	Ping() error
}

// Rows mirrors the subset of *sql.Rows the store package scans.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
	Columns() ([]string, error)
}

// Row mirrors *sql.Row.
type Row interface {
	Scan(dest ...any) error
}

// Result mirrors sql.Result.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Tx mirrors the subset of *sql.Tx the store package needs.
type Tx interface {
	Query(query string, args ...any) (Rows, error)
	QueryRow(query string, args ...any) Row
	Exec(query string, args ...any) (Result, error)
	Prepare(query string) (Stmt, error)
	Commit() error
	Rollback() error
}

// Stmt mirrors *sql.Stmt.
type Stmt interface {
	Query(args ...any) (Rows, error)
	QueryRow(args ...any) Row
	Exec(args ...any) (Result, error)
	Close() error
}

// Config controls how a database file is opened.
type Config struct {
	// Path is the SQLite file path, or ":memory:" for an ephemeral database.
	Path string
	// EnableWAL turns on WAL journal mode (ignored for :memory:).
	EnableWAL bool
}

// DefaultConfig returns a Config with WAL enabled, the posture the store
// package always wants outside of throwaway in-memory tests.
func DefaultConfig(path string) Config {
	return Config{Path: path, EnableWAL: true}
}

// Driver selects which database/sql driver backs a DB.
type Driver string

const (
	// DriverModernc is the pure-Go modernc.org/sqlite driver. It cannot
	// load native extensions, so it must never be used to open the
	// store's production database (sqlite-vec would not be available),
	// but it is perfectly fine for tooling that only needs plain SQL —
	// health checks, migrations dry-runs, FTS-only unit tests.
	DriverModernc Driver = "modernc"

	// DriverMattn is the CGO mattn/go-sqlite3 driver. commitmux loads
	// the sqlite-vec extension into every connection this driver opens
	// before any DDL runs, per the vec0 virtual table requirement.
	DriverMattn Driver = "mattn"
)

// Open opens a database file with the requested driver.
func Open(driver Driver, cfg Config) (DB, error) {
	switch driver {
	case DriverMattn:
		return OpenMattn(cfg)
	case DriverModernc, "":
		return OpenModernc(cfg)
	default:
		return nil, &UnknownDriverError{Driver: driver}
	}
}

// UnknownDriverError is returned by Open for an unrecognized Driver value.
type UnknownDriverError struct {
	Driver Driver
}

func (e *UnknownDriverError) Error() string {
	return "db: unknown driver " + string(e.Driver)
}
