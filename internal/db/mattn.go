package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3" // CGO driver, registered as "sqlite3"
)

// vecOnce guards sqlite_vec.Auto(), which installs a connect hook on the
// "sqlite3" driver. It must run exactly once per process, before the
// first sql.Open("sqlite3", ...) call — the hook loads the extension
// into every connection the pool subsequently opens, satisfying the
// "vector extension loaded before any DDL runs" requirement.
var vecOnce sync.Once

// MattnDB wraps a *sql.DB opened with the CGO mattn/go-sqlite3 driver,
// with the sqlite-vec extension loaded into every connection. This is
// the driver the store package uses in production.
type MattnDB struct {
	DB
	path string
}

var _ DB = (*MattnDB)(nil)

// OpenMattn opens a SQLite database file with the CGO driver and loads
// sqlite-vec before returning.
func OpenMattn(cfg Config) (*MattnDB, error) {
	vecOnce.Do(func() { sqlite_vec.Auto() })

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	sqlDB, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// The vec0 virtual table requires a single live connection per
	// writer; commitmux serializes writes itself (store.Store's mutex),
	// so a single pooled connection avoids surprises from SQLite's
	// per-connection extension state.
	sqlDB.SetMaxOpenConns(1)

	if cfg.EnableWAL && cfg.Path != ":memory:" {
		if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("setting WAL mode: %w", err)
		}
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return &MattnDB{DB: WrapSQL(sqlDB), path: cfg.Path}, nil
}

// Path returns the file path this database was opened from.
func (m *MattnDB) Path() string { return m.path }

// VectorSearchAvailable reports whether this connection can create vec0
// virtual tables. mattn with sqlite-vec loaded always can.
func (m *MattnDB) VectorSearchAvailable() bool { return true }
