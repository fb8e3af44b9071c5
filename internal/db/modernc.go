package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go driver, registered as "sqlite"
)

// ModerncDB wraps a *sql.DB opened with the modernc.org/sqlite driver.
// It has no CGO dependency but cannot load the sqlite-vec extension, so
// it must not back the store's production database.
type ModerncDB struct {
	DB
	path string
}

var _ DB = (*ModerncDB)(nil)

// OpenModernc opens a SQLite database file with the pure-Go driver.
func OpenModernc(cfg Config) (*ModerncDB, error) {
	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	sqlDB, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

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

	return &ModerncDB{DB: WrapSQL(sqlDB), path: cfg.Path}, nil
}

// Path returns the file path this database was opened from.
func (m *ModerncDB) Path() string { return m.path }

// VectorSearchAvailable reports whether this connection can create vec0
// virtual tables. modernc never can.
func (m *ModerncDB) VectorSearchAvailable() bool { return false }
