package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"codetect/internal/cmerr"
	"codetect/internal/db"
	"codetect/internal/logging"
)

// Store is the only persistent-state authority in commitmux. It wraps a
// single database connection in a mutex: readers and writers both acquire
// it, so all access is serialized at the application layer even though
// WAL mode lets an external read-only tool see a consistent snapshot
// concurrently.
type Store struct {
	mu           sync.Mutex
	conn         db.DB
	driver       db.Driver
	log          *slog.Logger
	embeddingDim int
}

// Options configures Open.
type Options struct {
	Driver             db.Driver
	Logger             *slog.Logger
	EmbeddingDimension int // 0 selects the package default (768)
}

// Open opens (and, if necessary, creates) the database at cfg.Path. It
// loads the vector extension (when driver is db.DriverMattn) before
// running any DDL, then applies the fixed migration sequence. Opening an
// empty file produces a ready database; opening an existing one applies
// only the migrations it is missing.
func Open(cfg db.Config, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Driver == "" {
		opts.Driver = db.DriverMattn
	}

	conn, err := db.Open(opts.Driver, cfg)
	if err != nil {
		return nil, cmerr.Io("opening database", err)
	}

	dim := opts.EmbeddingDimension
	if dim == 0 {
		dim = defaultEmbeddingDimensions
	}

	if err := migrate(conn, opts.Driver, dim); err != nil {
		conn.Close()
		return nil, cmerr.Store("migrating schema", err)
	}

	return &Store{conn: conn, driver: opts.Driver, log: opts.Logger, embeddingDim: dim}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// GetConfig reads a key from the config table.
func (s *Store) GetConfig(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, cmerr.Store("reading config", err)
	}
	return value, true, nil
}

// allowedConfigKeys is the config-key allowlist (spec.md §3): unknown
// keys are rejected at write time. The caller (`commitmux config set`)
// is expected to have already validated value non-emptiness; SetConfig
// only enforces the key allowlist.
var allowedConfigKeys = map[string]bool{
	"embed.model":    true,
	"embed.endpoint": true,
}

// SetConfig upserts a key/value pair. key must be in the allowlist.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	if !allowedConfigKeys[key] {
		return cmerr.Config(fmt.Sprintf("unknown config key %q. Valid keys: embed.model, embed.endpoint.", key))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO config(key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return cmerr.Store("writing config", err)
	}
	return nil
}

// isNoRows reports whether err is database/sql's "no rows" sentinel. The
// db package's wrapper types pass sql.ErrNoRows through unchanged.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
