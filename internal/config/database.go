package config

import (
	"fmt"
	"os"
	"path/filepath"

	"codetect/internal/db"
)

// DatabaseConfig holds database configuration for the commitmux process.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string

	// Driver selects which database/sql driver backs the connection.
	// Production opens always want db.DriverMattn (the only driver that can
	// load sqlite-vec); db.DriverModernc exists for tooling and tests that
	// never touch the vector index.
	Driver db.Driver

	// VectorDimensions is the embedding vector width, fixed at schema
	// creation time (spec: embedding dimensions are global and immutable
	// without a manual rebuild).
	VectorDimensions int
}

// defaultDBPath returns "<home>/.commitmux/db.sqlite3", falling back to a
// relative path if the home directory cannot be resolved.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".commitmux/db.sqlite3"
	}
	return filepath.Join(home, ".commitmux", "db.sqlite3")
}

// LoadDatabaseConfigFromEnv loads database configuration from environment
// variables. Supports:
//   - COMMITMUX_DB: database file path
//   - COMMITMUX_VECTOR_DIMENSIONS: vector dimensions (default: 768)
//
// The path precedence is explicit --db flag (applied by the caller by
// overwriting cfg.Path after this call) → COMMITMUX_DB → the default path
// under the user's home directory.
func LoadDatabaseConfigFromEnv() DatabaseConfig {
	cfg := DatabaseConfig{
		Path:             defaultDBPath(),
		Driver:           db.DriverMattn,
		VectorDimensions: 768, // default for nomic-embed-text
	}

	if path := os.Getenv("COMMITMUX_DB"); path != "" {
		cfg.Path = path
	}

	if dims := os.Getenv("COMMITMUX_VECTOR_DIMENSIONS"); dims != "" {
		var d int
		if _, err := fmt.Sscanf(dims, "%d", &d); err == nil && d > 0 {
			cfg.VectorDimensions = d
		}
	}

	return cfg
}

// ToDBConfig converts DatabaseConfig to db.Config for opening a database.
func (c DatabaseConfig) ToDBConfig() db.Config {
	return db.DefaultConfig(c.Path)
}

// String returns a human-readable description of the database configuration.
func (c DatabaseConfig) String() string {
	return fmt.Sprintf("sqlite (%s, driver=%s)", c.Path, c.Driver)
}
