package config

import (
	"os"
	"strings"
	"testing"

	"codetect/internal/db"
)

func TestLoadDatabaseConfigFromEnv(t *testing.T) {
	envVars := []string{"COMMITMUX_DB", "COMMITMUX_VECTOR_DIMENSIONS"}
	original := make(map[string]string)
	for _, key := range envVars {
		original[key] = os.Getenv(key)
		os.Unsetenv(key)
	}
	defer func() {
		for key, val := range original {
			if val != "" {
				os.Setenv(key, val)
			} else {
				os.Unsetenv(key)
			}
		}
	}()

	t.Run("Default Configuration", func(t *testing.T) {
		cfg := LoadDatabaseConfigFromEnv()

		if cfg.Driver != db.DriverMattn {
			t.Errorf("expected default driver mattn, got %v", cfg.Driver)
		}
		if cfg.VectorDimensions != 768 {
			t.Errorf("expected default dimensions 768, got %d", cfg.VectorDimensions)
		}
		if cfg.Path == "" {
			t.Errorf("expected a non-empty default path")
		}
	})

	t.Run("Path from env", func(t *testing.T) {
		os.Setenv("COMMITMUX_DB", "/custom/path/db.sqlite")
		defer os.Unsetenv("COMMITMUX_DB")

		cfg := LoadDatabaseConfigFromEnv()
		if cfg.Path != "/custom/path/db.sqlite" {
			t.Errorf("expected custom path, got %s", cfg.Path)
		}
	})

	t.Run("Custom vector dimensions", func(t *testing.T) {
		os.Setenv("COMMITMUX_VECTOR_DIMENSIONS", "1536")
		defer os.Unsetenv("COMMITMUX_VECTOR_DIMENSIONS")

		cfg := LoadDatabaseConfigFromEnv()
		if cfg.VectorDimensions != 1536 {
			t.Errorf("expected dimensions 1536, got %d", cfg.VectorDimensions)
		}
	})

	t.Run("Invalid vector dimensions ignored", func(t *testing.T) {
		os.Setenv("COMMITMUX_VECTOR_DIMENSIONS", "not-a-number")
		defer os.Unsetenv("COMMITMUX_VECTOR_DIMENSIONS")

		cfg := LoadDatabaseConfigFromEnv()
		if cfg.VectorDimensions != 768 {
			t.Errorf("expected fallback to default dimensions, got %d", cfg.VectorDimensions)
		}
	})
}

func TestToDBConfig(t *testing.T) {
	cfg := DatabaseConfig{Path: "/custom/path.db"}

	dbCfg := cfg.ToDBConfig()

	if dbCfg.Path != "/custom/path.db" {
		t.Errorf("expected custom path, got %s", dbCfg.Path)
	}
	if !dbCfg.EnableWAL {
		t.Errorf("expected WAL enabled by default")
	}
}

func TestDatabaseConfigString(t *testing.T) {
	cfg := DatabaseConfig{Path: "/custom/path.db", Driver: db.DriverMattn}

	str := cfg.String()

	if !strings.Contains(str, "sqlite") {
		t.Errorf("expected 'sqlite' in string, got %s", str)
	}
	if !strings.Contains(str, "/custom/path.db") {
		t.Errorf("expected path in string, got %s", str)
	}
}
