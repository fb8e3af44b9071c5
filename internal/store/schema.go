package store

import (
	"fmt"
	"strings"

	"codetect/internal/db"
)

// baseSchema is the first migration step: tables, the FTS5 virtual table,
// the triggers that keep it in sync with commits, and supporting indexes.
// Every statement uses IF NOT EXISTS so opening an existing file is a
// no-op, the same idempotent-step shape as the teacher's dialect helpers.
var baseSchema = []string{
	`CREATE TABLE IF NOT EXISTS repos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		path TEXT NOT NULL,
		remote_url TEXT,
		default_branch TEXT,
		fork_of TEXT,
		author_filter TEXT,
		exclude_prefixes TEXT NOT NULL DEFAULT '[]',
		embed_enabled INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS commits (
		repo_id INTEGER NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
		sha TEXT NOT NULL,
		author_name TEXT NOT NULL,
		author_email TEXT NOT NULL,
		committer_name TEXT NOT NULL,
		committer_email TEXT NOT NULL,
		author_time INTEGER NOT NULL,
		commit_time INTEGER NOT NULL,
		subject TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		parent_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (repo_id, sha)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_commits_author_time ON commits(repo_id, author_time)`,
	`CREATE TABLE IF NOT EXISTS commit_files (
		repo_id INTEGER NOT NULL,
		sha TEXT NOT NULL,
		path TEXT NOT NULL,
		status TEXT NOT NULL,
		old_path TEXT,
		FOREIGN KEY (repo_id, sha) REFERENCES commits(repo_id, sha) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_commit_files_commit ON commit_files(repo_id, sha)`,
	`CREATE INDEX IF NOT EXISTS idx_commit_files_path ON commit_files(path)`,
	`CREATE TABLE IF NOT EXISTS commit_patches (
		repo_id INTEGER NOT NULL,
		sha TEXT NOT NULL,
		patch_blob BLOB NOT NULL,
		patch_preview TEXT NOT NULL,
		PRIMARY KEY (repo_id, sha),
		FOREIGN KEY (repo_id, sha) REFERENCES commits(repo_id, sha) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS ingest_state (
		repo_id INTEGER PRIMARY KEY REFERENCES repos(id) ON DELETE CASCADE,
		last_synced_at INTEGER NOT NULL,
		last_synced_sha TEXT NOT NULL DEFAULT '',
		last_error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS commits_fts USING fts5(
		subject, body, patch_preview,
		content='',
		tokenize='porter unicode61'
	)`,
	// commits has a composite (repo_id, sha) primary key, but as an
	// ordinary rowid table it still exposes SQLite's implicit rowid,
	// which is what commits_fts indexes against (contentless FTS5 tables
	// must be given an explicit, stable rowid on every write).
	`CREATE TRIGGER IF NOT EXISTS commits_ai AFTER INSERT ON commits
	 BEGIN
		INSERT INTO commits_fts(rowid, subject, body, patch_preview)
		VALUES (new.rowid, new.subject, new.body, '');
	 END`,
	`CREATE TRIGGER IF NOT EXISTS commits_ad AFTER DELETE ON commits
	 BEGIN
		INSERT INTO commits_fts(commits_fts, rowid, subject, body, patch_preview)
		VALUES ('delete', old.rowid, old.subject, old.body,
			COALESCE((SELECT patch_preview FROM commit_patches WHERE repo_id = old.repo_id AND sha = old.sha), ''));
	 END`,
	`CREATE TRIGGER IF NOT EXISTS commits_au AFTER UPDATE ON commits
	 BEGIN
		INSERT INTO commits_fts(commits_fts, rowid, subject, body, patch_preview)
		VALUES ('delete', old.rowid, old.subject, old.body,
			COALESCE((SELECT patch_preview FROM commit_patches WHERE repo_id = old.repo_id AND sha = old.sha), ''));
		INSERT INTO commits_fts(rowid, subject, body, patch_preview)
		VALUES (new.rowid, new.subject, new.body,
			COALESCE((SELECT patch_preview FROM commit_patches WHERE repo_id = new.repo_id AND sha = new.sha), ''));
	 END`,
	// patch_preview's indexed value always comes from commit_patches, a
	// plain table, never from commits_fts itself (it is contentless).
	// commits_ad/commits_au's 'delete' operations read it back through the
	// same subquery so the deleted row's column values always match what
	// commits_ai or upsert_patch (see commit.go) last indexed; a mismatched
	// delete silently desyncs a contentless FTS5 index.
}

// repoColumnMigrations is a list of ALTER TABLE statements for columns
// added after repos' initial shape. Each one's "duplicate column name"
// error is swallowed, the same pattern the teacher's dialect-specific
// column-add helpers use for existing databases.
var repoColumnMigrations = []string{
	`ALTER TABLE repos ADD COLUMN fork_of TEXT`,
	`ALTER TABLE repos ADD COLUMN author_filter TEXT`,
}

const defaultEmbeddingDimensions = 768

// embedKeymapSchema creates the plain key-map table. It never depends on
// the vec0 module, so it is created regardless of driver.
var embedKeymapSchema = []string{
	`CREATE TABLE IF NOT EXISTS embed_keymap (
		embed_id INTEGER PRIMARY KEY AUTOINCREMENT,
		repo_id INTEGER NOT NULL,
		sha TEXT NOT NULL,
		UNIQUE(repo_id, sha)
	)`,
}

// embedVectorsSchema creates the vec0 vector table. dim comes from
// Options.EmbeddingDimension (see Open), defaulting to
// defaultEmbeddingDimensions; it only takes effect when the table is
// first created. This statement
// requires the sqlite-vec extension to be loaded into the connection
// (db.DriverMattn only); db.DriverModernc connections skip it entirely,
// since modernc.org/sqlite cannot load native extensions.
func embedVectorsSchema(dim int) string {
	return fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS embed_vectors USING vec0(
		embed_id INTEGER PRIMARY KEY,
		embedding float[%d],
		+sha TEXT,
		+subject TEXT,
		+repo_name TEXT,
		+author_name TEXT,
		+author_time INTEGER,
		+patch_preview TEXT
	)`, dim)
}

// migrate applies the fixed sequence of idempotent migration steps:
// base schema DDL, then repo column-add migrations (duplicate-column
// errors swallowed), then embedding-specific migrations. dim is the
// embedding dimensionality to bake into the vec0 table; it is only
// meaningful the first time embed_vectors is created. The vec0 table
// itself is only created for db.DriverMattn connections (see
// embedVectorsSchema); a store opened with db.DriverModernc has no
// semantic search support, by design.
func migrate(conn db.DB, driver db.Driver, dim int) error {
	for _, stmt := range baseSchema {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("base schema migration: %w", err)
		}
	}

	for _, stmt := range repoColumnMigrations {
		if _, err := conn.Exec(stmt); err != nil && !isDuplicateColumn(err) {
			return fmt.Errorf("repo column migration: %w", err)
		}
	}

	for _, stmt := range embedKeymapSchema {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("embed keymap migration: %w", err)
		}
	}

	if driver == db.DriverMattn {
		if _, err := conn.Exec(embedVectorsSchema(dim)); err != nil {
			return fmt.Errorf("embed vectors migration: %w", err)
		}
	}

	return nil
}

// isDuplicateColumn reports whether err is SQLite's "duplicate column
// name" error, the expected outcome of re-running an ALTER TABLE ADD
// COLUMN migration against a database that already has it.
func isDuplicateColumn(err error) bool {
	return strings.Contains(err.Error(), "duplicate column name")
}
