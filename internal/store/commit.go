package store

import (
	"context"

	"codetect/internal/cmerr"
)

// UpsertCommit is an idempotent INSERT ... ON CONFLICT DO UPDATE on
// (repo_id, sha), which keeps the row's rowid. The
// commits_ai/commits_au triggers keep commits_fts in sync as part of the
// same statement.
func (s *Store) UpsertCommit(ctx context.Context, c Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO commits(repo_id, sha, author_name, author_email, committer_name, committer_email,
		                      author_time, commit_time, subject, body, parent_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(repo_id, sha) DO UPDATE SET
		   author_name = excluded.author_name,
		   author_email = excluded.author_email,
		   committer_name = excluded.committer_name,
		   committer_email = excluded.committer_email,
		   author_time = excluded.author_time,
		   commit_time = excluded.commit_time,
		   subject = excluded.subject,
		   body = excluded.body,
		   parent_count = excluded.parent_count`,
		c.RepoID, c.SHA, c.AuthorName, c.AuthorEmail, c.CommitterName, c.CommitterEmail,
		c.AuthorTime, c.CommitTime, c.Subject, c.Body, c.ParentCount)
	if err != nil {
		return cmerr.Store("upserting commit", err)
	}
	return nil
}

// UpsertCommitFiles replaces any prior file rows for the same (repo_id, sha).
func (s *Store) UpsertCommitFiles(ctx context.Context, repoID int64, sha string, files []CommitFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return cmerr.Store("beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM commit_files WHERE repo_id = ? AND sha = ?`, repoID, sha); err != nil {
		return cmerr.Store("clearing prior commit files", err)
	}

	for _, f := range files {
		if _, err := tx.Exec(
			`INSERT INTO commit_files(repo_id, sha, path, status, old_path) VALUES (?, ?, ?, ?, ?)`,
			repoID, sha, f.Path, string(f.Status), nullable(f.OldPath)); err != nil {
			return cmerr.Store("inserting commit file", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return cmerr.Store("committing commit files", err)
	}
	return nil
}

// UpsertPatch is idempotent on (repo_id, sha). It also refreshes the FTS
// row's patch_preview column: because commits_fts is contentless, the old
// row must be deleted with the exact values it was inserted with before
// the replacement is inserted, so this reads the commit's current
// subject/body first.
func (s *Store) UpsertPatch(ctx context.Context, p CommitPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return cmerr.Store("beginning transaction", err)
	}
	defer tx.Rollback()

	var rowid int64
	var subject, body string
	err = tx.QueryRow(
		`SELECT rowid, subject, body FROM commits WHERE repo_id = ? AND sha = ?`,
		p.RepoID, p.SHA).Scan(&rowid, &subject, &body)
	if err != nil {
		if isNoRows(err) {
			return cmerr.NotFound("commit not found for patch")
		}
		return cmerr.Store("reading commit for patch", err)
	}

	// commits_fts is contentless: it stores no column text of its own, so
	// the prior patch_preview has to come from commit_patches (an
	// ordinary table) rather than from commits_fts itself. If no patch
	// has been stored yet, the indexed preview is still '' from the
	// commits_ai trigger's insert.
	var indexedPreview string
	if err := tx.QueryRow(`SELECT patch_preview FROM commit_patches WHERE repo_id = ? AND sha = ?`,
		p.RepoID, p.SHA).Scan(&indexedPreview); err != nil && !isNoRows(err) {
		return cmerr.Store("reading prior patch preview", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO commits_fts(commits_fts, rowid, subject, body, patch_preview) VALUES ('delete', ?, ?, ?, ?)`,
		rowid, subject, body, indexedPreview); err != nil {
		return cmerr.Store("removing stale fts row", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO commits_fts(rowid, subject, body, patch_preview) VALUES (?, ?, ?, ?)`,
		rowid, subject, body, p.PatchPreview); err != nil {
		return cmerr.Store("inserting refreshed fts row", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO commit_patches(repo_id, sha, patch_blob, patch_preview) VALUES (?, ?, ?, ?)
		 ON CONFLICT(repo_id, sha) DO UPDATE SET patch_blob = excluded.patch_blob, patch_preview = excluded.patch_preview`,
		p.RepoID, p.SHA, p.Compressed, p.PatchPreview); err != nil {
		return cmerr.Store("upserting patch", err)
	}

	if err := tx.Commit(); err != nil {
		return cmerr.Store("committing patch upsert", err)
	}
	return nil
}

// CommitExists is a cheap existence check used by the ingester's
// incremental skip.
func (s *Store) CommitExists(ctx context.Context, repoID int64, sha string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var one int
	err := s.conn.QueryRowContext(ctx, `SELECT 1 FROM commits WHERE repo_id = ? AND sha = ?`, repoID, sha).Scan(&one)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, cmerr.Store("checking commit existence", err)
	}
	return true, nil
}
