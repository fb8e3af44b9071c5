package store

import (
	"context"
	"database/sql"

	"codetect/internal/cmerr"
)

// GetIngestState returns the sync bookkeeping row for repoID, if any.
func (s *Store) GetIngestState(ctx context.Context, repoID int64) (IngestState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st IngestState
	st.RepoID = repoID
	var lastError sql.NullString
	err := s.conn.QueryRowContext(ctx,
		`SELECT last_synced_at, last_synced_sha, last_error FROM ingest_state WHERE repo_id = ?`,
		repoID).Scan(&st.LastSyncedAt, &st.LastSyncedSHA, &lastError)
	if err != nil {
		if isNoRows(err) {
			return IngestState{}, false, nil
		}
		return IngestState{}, false, cmerr.Store("reading ingest state", err)
	}
	st.LastError = lastError.String
	return st, true, nil
}

// SetIngestState upserts the sync bookkeeping row for a repo, called once
// a sync_repo run (successful or not) finishes.
func (s *Store) SetIngestState(ctx context.Context, st IngestState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO ingest_state(repo_id, last_synced_at, last_synced_sha, last_error) VALUES (?, ?, ?, ?)
		 ON CONFLICT(repo_id) DO UPDATE SET
		   last_synced_at = excluded.last_synced_at,
		   last_synced_sha = excluded.last_synced_sha,
		   last_error = excluded.last_error`,
		st.RepoID, st.LastSyncedAt, st.LastSyncedSHA, nullable(st.LastError))
	if err != nil {
		return cmerr.Store("writing ingest state", err)
	}
	return nil
}

// CountCommitsForRepo reports how many commits are stored for repoID,
// used by commitmux_list_repos.
func (s *Store) CountCommitsForRepo(ctx context.Context, repoID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM commits WHERE repo_id = ?`, repoID).Scan(&n); err != nil {
		return 0, cmerr.Store("counting commits", err)
	}
	return n, nil
}
