package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"codetect/internal/cmerr"
	"codetect/internal/db"
)

// AddRepo inserts a new repo. It fails with AlreadyExists if name collides.
func (s *Store) AddRepo(ctx context.Context, in RepoInput) (Repo, error) {
	prefixes := in.ExcludePrefixes
	if prefixes == nil {
		prefixes = []string{}
	}
	prefixJSON, err := json.Marshal(prefixes)
	if err != nil {
		return Repo{}, cmerr.Config("encoding exclude_prefixes: " + err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO repos(name, path, remote_url, default_branch, fork_of, author_filter, exclude_prefixes, embed_enabled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Name, in.Path, nullable(in.RemoteURL), nullable(in.DefaultBranch), nullable(in.ForkOf),
		nullable(in.AuthorFilter), string(prefixJSON), boolToInt(in.EmbedEnabled))
	if err != nil {
		if isUniqueViolation(err) {
			return Repo{}, cmerr.AlreadyExists(fmt.Sprintf("a repo named '%s' already exists. Use 'commitmux list-repos' to see all repos.", in.Name))
		}
		return Repo{}, cmerr.Store("inserting repo", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Repo{}, cmerr.Store("reading inserted repo id", err)
	}

	return Repo{
		ID: id, Name: in.Name, Path: in.Path, RemoteURL: in.RemoteURL,
		DefaultBranch: in.DefaultBranch, ForkOf: in.ForkOf, AuthorFilter: in.AuthorFilter,
		ExcludePrefixes: prefixes, EmbedEnabled: in.EmbedEnabled,
	}, nil
}

const repoColumns = `id, name, path, remote_url, default_branch, fork_of, author_filter, exclude_prefixes, embed_enabled`

func scanRepo(row interface{ Scan(...any) error }) (Repo, error) {
	var r Repo
	var remoteURL, defaultBranch, forkOf, authorFilter sql.NullString
	var prefixJSON string
	var embedEnabled int

	if err := row.Scan(&r.ID, &r.Name, &r.Path, &remoteURL, &defaultBranch, &forkOf, &authorFilter, &prefixJSON, &embedEnabled); err != nil {
		return Repo{}, err
	}

	r.RemoteURL = remoteURL.String
	r.DefaultBranch = defaultBranch.String
	r.ForkOf = forkOf.String
	r.AuthorFilter = authorFilter.String
	r.EmbedEnabled = embedEnabled != 0

	var prefixes []string
	if prefixJSON != "" {
		if err := json.Unmarshal([]byte(prefixJSON), &prefixes); err != nil {
			return Repo{}, fmt.Errorf("decoding exclude_prefixes: %w", err)
		}
	}
	if prefixes == nil {
		prefixes = []string{}
	}
	r.ExcludePrefixes = prefixes

	return r, nil
}

// ListRepos returns every registered repo, ordered by name.
func (s *Store) ListRepos(ctx context.Context) ([]Repo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.QueryContext(ctx, `SELECT `+repoColumns+` FROM repos ORDER BY name`)
	if err != nil {
		return nil, cmerr.Store("listing repos", err)
	}
	defer rows.Close()

	var repos []Repo
	for rows.Next() {
		r, err := scanRepo(rows)
		if err != nil {
			return nil, cmerr.Store("scanning repo row", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

// GetRepoByName returns NotFound if no repo with that name is registered.
func (s *Store) GetRepoByName(ctx context.Context, name string) (Repo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.conn.QueryRowContext(ctx, `SELECT `+repoColumns+` FROM repos WHERE name = ?`, name)
	r, err := scanRepo(row)
	if err != nil {
		if isNoRows(err) {
			return Repo{}, cmerr.NotFound(fmt.Sprintf("repo %q not found", name))
		}
		return Repo{}, cmerr.Store("reading repo", err)
	}
	return r, nil
}

// UpdateRepo applies a dynamic SET list over only the fields present in
// update (see RepoUpdate's doc comment for the presence semantics).
func (s *Store) UpdateRepo(ctx context.Context, id int64, update RepoUpdate) error {
	var sets []string
	var args []any

	addOptional := func(col string, v *OptionalString) {
		if v == nil {
			return
		}
		sets = append(sets, col+" = ?")
		args = append(args, nullable(v.Value))
	}
	addOptional("default_branch", update.DefaultBranch)
	addOptional("fork_of", update.ForkOf)
	addOptional("author_filter", update.AuthorFilter)
	addOptional("remote_url", update.RemoteURL)

	if update.ExcludePrefixes != nil {
		prefixJSON, err := json.Marshal(update.ExcludePrefixes)
		if err != nil {
			return cmerr.Config("encoding exclude_prefixes: " + err.Error())
		}
		sets = append(sets, "exclude_prefixes = ?")
		args = append(args, string(prefixJSON))
	}

	if update.EmbedEnabled != nil {
		sets = append(sets, "embed_enabled = ?")
		args = append(args, boolToInt(*update.EmbedEnabled))
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.ExecContext(ctx,
		fmt.Sprintf(`UPDATE repos SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return cmerr.Store("updating repo", err)
	}
	return nil
}

// RemoveRepo cascade-deletes a repo and everything it owns, in the order
// patches, files, ingest_state, embeddings, commits, then the repo row
// itself. The FTS index is not rebuilt: the commits_ad trigger evicts
// each deleted commit's row. Unknown name yields NotFound.
func (s *Store) RemoveRepo(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.conn.QueryRowContext(ctx, `SELECT id FROM repos WHERE name = ?`, name).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return cmerr.NotFound(fmt.Sprintf("repo %q not found", name))
		}
		return cmerr.Store("looking up repo", err)
	}

	steps := []string{
		// commits_ad reads patch_preview back from commit_patches, which is
		// emptied first, so each patched commit is re-indexed with an empty
		// preview here to keep the trigger's 'delete' matching the index.
		`INSERT INTO commits_fts(commits_fts, rowid, subject, body, patch_preview)
		 SELECT 'delete', c.rowid, c.subject, c.body, cp.patch_preview FROM commits c
		 JOIN commit_patches cp ON cp.repo_id = c.repo_id AND cp.sha = c.sha WHERE c.repo_id = ?`,
		`INSERT INTO commits_fts(rowid, subject, body, patch_preview)
		 SELECT c.rowid, c.subject, c.body, '' FROM commits c
		 JOIN commit_patches cp ON cp.repo_id = c.repo_id AND cp.sha = c.sha WHERE c.repo_id = ?`,
		`DELETE FROM commit_patches WHERE repo_id = ?`,
		`DELETE FROM commit_files WHERE repo_id = ?`,
		`DELETE FROM ingest_state WHERE repo_id = ?`,
	}
	// embed_vectors only exists on a db.DriverMattn store (see schema.go);
	// a db.DriverModernc store has no vec0 table to clean up.
	if s.driver == db.DriverMattn {
		steps = append(steps, `DELETE FROM embed_vectors WHERE embed_id IN (SELECT embed_id FROM embed_keymap WHERE repo_id = ?)`)
	}
	steps = append(steps, `DELETE FROM embed_keymap WHERE repo_id = ?`)
	for _, stmt := range steps {
		if _, err := s.conn.ExecContext(ctx, stmt, id); err != nil {
			return cmerr.Store("cascade-deleting repo dependents", err)
		}
	}

	// commits_ad is a FOR EACH ROW trigger, so this bulk delete still
	// evicts every affected row from commits_fts individually.
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM commits WHERE repo_id = ?`, id); err != nil {
		return cmerr.Store("deleting commits", err)
	}

	if _, err := s.conn.ExecContext(ctx, `DELETE FROM repos WHERE id = ?`, id); err != nil {
		return cmerr.Store("deleting repo", err)
	}

	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "constraint failed: UNIQUE"))
}
