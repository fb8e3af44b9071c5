package store

import (
	"context"
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"codetect/internal/cmerr"
	"codetect/internal/embedding"
)

// SearchSemantic runs the hybrid kNN query: an inner MATCH against the
// vec0 table with k bound to limit, wrapped in an outer filter over the
// auxiliary columns embed_vectors carries (repo_name, author_time) so no
// join back to commits or repos is needed. The two-stage shape matters:
// the vector engine resolves k next to the MATCH clause, and applying
// repos/since inside that same query would change which k candidates are
// selected before filtering.
func (s *Store) SearchSemantic(ctx context.Context, vector []float32, opts SearchOpts) ([]SearchResult, error) {
	if err := CheckEmbeddingDimension(s, vector); err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}

	queryBlob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, cmerr.Embed("serializing query vector", err)
	}

	var outer strings.Builder
	outer.WriteString(`SELECT sha, subject, repo_name, author_name, author_time, patch_preview, distance FROM (
		SELECT sha, subject, repo_name, author_name, author_time, patch_preview, distance
		FROM embed_vectors
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance
	) WHERE 1 = 1`)
	args := []any{queryBlob, limit}

	if opts.Since != 0 {
		outer.WriteString(` AND author_time >= ?`)
		args = append(args, opts.Since)
	}
	if len(opts.Repos) > 0 {
		outer.WriteString(` AND repo_name IN (` + placeholders(len(opts.Repos)) + `)`)
		for _, name := range opts.Repos {
			args = append(args, name)
		}
	}

	s.mu.Lock()
	rows, err := s.conn.QueryContext(ctx, outer.String(), args...)
	s.mu.Unlock()
	if err != nil {
		return nil, cmerr.Store("executing semantic search", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var distance float64
		if err := rows.Scan(&r.SHA, &r.Subject, &r.Repo, &r.Author, &r.Date, &r.PatchExcerpt, &distance); err != nil {
			return nil, cmerr.Store("scanning semantic result", err)
		}
		r.Distance = &distance
		results = append(results, r)
	}
	return results, rows.Err()
}

// StoreEmbedding upserts the vector and its auxiliary columns for one
// commit, keyed through embed_keymap since embed_vectors needs an integer
// primary key but commits are keyed by (repo_id, sha). Any prior vector
// for the same (repo_id, sha) is replaced.
func (s *Store) StoreEmbedding(ctx context.Context, c embedding.EmbedCommit, vector []float32) error {
	if err := CheckEmbeddingDimension(s, vector); err != nil {
		return err
	}

	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return cmerr.Embed("serializing embedding", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return cmerr.Store("beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR IGNORE INTO embed_keymap(repo_id, sha) VALUES (?, ?)`, c.RepoID, c.SHA); err != nil {
		return cmerr.Store("reserving embed key", err)
	}

	var embedID int64
	if err := tx.QueryRow(`SELECT embed_id FROM embed_keymap WHERE repo_id = ? AND sha = ?`,
		c.RepoID, c.SHA).Scan(&embedID); err != nil {
		return cmerr.Store("reading embed key", err)
	}

	if _, err := tx.Exec(`DELETE FROM embed_vectors WHERE embed_id = ?`, embedID); err != nil {
		return cmerr.Store("clearing prior vector", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO embed_vectors(embed_id, embedding, sha, subject, repo_name, author_name, author_time, patch_preview)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		embedID, blob, c.SHA, c.Subject, c.RepoName, c.AuthorName, c.AuthorTime, c.PatchPreview); err != nil {
		return cmerr.Store("inserting vector", err)
	}

	if err := tx.Commit(); err != nil {
		return cmerr.Store("committing embedding", err)
	}
	return nil
}

// GetCommitsWithoutEmbeddings returns a bounded batch of commits for
// repoID that have no key-map entry yet, newest-first by author time.
func (s *Store) GetCommitsWithoutEmbeddings(ctx context.Context, repoID int64, limit int) ([]embedding.EmbedCommit, error) {
	s.mu.Lock()
	rows, err := s.conn.QueryContext(ctx,
		`SELECT r.name, c.sha, c.subject, c.body, c.author_name, c.author_time, COALESCE(cp.patch_preview, '')
		 FROM commits c
		 JOIN repos r ON r.id = c.repo_id
		 LEFT JOIN commit_patches cp ON cp.repo_id = c.repo_id AND cp.sha = c.sha
		 LEFT JOIN embed_keymap k ON k.repo_id = c.repo_id AND k.sha = c.sha
		 WHERE c.repo_id = ? AND k.embed_id IS NULL
		 ORDER BY c.author_time DESC
		 LIMIT ?`, repoID, limit)
	s.mu.Unlock()
	if err != nil {
		return nil, cmerr.Store("reading pending embeddings", err)
	}
	defer rows.Close()

	var out []embedding.EmbedCommit
	for rows.Next() {
		var c embedding.EmbedCommit
		c.RepoID = repoID
		if err := rows.Scan(&c.RepoName, &c.SHA, &c.Subject, &c.Body, &c.AuthorName, &c.AuthorTime, &c.PatchPreview); err != nil {
			return nil, cmerr.Store("scanning pending embedding", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, cmerr.Store("reading pending embeddings", err)
	}

	for i := range out {
		files, err := s.filesChanged(ctx, repoID, out[i].SHA)
		if err != nil {
			return nil, err
		}
		out[i].FilesChanged = files
	}

	return out, nil
}

func (s *Store) filesChanged(ctx context.Context, repoID int64, sha string) ([]string, error) {
	s.mu.Lock()
	rows, err := s.conn.QueryContext(ctx,
		`SELECT path FROM commit_files WHERE repo_id = ? AND sha = ? ORDER BY path`, repoID, sha)
	s.mu.Unlock()
	if err != nil {
		return nil, cmerr.Store("reading changed files", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, cmerr.Store("scanning changed file", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// CountEmbeddingsForRepo reports how many commits in repoID have a
// key-map entry, used by status reporting to show embedding progress.
func (s *Store) CountEmbeddingsForRepo(ctx context.Context, repoID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embed_keymap WHERE repo_id = ?`, repoID).Scan(&n); err != nil {
		return 0, cmerr.Store("counting embeddings", err)
	}
	return n, nil
}

// EmbeddingDimension returns the dimensionality this Store was opened
// with (Options.EmbeddingDimension, default 768), used to check a fresh
// embedding vector matches before storing it (SPEC_FULL.md's
// dimension-mismatch config-error check). Open does not read the width
// back from an embed_vectors table that already exists.
func (s *Store) EmbeddingDimension() int {
	return s.embeddingDim
}

// CheckEmbeddingDimension rejects a vector whose length doesn't match
// store.EmbeddingDimension().
func CheckEmbeddingDimension(store *Store, vector []float32) error {
	if len(vector) != store.EmbeddingDimension() {
		return cmerr.Config(fmt.Sprintf(
			"embedding has %d dimensions, but the database was initialized for %d. Reconfigure embed.model or rebuild the database.",
			len(vector), store.EmbeddingDimension()))
	}
	return nil
}
