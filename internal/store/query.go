package store

import (
	"context"
	"fmt"
	"strings"

	"codetect/internal/cmerr"
)

const (
	defaultSearchLimit  = 20
	defaultTouchesLimit = 50
	// lexicalExcerptLimit is the character cap on a lexical SearchResult's
	// patch_excerpt, independent of patch_preview's own 500-character cap.
	lexicalExcerptLimit = 300
)

// Search executes a full-text match against the subject/body/patch_preview
// index, optionally narrowed by repo-name set, since, and path substrings
// (applied as a post-filter requiring the commit to touch at least one
// matching path). Results are ordered by FTS rank.
func (s *Store) Search(ctx context.Context, query string, opts SearchOpts) ([]SearchResult, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}

	var b strings.Builder
	args := []any{query}
	b.WriteString(`SELECT r.name, c.sha, c.subject, c.author_name, c.author_time, cf.patch_preview
		FROM commits_fts f
		JOIN commits c ON c.rowid = f.rowid
		JOIN repos r ON r.id = c.repo_id
		LEFT JOIN commit_patches cf ON cf.repo_id = c.repo_id AND cf.sha = c.sha
		WHERE commits_fts MATCH ?`)

	if opts.Since != 0 {
		b.WriteString(` AND c.author_time >= ?`)
		args = append(args, opts.Since)
	}
	if len(opts.Repos) > 0 {
		b.WriteString(` AND r.name IN (` + placeholders(len(opts.Repos)) + `)`)
		for _, name := range opts.Repos {
			args = append(args, name)
		}
	}

	b.WriteString(` ORDER BY f.rank LIMIT ?`)
	args = append(args, limit)

	s.mu.Lock()
	rows, err := s.conn.QueryContext(ctx, b.String(), args...)
	s.mu.Unlock()
	if err != nil {
		return nil, cmerr.Store("executing search", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var preview *string
		if err := rows.Scan(&r.Repo, &r.SHA, &r.Subject, &r.Author, &r.Date, &preview); err != nil {
			return nil, cmerr.Store("scanning search result", err)
		}
		if preview != nil {
			excerpt := []rune(*preview)
			if len(excerpt) > lexicalExcerptLimit {
				excerpt = excerpt[:lexicalExcerptLimit]
			}
			r.PatchExcerpt = string(excerpt)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, cmerr.Store("reading search results", err)
	}

	if len(opts.Paths) > 0 {
		filtered := results[:0]
		for _, r := range results {
			matched, err := s.matchedPaths(ctx, r, opts.Paths)
			if err != nil {
				return nil, err
			}
			if len(matched) > 0 {
				r.MatchedPaths = matched
				filtered = append(filtered, r)
			}
		}
		return filtered, nil
	}

	return results, nil
}

// matchedPaths resolves which of substrings appear in the changed-file
// paths for the commit behind r, looking the commit up by (repo, sha).
func (s *Store) matchedPaths(ctx context.Context, r SearchResult, substrings []string) ([]string, error) {
	s.mu.Lock()
	rows, err := s.conn.QueryContext(ctx,
		`SELECT cf.path FROM commit_files cf
		 JOIN commits c ON c.repo_id = cf.repo_id AND c.sha = cf.sha
		 JOIN repos r ON r.id = c.repo_id
		 WHERE r.name = ? AND cf.sha = ?`, r.Repo, r.SHA)
	s.mu.Unlock()
	if err != nil {
		return nil, cmerr.Store("reading commit files", err)
	}
	defer rows.Close()

	var matched []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, cmerr.Store("scanning commit file path", err)
		}
		for _, sub := range substrings {
			if strings.Contains(path, sub) {
				matched = append(matched, path)
				break
			}
		}
	}
	return matched, rows.Err()
}

// Touches returns one row per (commit, matching file) whose path contains
// pathSubstring, newest-first by author time.
func (s *Store) Touches(ctx context.Context, pathSubstring string, opts TouchesOpts) ([]TouchResult, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = defaultTouchesLimit
	}

	var b strings.Builder
	args := []any{"%" + pathSubstring + "%"}
	b.WriteString(`SELECT r.name, c.sha, c.subject, c.author_time, cf.path, cf.status
		FROM commit_files cf
		JOIN commits c ON c.repo_id = cf.repo_id AND c.sha = cf.sha
		JOIN repos r ON r.id = c.repo_id
		WHERE cf.path LIKE ? ESCAPE '\'`)

	if opts.Since != 0 {
		b.WriteString(` AND c.author_time >= ?`)
		args = append(args, opts.Since)
	}
	if len(opts.Repos) > 0 {
		b.WriteString(` AND r.name IN (` + placeholders(len(opts.Repos)) + `)`)
		for _, name := range opts.Repos {
			args = append(args, name)
		}
	}

	b.WriteString(` ORDER BY c.author_time DESC LIMIT ?`)
	args = append(args, limit)

	s.mu.Lock()
	rows, err := s.conn.QueryContext(ctx, b.String(), args...)
	s.mu.Unlock()
	if err != nil {
		return nil, cmerr.Store("executing touches", err)
	}
	defer rows.Close()

	var results []TouchResult
	for rows.Next() {
		var r TouchResult
		if err := rows.Scan(&r.Repo, &r.SHA, &r.Subject, &r.Date, &r.Path, &r.Status); err != nil {
			return nil, cmerr.Store("scanning touches result", err)
		}
		r.Status = FileStatus(r.Status).Code()
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetCommit resolves shaOrPrefix via LIKE '<prefix>%', breaking ties on
// multiple prefix matches by author-time descending.
func (s *Store) GetCommit(ctx context.Context, repoName, shaOrPrefix string) (CommitDetail, error) {
	s.mu.Lock()
	var repoID int64
	err := s.conn.QueryRowContext(ctx, `SELECT id FROM repos WHERE name = ?`, repoName).Scan(&repoID)
	s.mu.Unlock()
	if err != nil {
		if isNoRows(err) {
			return CommitDetail{}, cmerr.NotFound(fmt.Sprintf("repo %q not found", repoName))
		}
		return CommitDetail{}, cmerr.Store("looking up repo", err)
	}

	s.mu.Lock()
	row := s.conn.QueryRowContext(ctx,
		`SELECT sha, subject, body, author_name, author_time FROM commits
		 WHERE repo_id = ? AND sha LIKE ?
		 ORDER BY author_time DESC LIMIT 1`, repoID, shaOrPrefix+"%")
	var d CommitDetail
	err = row.Scan(&d.SHA, &d.Subject, &d.Body, &d.Author, &d.Date)
	s.mu.Unlock()
	if err != nil {
		if isNoRows(err) {
			return CommitDetail{}, cmerr.NotFound(fmt.Sprintf("no commit matching %q in repo %q", shaOrPrefix, repoName))
		}
		return CommitDetail{}, cmerr.Store("reading commit", err)
	}
	d.Repo = repoName

	s.mu.Lock()
	rows, err := s.conn.QueryContext(ctx,
		`SELECT path, status, old_path FROM commit_files WHERE repo_id = ? AND sha = ?`, repoID, d.SHA)
	s.mu.Unlock()
	if err != nil {
		return CommitDetail{}, cmerr.Store("reading changed files", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f ChangedFile
		var oldPath *string
		if err := rows.Scan(&f.Path, &f.Status, &oldPath); err != nil {
			return CommitDetail{}, cmerr.Store("scanning changed file", err)
		}
		f.Status = FileStatus(f.Status).Code()
		if oldPath != nil {
			f.OldPath = *oldPath
		}
		d.ChangedFiles = append(d.ChangedFiles, f)
	}
	if err := rows.Err(); err != nil {
		return CommitDetail{}, cmerr.Store("reading changed files", err)
	}

	return d, nil
}

// GetPatch decompresses the stored patch blob for (repoName, sha) and
// truncates it to maxBytes at a valid rune boundary. maxBytes == 0 means
// unbounded.
func (s *Store) GetPatch(ctx context.Context, repoName, sha string, maxBytes int) (PatchResult, error) {
	s.mu.Lock()
	var repoID int64
	err := s.conn.QueryRowContext(ctx, `SELECT id FROM repos WHERE name = ?`, repoName).Scan(&repoID)
	s.mu.Unlock()
	if err != nil {
		if isNoRows(err) {
			return PatchResult{}, cmerr.NotFound(fmt.Sprintf("repo %q not found", repoName))
		}
		return PatchResult{}, cmerr.Store("looking up repo", err)
	}

	s.mu.Lock()
	var blob []byte
	err = s.conn.QueryRowContext(ctx,
		`SELECT patch_blob FROM commit_patches WHERE repo_id = ? AND sha = ?`, repoID, sha).Scan(&blob)
	s.mu.Unlock()
	if err != nil {
		if isNoRows(err) {
			return PatchResult{}, cmerr.NotFound(fmt.Sprintf("no patch stored for %s@%s", repoName, sha))
		}
		return PatchResult{}, cmerr.Store("reading patch", err)
	}

	text, err := decompressPatch(blob)
	if err != nil {
		return PatchResult{}, cmerr.Io("decompressing patch", err)
	}

	if maxBytes > 0 {
		text = truncateRunes(text, maxBytes)
	}

	return PatchResult{Repo: repoName, SHA: sha, PatchText: text}, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	s := strings.Repeat("?, ", n)
	return strings.TrimSuffix(s, ", ")
}

// truncateRunes cuts s to at most n bytes without splitting a multi-byte
// rune, shrinking until the boundary is valid.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
