// Package ingest walks a registered repo's commit graph and writes the
// results through an internal/store.Store. SyncRepo is its entire
// contract; everything else in this package is private plumbing.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
	ignore "github.com/sabhiram/go-gitignore"

	"codetect/internal/cmerr"
	"codetect/internal/logging"
	"codetect/internal/store"
)

// maxPatchBytes is the encoded-size ceiling above which a commit's patch
// text is skipped entirely (no CommitPatch row written).
const maxPatchBytes = 1 << 20 // 1 MiB

// patchPreviewChars is the length of the uncompressed excerpt stored
// alongside the compressed patch blob.
const patchPreviewChars = 500

// defaultExcludePrefixes are always merged into the effective ignore
// config, regardless of a repo's own exclude_prefixes.
var defaultExcludePrefixes = []string{
	"vendor/",
	"node_modules/",
	"third_party/",
	".git/",
}

// IgnoreConfig is the caller-supplied baseline; SyncRepo merges a repo's
// persisted exclude_prefixes into a copy without mutating this value.
type IgnoreConfig struct {
	PathPrefixes []string
}

// Summary reports the outcome of one SyncRepo call.
type Summary struct {
	CommitsIndexed        int
	CommitsAlreadyIndexed int
	CommitsFiltered       int
	Errors                []string
}

func (s *Summary) addError(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

// SyncRepo clones or fetches repo's remote if needed, resolves the walk
// tip, then walks its commit history writing commits/files/patches to
// store. It always returns a Summary, even when some steps failed; only
// clone/fetch, opening the repository, tip resolution and starting the
// history walk are fatal to the call.
func SyncRepo(ctx context.Context, repo store.Repo, st *store.Store, cfg IgnoreConfig, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	var summary Summary

	if err := prepareWorkingCopy(ctx, repo, logger); err != nil {
		return summary, cmerr.Git("preparing working copy", err)
	}

	gitRepo, err := openRepo(repo.Path)
	if err != nil {
		return summary, cmerr.Git("opening repository", err)
	}

	tipHash, err := resolveTip(gitRepo, repo.DefaultBranch)
	if err != nil {
		return summary, cmerr.Git("resolving walk tip", err)
	}

	effective := mergeIgnoreConfig(cfg, repo.ExcludePrefixes)
	matcher := ignore.CompileIgnoreLines(effective.PathPrefixes...)

	hidden := map[string]bool{}
	if repo.ForkOf != "" {
		hidden = applyForkOfExclusion(gitRepo, repo, tipHash, &summary, logger)
	}

	commitIter, err := gitRepo.Log(logOptionsFor(tipHash))
	if err != nil {
		return summary, cmerr.Git("walking commit history", err)
	}

	err = commitIter.ForEach(func(c *object.Commit) error {
		sha := c.Hash.String()
		if hidden[sha] {
			return nil
		}
		processCommit(ctx, st, repo, c, matcher, &summary, logger)
		return nil
	})
	if err != nil {
		summary.addError("walking commit history: %s", err)
	}

	state := store.IngestState{
		RepoID:        repo.ID,
		LastSyncedAt:  time.Now().Unix(),
		LastSyncedSHA: tipHash.String(),
	}
	if len(summary.Errors) > 0 {
		state.LastError = summary.Errors[len(summary.Errors)-1]
	}
	if err := st.SetIngestState(ctx, state); err != nil {
		summary.addError("writing ingest state: %s", err)
	}

	return summary, nil
}

// processCommit runs the existence check, author filter, diff
// extraction, and writes for a single commit, accumulating into summary.
// The existence check always runs before the author filter so an
// already-indexed commit counts as already-indexed regardless of the
// current filter value.
func processCommit(ctx context.Context, st *store.Store, repo store.Repo, c *object.Commit, matcher *ignore.GitIgnore, summary *Summary, logger *slog.Logger) {
	sha := c.Hash.String()

	exists, err := st.CommitExists(ctx, repo.ID, sha)
	if err != nil {
		summary.addError("checking existence of %s: %s", sha, err)
	} else if exists {
		summary.CommitsAlreadyIndexed++
		return
	}

	if repo.AuthorFilter != "" && !strings.EqualFold(strings.TrimSpace(c.Author.Email), strings.TrimSpace(repo.AuthorFilter)) {
		summary.CommitsFiltered++
		return
	}

	files, patchText, err := extractDiff(c, matcher)
	if err != nil {
		summary.addError("diffing %s: %s", sha, err)
		return
	}

	commit := store.Commit{
		RepoID:         repo.ID,
		SHA:            sha,
		AuthorName:     c.Author.Name,
		AuthorEmail:    c.Author.Email,
		CommitterName:  c.Committer.Name,
		CommitterEmail: c.Committer.Email,
		AuthorTime:     c.Author.When.Unix(),
		CommitTime:     c.Committer.When.Unix(),
		Subject:        subjectLine(c.Message),
		Body:           bodyText(c.Message),
		ParentCount:    c.NumParents(),
	}

	if err := st.UpsertCommit(ctx, commit); err != nil {
		summary.addError("storing commit %s: %s", sha, err)
		return
	}
	if err := st.UpsertCommitFiles(ctx, repo.ID, sha, files); err != nil {
		summary.addError("storing files for %s: %s", sha, err)
	}

	if patchText != "" {
		if len(patchText) > maxPatchBytes {
			logger.Debug("skipping oversized patch", "sha", sha, "bytes", len(patchText))
		} else {
			compressed, err := store.CompressPatch(patchText)
			if err != nil {
				summary.addError("compressing patch for %s: %s", sha, err)
			} else if err := st.UpsertPatch(ctx, store.CommitPatch{
				RepoID:       repo.ID,
				SHA:          sha,
				Compressed:   compressed,
				PatchPreview: truncatePreview(patchText, patchPreviewChars),
			}); err != nil {
				summary.addError("storing patch for %s: %s", sha, err)
			}
		}
	}

	summary.CommitsIndexed++
}

func subjectLine(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return message[:i]
	}
	return message
}

func bodyText(message string) string {
	i := strings.IndexByte(message, '\n')
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(message[i+1:])
}

func truncatePreview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// mergeIgnoreConfig returns a copy of cfg with a repo's exclude_prefixes
// and the package defaults merged in, never mutating cfg.PathPrefixes.
func mergeIgnoreConfig(cfg IgnoreConfig, repoExcludes []string) IgnoreConfig {
	merged := make([]string, 0, len(cfg.PathPrefixes)+len(repoExcludes)+len(defaultExcludePrefixes))
	merged = append(merged, defaultExcludePrefixes...)
	merged = append(merged, cfg.PathPrefixes...)
	merged = append(merged, repoExcludes...)
	return IgnoreConfig{PathPrefixes: merged}
}
