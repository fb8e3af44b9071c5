// Package coordinator orchestrates a sync run across every registered
// repo: Ingester.SyncRepo, then Embedder.EmbedPending when a repo has
// embeddings enabled, aggregating one status summary and one process
// exit code for the caller (cmd/commitmux).
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"codetect/internal/embedding"
	"codetect/internal/ingest"
	"codetect/internal/logging"
	"codetect/internal/store"
)

// EmbedBatchSize bounds how many commits EmbedPending fetches per round
// trip to the store during a coordinator-driven sync.
const EmbedBatchSize = 16

// RepoResult is one repo's outcome within a Run.
type RepoResult struct {
	Repo     string
	Duration time.Duration
	Ingest   ingest.Summary
	Embed    *embedding.BackfillSummary // nil when the repo has embedding disabled or its sync failed
	Err      error
}

// RunSummary aggregates every repo's RepoResult for one coordinator Run.
type RunSummary struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Repos    []RepoResult
}

// Failed reports whether any repo in the run hit a fatal error, the
// signal cmd/commitmux uses to pick a non-zero process exit code.
func (r RunSummary) Failed() bool {
	for _, rr := range r.Repos {
		if rr.Err != nil {
			return true
		}
	}
	return false
}

// Coordinator runs sync/embed passes over every registered repo.
type Coordinator struct {
	Store    *store.Store
	Logger   *slog.Logger
	Ignore   ingest.IgnoreConfig
	EmbedNow func(ctx context.Context, st *store.Store, repoID int64, logger *slog.Logger) (embedding.BackfillSummary, error)
}

// New builds a Coordinator wired to the default embed-backfill function
// (reads embed config from store, builds the configured embedder).
func New(st *store.Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Coordinator{
		Store:    st,
		Logger:   logger,
		EmbedNow: defaultEmbedNow,
	}
}

func defaultEmbedNow(ctx context.Context, st *store.Store, repoID int64, logger *slog.Logger) (embedding.BackfillSummary, error) {
	cfg, err := embedding.FromStore(ctx, st)
	if err != nil {
		return embedding.BackfillSummary{}, fmt.Errorf("loading embed config: %w", err)
	}
	embedder := cfg.NewEmbedder()
	return embedding.EmbedPending(ctx, st, embedder, repoID, EmbedBatchSize, logger)
}

// Run syncs every repo in repos in order, embedding pending commits
// afterward for any repo with EmbedEnabled set, unless embedOnly skips
// straight to the embed step (used by the --embed-only CLI flag).
func (c *Coordinator) Run(ctx context.Context, repos []store.Repo, embedOnly bool) RunSummary {
	runID := uuid.NewString()
	started := time.Now()
	logger := c.Logger.With("run_id", runID)

	summary := RunSummary{RunID: runID, Started: started}

	for _, repo := range repos {
		repoStart := time.Now()
		result := RepoResult{Repo: repo.Name}

		if !embedOnly {
			s, err := ingest.SyncRepo(ctx, repo, c.Store, c.Ignore, logger.With("repo", repo.Name))
			result.Ingest = s
			if err != nil {
				result.Err = fmt.Errorf("syncing %s: %w", repo.Name, err)
				logger.Error("sync failed", "repo", repo.Name, "error", err)
			}
		}

		if result.Err == nil && repo.EmbedEnabled {
			s, err := c.EmbedNow(ctx, c.Store, repo.ID, logger.With("repo", repo.Name))
			result.Embed = &s
			if err != nil {
				result.Err = fmt.Errorf("embedding %s: %w", repo.Name, err)
				logger.Error("embed failed", "repo", repo.Name, "error", err)
			}
		}

		result.Duration = time.Since(repoStart)
		summary.Repos = append(summary.Repos, result)
	}

	summary.Duration = time.Since(started)
	return summary
}
