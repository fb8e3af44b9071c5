package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// BackfillStore is the slice of the store's embedding operations
// embed_pending needs. internal/store.Store implements it.
type BackfillStore interface {
	GetCommitsWithoutEmbeddings(ctx context.Context, repoID int64, limit int) ([]EmbedCommit, error)
	StoreEmbedding(ctx context.Context, c EmbedCommit, vector []float32) error
}

// BackfillSummary reports the outcome of an embed_pending run.
type BackfillSummary struct {
	Embedded int
	Skipped  int
	Failed   int
}

// connectionFailureSubstring is the error-chain marker litellm.go's
// transport error wrapping produces ("sending request: %w") when the HTTP
// round trip itself fails, as opposed to a non-200 response or a decode
// error. Classifying on this substring is how embed_pending distinguishes
// "the endpoint is down" from "this one commit failed to embed".
const connectionFailureSubstring = "sending request"

// EmbedPending batches commits lacking embeddings through embedder and
// writes each result back to store, newest-first. A transport-level
// connection failure on any call aborts the whole run immediately with an
// actionable message; any other per-commit failure is logged and counted,
// and the loop continues. A batch in which no commit could be stored ends
// the run, since the next fetch would return the same commits again.
// batchSize bounds how many commits are fetched from the store per
// round-trip.
func EmbedPending(ctx context.Context, store BackfillStore, embedder Embedder, repoID int64, batchSize int, logger *slog.Logger) (BackfillSummary, error) {
	var summary BackfillSummary

	for {
		batch, err := store.GetCommitsWithoutEmbeddings(ctx, repoID, batchSize)
		if err != nil {
			return summary, fmt.Errorf("fetching commits without embeddings: %w", err)
		}
		if len(batch) == 0 {
			return summary, nil
		}

		embeddedBefore := summary.Embedded
		for _, c := range batch {
			doc := BuildDocument(c)

			vectors, err := embedder.Embed(ctx, []string{doc})
			if err != nil {
				if strings.Contains(err.Error(), connectionFailureSubstring) {
					return summary, fmt.Errorf("cannot connect to embedding endpoint: %w", err)
				}
				logger.Error("embedding commit failed", "repo", c.RepoName, "sha", c.SHA, "error", err)
				summary.Failed++
				continue
			}
			if len(vectors) == 0 {
				logger.Error("embedding commit returned no vector", "repo", c.RepoName, "sha", c.SHA)
				summary.Failed++
				continue
			}

			if err := store.StoreEmbedding(ctx, c, vectors[0]); err != nil {
				logger.Error("storing embedding failed", "repo", c.RepoName, "sha", c.SHA, "error", err)
				summary.Failed++
				continue
			}

			summary.Embedded++
		}

		if summary.Embedded == embeddedBefore {
			return summary, nil
		}
	}
}
