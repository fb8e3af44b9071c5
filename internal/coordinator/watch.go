package coordinator

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"codetect/internal/store"
)

// watchDebounce collapses a burst of ref-update events (git writes several
// files per commit/fetch) into a single resync.
const watchDebounce = 2 * time.Second

// Watch blocks, triggering a Run over every registered repo whenever any
// repo's .git/HEAD, packed-refs or refs/heads changes, until ctx is
// cancelled. It is
// the Coordinator's --watch mode: the teacher's internal/daemon watched
// entire source trees for an unrelated code-symbol indexer; commitmux only
// needs to notice "this working copy's ref state moved," so it watches a
// handful of fixed paths per repo instead of walking the whole tree.
func (c *Coordinator) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	repos, err := c.Store.ListRepos(ctx)
	if err != nil {
		return err
	}
	for _, repo := range repos {
		for _, p := range refPaths(repo) {
			// Missing paths (e.g. a repo with no packed-refs yet) are not
			// fatal; HEAD always exists once cloned.
			watcher.Add(p)
		}
	}
	c.Logger.Info("watch mode started", "repos", len(repos))

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.Logger.Error("watcher error", "error", err)

		case <-pending:
			repos, err := c.Store.ListRepos(ctx)
			if err != nil {
				c.Logger.Error("listing repos for watch resync", "error", err)
				continue
			}
			summary := c.Run(ctx, repos, false)
			if summary.Failed() {
				c.Logger.Warn("watch-triggered sync completed with errors", "run_id", summary.RunID)
			} else {
				c.Logger.Info("watch-triggered sync completed", "run_id", summary.RunID)
			}
		}
	}
}

// refPaths returns the fixed set of paths inside repo.Path whose mtime
// changes whenever the repo's ref state moves.
func refPaths(repo store.Repo) []string {
	gitDir := filepath.Join(repo.Path, ".git")
	return []string{
		filepath.Join(gitDir, "HEAD"),
		filepath.Join(gitDir, "packed-refs"),
		filepath.Join(gitDir, "refs", "heads"),
	}
}
