package ingest

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"codetect/internal/store"
)

// applyForkOfExclusion implements spec.md §4.2's optional fork-of
// exclusion: ensure an "upstream" remote, fetch it, resolve its tip, and
// return the set of commit shas ancestor-reachable from the merge base
// between tip and the upstream tip — the caller skips every commit in
// that set during its own walk. Every step's failure is appended to
// summary.Errors. A failed upstream fetch then continues with the local
// upstream refs; any other failure returns an empty set, so the walk
// proceeds unrestricted.
func applyForkOfExclusion(repo *git.Repository, r store.Repo, tip plumbing.Hash, summary *Summary, logger *slog.Logger) map[string]bool {
	empty := map[string]bool{}

	if err := ensureUpstreamRemote(repo, r.ForkOf); err != nil {
		summary.addError("fork-of: configuring upstream remote: %s", err)
		return empty
	}

	if err := repo.Fetch(&git.FetchOptions{RemoteName: "upstream"}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		summary.addError("fork-of: fetching upstream: %s", err)
		// Non-fatal per spec.md: a stale local upstream ref may still be usable.
	}

	upstreamTip, err := resolveUpstreamTip(repo)
	if err != nil {
		summary.addError("fork-of: resolving upstream tip: %s", err)
		return empty
	}

	tipCommit, err := repo.CommitObject(tip)
	if err != nil {
		summary.addError("fork-of: loading walk tip commit: %s", err)
		return empty
	}
	upstreamCommit, err := repo.CommitObject(upstreamTip)
	if err != nil {
		summary.addError("fork-of: loading upstream tip commit: %s", err)
		return empty
	}

	bases, err := tipCommit.MergeBase(upstreamCommit)
	if err != nil || len(bases) == 0 {
		summary.addError("fork-of: computing merge base: %s", errOrNoBase(err))
		return empty
	}

	hidden, err := ancestorShas(bases[0])
	if err != nil {
		summary.addError("fork-of: walking merge-base ancestry: %s", err)
		return empty
	}
	logger.Debug("fork-of exclusion applied", "repo", r.Name, "hidden_count", len(hidden))
	return hidden
}

func errOrNoBase(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("no common ancestor with upstream")
}

// ensureUpstreamRemote creates or resets a remote named "upstream"
// pointing at url. An existing remote is left alone if it already points
// at url; otherwise it's deleted and recreated, so a repo's fork_of
// being repointed takes effect on the next sync.
func ensureUpstreamRemote(repo *git.Repository, url string) error {
	existing, err := repo.Remote("upstream")
	if err == nil {
		cfg := existing.Config()
		if len(cfg.URLs) == 1 && cfg.URLs[0] == url {
			return nil
		}
		if err := repo.DeleteRemote("upstream"); err != nil {
			return err
		}
	}
	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "upstream", URLs: []string{url}})
	if err != nil {
		return err
	}
	return nil
}

// resolveUpstreamTip tries refs/remotes/upstream/HEAD, then /main, then
// /master, in that order.
func resolveUpstreamTip(repo *git.Repository) (plumbing.Hash, error) {
	candidates := []string{
		"refs/remotes/upstream/HEAD",
		"refs/remotes/upstream/main",
		"refs/remotes/upstream/master",
	}
	for _, name := range candidates {
		ref, err := repo.Reference(plumbing.ReferenceName(name), true)
		if err == nil {
			return ref.Hash(), nil
		}
	}
	return plumbing.ZeroHash, fmt.Errorf("no upstream HEAD/main/master reference found")
}

// ancestorShas walks the full history reachable from base and returns
// every sha it visits, including base itself.
func ancestorShas(base *object.Commit) (map[string]bool, error) {
	visited := map[string]bool{}
	queue := []*object.Commit{base}

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]

		sha := c.Hash.String()
		if visited[sha] {
			continue
		}
		visited[sha] = true

		err := c.Parents().ForEach(func(p *object.Commit) error {
			if !visited[p.Hash.String()] {
				queue = append(queue, p)
			}
			return nil
		})
		if err != nil {
			return visited, err
		}
	}

	return visited, nil
}
