package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"codetect/internal/store"
)

// prepareWorkingCopy clones repo's remote into repo.Path if the path is
// absent or empty, otherwise fetches to update the existing working
// copy. A repo with no RemoteURL is assumed to already be a usable local
// working copy and is left untouched.
func prepareWorkingCopy(ctx context.Context, repo store.Repo, logger *slog.Logger) error {
	if repo.RemoteURL == "" {
		return nil
	}

	empty, err := isEmptyOrAbsent(repo.Path)
	if err != nil {
		return fmt.Errorf("checking working copy path: %w", err)
	}

	if empty {
		logger.Info("cloning repo", "name", repo.Name, "url", repo.RemoteURL, "path", repo.Path)
		_, err := git.PlainCloneContext(ctx, repo.Path, false, &git.CloneOptions{
			URL:  repo.RemoteURL,
			Auth: authForURL(repo.RemoteURL),
		})
		if err != nil {
			return fmt.Errorf("cloning %s: %w", repo.RemoteURL, err)
		}
		return nil
	}

	gitRepo, err := git.PlainOpen(repo.Path)
	if err != nil {
		return fmt.Errorf("opening existing working copy: %w", err)
	}

	err = gitRepo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
		Auth:       authForURL(repo.RemoteURL),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetching %s: %w", repo.RemoteURL, err)
	}
	return nil
}

// authForURL picks ssh-agent auth for an ssh:// / git@ URL and leaves
// HTTPS anonymous, per spec.md §4.2's "SSH authentication via SSH-agent;
// HTTPS anonymous".
func authForURL(url string) transport.AuthMethod {
	if !isSSHURL(url) {
		return nil
	}
	auth, err := ssh.NewSSHAgentAuth("git")
	if err != nil {
		return nil
	}
	return auth
}

func isSSHURL(url string) bool {
	return strings.HasPrefix(url, "git@") || strings.HasPrefix(url, "ssh://")
}

func isEmptyOrAbsent(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}

func openRepo(path string) (*git.Repository, error) {
	return git.PlainOpen(path)
}

// resolveTip returns the configured default branch's commit hash, or
// HEAD's if defaultBranch is unset.
func resolveTip(repo *git.Repository, defaultBranch string) (plumbing.Hash, error) {
	if defaultBranch != "" {
		ref, err := repo.Reference(plumbing.NewBranchReferenceName(defaultBranch), true)
		if err == nil {
			return ref.Hash(), nil
		}
	}

	head, err := repo.Head()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolving HEAD: %w", err)
	}
	return head.Hash(), nil
}

func logOptionsFor(tip plumbing.Hash) *git.LogOptions {
	return &git.LogOptions{From: tip, Order: git.LogOrderCommitterTime}
}
