package ingest

import (
	"errors"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
)

func TestErrOrNoBase(t *testing.T) {
	t.Run("passes through a non-nil error", func(t *testing.T) {
		want := errors.New("boom")
		if got := errOrNoBase(want); got != want {
			t.Errorf("errOrNoBase(%v) = %v, want the same error", want, got)
		}
	})

	t.Run("synthesizes a message when err is nil", func(t *testing.T) {
		got := errOrNoBase(nil)
		if got == nil {
			t.Fatal("expected a non-nil error for the no-common-ancestor case")
		}
	})
}

func TestEnsureUpstreamRemote(t *testing.T) {
	t.Run("creates the remote when absent", func(t *testing.T) {
		repo, err := git.PlainInit(t.TempDir(), false)
		if err != nil {
			t.Fatalf("PlainInit: %v", err)
		}
		if err := ensureUpstreamRemote(repo, "https://example.com/upstream.git"); err != nil {
			t.Fatalf("ensureUpstreamRemote: %v", err)
		}
		remote, err := repo.Remote("upstream")
		if err != nil {
			t.Fatalf("Remote: %v", err)
		}
		if urls := remote.Config().URLs; len(urls) != 1 || urls[0] != "https://example.com/upstream.git" {
			t.Errorf("upstream URLs = %v, want [https://example.com/upstream.git]", urls)
		}
	})

	t.Run("resets the remote when it points elsewhere", func(t *testing.T) {
		repo, err := git.PlainInit(t.TempDir(), false)
		if err != nil {
			t.Fatalf("PlainInit: %v", err)
		}
		if _, err := repo.CreateRemote(&config.RemoteConfig{Name: "upstream", URLs: []string{"https://example.com/old.git"}}); err != nil {
			t.Fatalf("CreateRemote: %v", err)
		}
		if err := ensureUpstreamRemote(repo, "https://example.com/new.git"); err != nil {
			t.Fatalf("ensureUpstreamRemote: %v", err)
		}
		remote, err := repo.Remote("upstream")
		if err != nil {
			t.Fatalf("Remote: %v", err)
		}
		if urls := remote.Config().URLs; len(urls) != 1 || urls[0] != "https://example.com/new.git" {
			t.Errorf("upstream URLs = %v, want [https://example.com/new.git] after reset", urls)
		}
	})

	t.Run("leaves a matching remote untouched", func(t *testing.T) {
		repo, err := git.PlainInit(t.TempDir(), false)
		if err != nil {
			t.Fatalf("PlainInit: %v", err)
		}
		if _, err := repo.CreateRemote(&config.RemoteConfig{Name: "upstream", URLs: []string{"https://example.com/same.git"}}); err != nil {
			t.Fatalf("CreateRemote: %v", err)
		}
		if err := ensureUpstreamRemote(repo, "https://example.com/same.git"); err != nil {
			t.Fatalf("ensureUpstreamRemote: %v", err)
		}
		remote, err := repo.Remote("upstream")
		if err != nil {
			t.Fatalf("Remote: %v", err)
		}
		if urls := remote.Config().URLs; len(urls) != 1 || urls[0] != "https://example.com/same.git" {
			t.Errorf("upstream URLs = %v, want [https://example.com/same.git] unchanged", urls)
		}
	})
}
