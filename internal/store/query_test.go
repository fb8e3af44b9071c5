package store

import (
	"context"
	"testing"

	"codetect/internal/cmerr"
)

func seedCommit(t *testing.T, st *Store, repoID int64, sha, subject string, authorTime int64, files []CommitFile) {
	t.Helper()
	ctx := context.Background()
	if err := st.UpsertCommit(ctx, Commit{RepoID: repoID, SHA: sha, AuthorName: "alice", AuthorEmail: "alice@x",
		CommitterName: "alice", CommitterEmail: "alice@x", AuthorTime: authorTime, CommitTime: authorTime, Subject: subject}); err != nil {
		t.Fatalf("UpsertCommit(%s): %v", sha, err)
	}
	if len(files) > 0 {
		if err := st.UpsertCommitFiles(ctx, repoID, sha, files); err != nil {
			t.Fatalf("UpsertCommitFiles(%s): %v", sha, err)
		}
	}
}

func TestSearchMatchesSubjectAndFiltersByRepoAndSince(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	r1 := addTestRepo(t, st, "one")
	r2 := addTestRepo(t, st, "two")

	seedCommit(t, st, r1.ID, "c1", "fix parser bug", 100, nil)
	seedCommit(t, st, r1.ID, "c2", "unrelated change", 200, nil)
	seedCommit(t, st, r2.ID, "c3", "fix parser edge case", 300, nil)

	results, err := st.Search(ctx, "parser", SearchOpts{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(results))
	}

	results, err = st.Search(ctx, "parser", SearchOpts{Repos: []string{"one"}})
	if err != nil {
		t.Fatalf("Search with repo filter: %v", err)
	}
	if len(results) != 1 || results[0].Repo != "one" {
		t.Fatalf("expected 1 match in repo one, got %+v", results)
	}

	results, err = st.Search(ctx, "parser", SearchOpts{Since: 250})
	if err != nil {
		t.Fatalf("Search with since filter: %v", err)
	}
	if len(results) != 1 || results[0].SHA != "c3" {
		t.Fatalf("expected only c3 after since=250, got %+v", results)
	}
}

func TestSearchFiltersByPathSubstring(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	repo := addTestRepo(t, st, "r")

	seedCommit(t, st, repo.ID, "c1", "fix widget bug", 1, []CommitFile{{RepoID: repo.ID, SHA: "c1", Path: "internal/widget/widget.go", Status: StatusModified}})
	seedCommit(t, st, repo.ID, "c2", "fix widget bug elsewhere", 2, []CommitFile{{RepoID: repo.ID, SHA: "c2", Path: "internal/other/other.go", Status: StatusModified}})

	results, err := st.Search(ctx, "widget", SearchOpts{Paths: []string{"internal/widget"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].SHA != "c1" {
		t.Fatalf("expected only c1 to match the path filter, got %+v", results)
	}
	if len(results[0].MatchedPaths) != 1 || results[0].MatchedPaths[0] != "internal/widget/widget.go" {
		t.Errorf("MatchedPaths = %+v", results[0].MatchedPaths)
	}
}

func TestTouchesOrdersNewestFirstAndFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	repo := addTestRepo(t, st, "r")

	seedCommit(t, st, repo.ID, "c1", "old change", 100, []CommitFile{{RepoID: repo.ID, SHA: "c1", Path: "docs/readme.md", Status: StatusModified}})
	seedCommit(t, st, repo.ID, "c2", "new change", 200, []CommitFile{{RepoID: repo.ID, SHA: "c2", Path: "docs/guide.md", Status: StatusAdded}})

	results, err := st.Touches(ctx, "docs/", TouchesOpts{})
	if err != nil {
		t.Fatalf("Touches: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 touches, got %d", len(results))
	}
	if results[0].SHA != "c2" {
		t.Errorf("expected newest-first ordering, got %+v", results)
	}

	results, err = st.Touches(ctx, "docs/", TouchesOpts{Since: 150})
	if err != nil {
		t.Fatalf("Touches with since: %v", err)
	}
	if len(results) != 1 || results[0].SHA != "c2" {
		t.Fatalf("expected only c2 after since=150, got %+v", results)
	}
}

func TestGetCommitResolvesSHAPrefix(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	repo := addTestRepo(t, st, "r")
	seedCommit(t, st, repo.ID, "abcdef1234", "prefix test", 1, nil)

	d, err := st.GetCommit(ctx, "r", "abcdef")
	if err != nil {
		t.Fatalf("GetCommit: %v", err)
	}
	if d.SHA != "abcdef1234" {
		t.Errorf("SHA = %q, want abcdef1234", d.SHA)
	}
}

func TestGetCommitUnknownRepoNotFound(t *testing.T) {
	st := openTestStore(t)
	_, err := st.GetCommit(context.Background(), "ghost", "abc")
	if kind, ok := cmerr.KindOf(err); !ok || kind != cmerr.KindNotFound {
		t.Errorf("expected KindNotFound, got %v", err)
	}
}

func TestGetCommitUnknownSHANotFound(t *testing.T) {
	st := openTestStore(t)
	addTestRepo(t, st, "r")
	_, err := st.GetCommit(context.Background(), "r", "deadbeef")
	if kind, ok := cmerr.KindOf(err); !ok || kind != cmerr.KindNotFound {
		t.Errorf("expected KindNotFound, got %v", err)
	}
}

func TestGetPatchTruncatesAtMaxBytes(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	repo := addTestRepo(t, st, "r")
	seedCommit(t, st, repo.ID, "c1", "big patch", 1, nil)

	text := "0123456789"
	blob, err := CompressPatch(text)
	if err != nil {
		t.Fatalf("CompressPatch: %v", err)
	}
	if err := st.UpsertPatch(ctx, CommitPatch{RepoID: repo.ID, SHA: "c1", Compressed: blob, PatchPreview: "preview"}); err != nil {
		t.Fatalf("UpsertPatch: %v", err)
	}

	p, err := st.GetPatch(ctx, "r", "c1", 4)
	if err != nil {
		t.Fatalf("GetPatch: %v", err)
	}
	if p.PatchText != "0123" {
		t.Errorf("PatchText = %q, want truncated to 4 bytes", p.PatchText)
	}
}

func TestGetPatchNotFound(t *testing.T) {
	st := openTestStore(t)
	addTestRepo(t, st, "r")
	_, err := st.GetPatch(context.Background(), "r", "nosuch", 0)
	if kind, ok := cmerr.KindOf(err); !ok || kind != cmerr.KindNotFound {
		t.Errorf("expected KindNotFound, got %v", err)
	}
}

func TestTruncateRunesPreservesMultiByteBoundary(t *testing.T) {
	s := "héllo" // 'é' is 2 bytes in UTF-8
	got := truncateRunes(s, 2)
	if got != "h" {
		t.Errorf("truncateRunes(%q, 2) = %q, want %q", s, got, "h")
	}
}
