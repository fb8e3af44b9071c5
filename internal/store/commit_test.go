package store

import (
	"context"
	"testing"

	"codetect/internal/cmerr"
)

func addTestRepo(t *testing.T, st *Store, name string) Repo {
	t.Helper()
	repo, err := st.AddRepo(context.Background(), RepoInput{Name: name, Path: "/" + name})
	if err != nil {
		t.Fatalf("AddRepo(%s): %v", name, err)
	}
	return repo
}

func TestUpsertCommitInsertAndUpdate(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	repo := addTestRepo(t, st, "r")

	c := Commit{RepoID: repo.ID, SHA: "abc", AuthorName: "alice", AuthorEmail: "alice@x",
		CommitterName: "alice", CommitterEmail: "alice@x", AuthorTime: 100, CommitTime: 100,
		Subject: "first", Body: "", ParentCount: 0}
	if err := st.UpsertCommit(ctx, c); err != nil {
		t.Fatalf("UpsertCommit: %v", err)
	}

	exists, err := st.CommitExists(ctx, repo.ID, "abc")
	if err != nil {
		t.Fatalf("CommitExists: %v", err)
	}
	if !exists {
		t.Fatalf("expected commit to exist after insert")
	}

	c.Subject = "revised"
	if err := st.UpsertCommit(ctx, c); err != nil {
		t.Fatalf("UpsertCommit (update): %v", err)
	}

	d, err := st.GetCommit(ctx, "r", "abc")
	if err != nil {
		t.Fatalf("GetCommit: %v", err)
	}
	if d.Subject != "revised" {
		t.Errorf("Subject = %q, want revised", d.Subject)
	}
}

func TestCommitExistsFalseForUnknownSHA(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	repo := addTestRepo(t, st, "r")

	exists, err := st.CommitExists(ctx, repo.ID, "deadbeef")
	if err != nil {
		t.Fatalf("CommitExists: %v", err)
	}
	if exists {
		t.Errorf("expected false for an unknown sha")
	}
}

func TestUpsertCommitFilesReplacesPriorRows(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	repo := addTestRepo(t, st, "r")
	if err := st.UpsertCommit(ctx, Commit{RepoID: repo.ID, SHA: "abc", AuthorName: "a", AuthorEmail: "a@x",
		CommitterName: "a", CommitterEmail: "a@x", AuthorTime: 1, CommitTime: 1, Subject: "s"}); err != nil {
		t.Fatalf("UpsertCommit: %v", err)
	}

	err := st.UpsertCommitFiles(ctx, repo.ID, "abc", []CommitFile{
		{RepoID: repo.ID, SHA: "abc", Path: "a.go", Status: StatusAdded},
		{RepoID: repo.ID, SHA: "abc", Path: "b.go", Status: StatusModified},
	})
	if err != nil {
		t.Fatalf("UpsertCommitFiles: %v", err)
	}

	err = st.UpsertCommitFiles(ctx, repo.ID, "abc", []CommitFile{
		{RepoID: repo.ID, SHA: "abc", Path: "c.go", Status: StatusDeleted},
	})
	if err != nil {
		t.Fatalf("UpsertCommitFiles (replace): %v", err)
	}

	d, err := st.GetCommit(ctx, "r", "abc")
	if err != nil {
		t.Fatalf("GetCommit: %v", err)
	}
	if len(d.ChangedFiles) != 1 || d.ChangedFiles[0].Path != "c.go" {
		t.Errorf("ChangedFiles = %+v, want exactly [c.go]", d.ChangedFiles)
	}
}

func TestUpsertPatchRefreshesFTSPreview(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	repo := addTestRepo(t, st, "r")
	if err := st.UpsertCommit(ctx, Commit{RepoID: repo.ID, SHA: "abc", AuthorName: "a", AuthorEmail: "a@x",
		CommitterName: "a", CommitterEmail: "a@x", AuthorTime: 1, CommitTime: 1, Subject: "fix the widget"}); err != nil {
		t.Fatalf("UpsertCommit: %v", err)
	}

	blob, err := CompressPatch("--- a/widget.go\n+++ b/widget.go\n")
	if err != nil {
		t.Fatalf("CompressPatch: %v", err)
	}
	if err := st.UpsertPatch(ctx, CommitPatch{RepoID: repo.ID, SHA: "abc", Compressed: blob, PatchPreview: "widget preview text"}); err != nil {
		t.Fatalf("UpsertPatch: %v", err)
	}

	results, err := st.Search(ctx, "widget", SearchOpts{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 search result, got %d", len(results))
	}
	if results[0].PatchExcerpt != "widget preview text" {
		t.Errorf("PatchExcerpt = %q, want %q", results[0].PatchExcerpt, "widget preview text")
	}

	patch, err := st.GetPatch(ctx, "r", "abc", 0)
	if err != nil {
		t.Fatalf("GetPatch: %v", err)
	}
	if patch.PatchText != "--- a/widget.go\n+++ b/widget.go\n" {
		t.Errorf("PatchText = %q", patch.PatchText)
	}
}

func TestUpsertCommitAfterPatchKeepsFTSPreview(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	repo := addTestRepo(t, st, "r")
	c := Commit{RepoID: repo.ID, SHA: "abc", AuthorName: "a", AuthorEmail: "a@x",
		CommitterName: "a", CommitterEmail: "a@x", AuthorTime: 1, CommitTime: 1, Subject: "fix the widget"}
	if err := st.UpsertCommit(ctx, c); err != nil {
		t.Fatalf("UpsertCommit: %v", err)
	}

	blob, err := CompressPatch("--- a/widget.go\n+++ b/widget.go\n")
	if err != nil {
		t.Fatalf("CompressPatch: %v", err)
	}
	if err := st.UpsertPatch(ctx, CommitPatch{RepoID: repo.ID, SHA: "abc", Compressed: blob, PatchPreview: "frobnicate the gizmo"}); err != nil {
		t.Fatalf("UpsertPatch: %v", err)
	}

	// Re-upserting the commit after its patch has been indexed must not
	// reset commits_fts' patch_preview column back to empty: a 'delete'
	// with the wrong old value corrupts a contentless FTS5 index, and a
	// term that only appears in the patch preview (not the subject) would
	// stop matching.
	c.Subject = "fix the widget properly"
	if err := st.UpsertCommit(ctx, c); err != nil {
		t.Fatalf("UpsertCommit (after patch): %v", err)
	}

	results, err := st.Search(ctx, "frobnicate", SearchOpts{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 search result matching the patch-preview-only term, got %d", len(results))
	}
	if results[0].PatchExcerpt != "frobnicate the gizmo" {
		t.Errorf("PatchExcerpt = %q, want %q", results[0].PatchExcerpt, "frobnicate the gizmo")
	}
	if results[0].Subject != "fix the widget properly" {
		t.Errorf("Subject = %q, want the revised subject", results[0].Subject)
	}
}

func TestUpsertPatchCommitNotFound(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	repo := addTestRepo(t, st, "r")

	err := st.UpsertPatch(ctx, CommitPatch{RepoID: repo.ID, SHA: "nosuchcommit", PatchPreview: "x"})
	if kind, ok := cmerr.KindOf(err); !ok || kind != cmerr.KindNotFound {
		t.Errorf("expected KindNotFound, got %v", err)
	}
}
