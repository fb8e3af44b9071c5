package ingest

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/go-git/go-git/v5/plumbing/object"
	ignore "github.com/sabhiram/go-gitignore"

	"codetect/internal/store"
)

// extractDiff diffs c against its first parent (an empty tree for root
// commits), classifies each delta, and renders a unified diff text
// restricted to non-binary, non-excluded deltas. Binary deltas still
// produce a CommitFile row (so touches can find them) but contribute no
// patch text.
func extractDiff(c *object.Commit, matcher *ignore.GitIgnore) ([]store.CommitFile, string, error) {
	commitTree, err := c.Tree()
	if err != nil {
		return nil, "", fmt.Errorf("loading commit tree: %w", err)
	}

	parentTree := &object.Tree{}
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, "", fmt.Errorf("loading parent commit: %w", err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, "", fmt.Errorf("loading parent tree: %w", err)
		}
	}

	patch, err := parentTree.Patch(commitTree)
	if err != nil {
		return nil, "", fmt.Errorf("computing patch: %w", err)
	}

	diffs, _, err := gitdiff.Parse(strings.NewReader(patch.String()))
	if err != nil {
		return nil, "", fmt.Errorf("parsing patch: %w", err)
	}

	var files []store.CommitFile
	var renderedPatch strings.Builder

	for _, d := range diffs {
		path := d.NewName
		if path == "" {
			path = d.OldName
		}
		if matcher != nil && matcher.MatchesPath(path) {
			continue
		}

		status, oldPath := classifyDelta(d)
		files = append(files, store.CommitFile{
			Path:    path,
			Status:  status,
			OldPath: oldPath,
		})

		if d.IsBinary {
			continue
		}

		renderedPatch.WriteString(fmt.Sprintf("--- %s\n+++ %s\n", diffSide(d.OldName, d.IsNew), diffSide(d.NewName, d.IsDelete)))
		for _, frag := range d.TextFragments {
			renderedPatch.WriteString(fmt.Sprintf("@@ -%d,%d +%d,%d @@\n",
				frag.OldPosition, frag.OldLines, frag.NewPosition, frag.NewLines))
			for _, line := range frag.Lines {
				renderedPatch.WriteString(linePrefix(line.Op))
				renderedPatch.WriteString(line.Line)
			}
		}
	}

	return files, renderedPatch.String(), nil
}

func linePrefix(op gitdiff.LineOp) string {
	switch op {
	case gitdiff.OpAdd:
		return "+"
	case gitdiff.OpDelete:
		return "-"
	default:
		return " "
	}
}

func diffSide(name string, absent bool) string {
	if absent || name == "" {
		return "/dev/null"
	}
	return name
}

func classifyDelta(d *gitdiff.File) (store.FileStatus, string) {
	switch {
	case d.IsNew:
		return store.StatusAdded, ""
	case d.IsDelete:
		return store.StatusDeleted, ""
	case d.IsRename:
		return store.StatusRenamed, d.OldName
	case d.IsCopy:
		return store.StatusCopied, d.OldName
	default:
		return store.StatusModified, ""
	}
}
