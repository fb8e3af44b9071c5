package embedding

import "strings"

// previewTruncateLimit bounds the patch preview folded into an embedding
// document. ~1600 code units is roughly 400 tokens, keeping each embedding
// call's input bounded regardless of how large a commit's diff was.
const previewTruncateLimit = 1600

// EmbedCommit carries exactly the fields needed to build a commit's
// embedding document and, in the same call, the vector table's auxiliary
// columns. It is returned by the store's GetCommitsWithoutEmbeddings and
// consumed by BuildDocument / the backfill pipeline below.
type EmbedCommit struct {
	RepoID       int64
	RepoName     string
	SHA          string
	Subject      string
	Body         string
	FilesChanged []string
	AuthorName   string
	AuthorTime   int64
	PatchPreview string
}

// BuildDocument renders the text sent to the embedding endpoint for a
// commit. It is a pure function of its input: subject, then the trimmed
// body (omitted if empty), then a comma-joined changed-files line (omitted
// if empty), then the patch preview truncated to previewTruncateLimit
// characters (omitted if empty).
func BuildDocument(c EmbedCommit) string {
	var b strings.Builder
	b.WriteString(c.Subject)

	if body := strings.TrimSpace(c.Body); body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}

	if len(c.FilesChanged) > 0 {
		b.WriteString("\n\nFiles changed: ")
		b.WriteString(strings.Join(c.FilesChanged, ", "))
	}

	if preview := truncatePreview(c.PatchPreview, previewTruncateLimit); preview != "" {
		b.WriteString("\n\n")
		b.WriteString(preview)
	}

	return b.String()
}

// truncatePreview cuts s to at most n runes, never splitting a multi-byte
// rune, matching get_patch's "cut at a UTF-8 boundary" requirement.
func truncatePreview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
