// Package store is the single persistent-state authority for commitmux: a
// relational schema plus an FTS5 lexical index and a vec0 dense-vector
// index, all sharing commit identity. Every other component reads or
// writes through this package; no other component touches the database
// directly.
package store

// FileStatus classifies how a commit changed a path.
type FileStatus string

const (
	StatusAdded    FileStatus = "Added"
	StatusModified FileStatus = "Modified"
	StatusDeleted  FileStatus = "Deleted"
	StatusRenamed  FileStatus = "Renamed"
	StatusCopied   FileStatus = "Copied"
	StatusUnknown  FileStatus = "Unknown"
)

// Code returns the stable one-character status code used in external
// responses: A, M, D, R, C, or ? for anything else.
func (s FileStatus) Code() string {
	switch s {
	case StatusAdded:
		return "A"
	case StatusModified:
		return "M"
	case StatusDeleted:
		return "D"
	case StatusRenamed:
		return "R"
	case StatusCopied:
		return "C"
	default:
		return "?"
	}
}

// Repo is a registered local working copy.
type Repo struct {
	ID              int64
	Name            string
	Path            string
	RemoteURL       string
	DefaultBranch   string
	ForkOf          string
	AuthorFilter    string
	ExcludePrefixes []string
	EmbedEnabled    bool
}

// RepoInput is the payload for AddRepo.
type RepoInput struct {
	Name            string
	Path            string
	RemoteURL       string
	DefaultBranch   string
	ForkOf          string
	AuthorFilter    string
	ExcludePrefixes []string
	EmbedEnabled    bool
}

// OptionalString distinguishes "leave unchanged" from "set to this value"
// (including "set to empty/null") in RepoUpdate's dynamic SET-list builder.
// A nil *OptionalString field in RepoUpdate means "don't touch this column";
// a non-nil one with Value == "" means "set this column to NULL/empty".
type OptionalString struct {
	Value string
}

// RepoUpdate carries only the fields the caller wants to change. Each
// pointer field follows "outer-present means set; inner-absent means
// set-to-null; inner-present means set-to-value": a nil field is left
// alone, a non-nil field (even wrapping an empty string) overwrites.
type RepoUpdate struct {
	DefaultBranch   *OptionalString
	ForkOf          *OptionalString
	AuthorFilter    *OptionalString
	RemoteURL       *OptionalString
	ExcludePrefixes []string // non-nil replaces the list wholesale; nil leaves untouched
	EmbedEnabled    *bool
}

// Commit is a commit row observed at ingest time.
type Commit struct {
	RepoID         int64
	SHA            string
	AuthorName     string
	AuthorEmail    string
	CommitterName  string
	CommitterEmail string
	AuthorTime     int64
	CommitTime     int64
	Subject        string
	Body           string
	ParentCount    int
}

// CommitFile is one row per path changed by a commit.
type CommitFile struct {
	RepoID  int64
	SHA     string
	Path    string
	Status  FileStatus
	OldPath string // only set when Status is Renamed or Copied
}

// CommitPatch is the optional compressed-diff record for a commit.
type CommitPatch struct {
	RepoID       int64
	SHA          string
	Compressed   []byte // zstd level 3
	PatchPreview string // first 500 raw characters of the diff text
}

// IngestState is the one-row-per-repo sync bookkeeping record.
type IngestState struct {
	RepoID        int64
	LastSyncedAt  int64
	LastSyncedSHA string
	LastError     string
}

// SearchOpts configures Search and SearchSemantic.
type SearchOpts struct {
	Since int64    // 0 means unbounded
	Repos []string // empty means all repos
	Paths []string // lexical search only: substring-match against file paths
	Limit int      // 0 means "use the operation's documented default"
}

// TouchesOpts configures Touches.
type TouchesOpts struct {
	Since int64
	Repos []string
	Limit int
}

// SearchResult is one hit from Search or SearchSemantic.
type SearchResult struct {
	Repo         string
	SHA          string
	Subject      string
	Author       string
	Date         int64
	MatchedPaths []string
	PatchExcerpt string
	// Distance is populated only by SearchSemantic; nil for lexical results.
	// This is the additive relevance-score field spec.md's open questions
	// permit without breaking compatibility.
	Distance *float64
}

// TouchResult is one (commit, matching file) row from Touches.
type TouchResult struct {
	Repo    string
	SHA     string
	Subject string
	Date    int64
	Path    string
	Status  string // "A" | "M" | "D" | "R" | "C"
}

// ChangedFile is one entry in CommitDetail.ChangedFiles.
type ChangedFile struct {
	Path    string
	Status  string
	OldPath string // empty unless Status is "R" or "C"
}

// CommitDetail is the full response payload for GetCommit.
type CommitDetail struct {
	Repo         string
	SHA          string
	Subject      string
	Body         string
	Author       string
	Date         int64 // Unix seconds; the MCP layer renders this as ISO-8601
	ChangedFiles []ChangedFile
}

// PatchResult is the response payload for GetPatch.
type PatchResult struct {
	Repo      string
	SHA       string
	PatchText string
}
