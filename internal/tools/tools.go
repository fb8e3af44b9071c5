// Package tools registers commitmux's MCP tool surface: the six
// commitmux_* tools wired to an internal/store.Store and the embedding
// config resolver.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"codetect/internal/embedding"
	"codetect/internal/mcp"
	"codetect/internal/store"
)

// Deps bundles what every tool handler needs.
type Deps struct {
	Store *store.Store
}

// RegisterAll registers every commitmux tool on server.
func RegisterAll(server *mcp.Server, deps Deps) {
	registerSearch(server, deps)
	registerTouches(server, deps)
	registerGetCommit(server, deps)
	registerGetPatch(server, deps)
	registerSearchSemantic(server, deps)
	registerListRepos(server, deps)
}

func textResult(v any) (*mcp.ToolsCallResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.ToolsCallResult{Content: []mcp.Content{{Type: "text", Text: string(data)}}}, nil
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intArg(args map[string]any, key string) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return 0
}

// unknownRepos returns the subset of names not present in known.
func unknownRepos(names []string, known map[string]bool) []string {
	var unknown []string
	for _, n := range names {
		if !known[n] {
			unknown = append(unknown, n)
		}
	}
	return unknown
}

func (d Deps) knownRepoNames(ctx context.Context) (map[string]bool, error) {
	repos, err := d.Store.ListRepos(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(repos))
	for _, r := range repos {
		known[r.Name] = true
	}
	return known, nil
}

func registerSearch(server *mcp.Server, deps Deps) {
	tool := mcp.Tool{
		Name:        "commitmux_search",
		Description: "Full-text search over commit subject, body, and patch preview across registered repos.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"query": {Type: "string", Description: "FTS5 query syntax, passed through to the index"},
				"since": {Type: "integer", Description: "Unix seconds; only commits authored at or after this time"},
				"repos": {Type: "array", Description: "Restrict to these repo names", Items: &mcp.Property{Type: "string"}},
				"paths": {Type: "array", Description: "Require the commit to touch a path containing one of these substrings", Items: &mcp.Property{Type: "string"}},
				"limit": {Type: "integer", Description: "Maximum results (default 20)"},
			},
			Required: []string{"query"},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (*mcp.ToolsCallResult, error) {
		query := stringArg(args, "query")
		if strings.TrimSpace(query) == "" {
			return nil, fmt.Errorf("Query cannot be empty")
		}

		results, err := deps.Store.Search(ctx, query, store.SearchOpts{
			Since: int64(intArg(args, "since")),
			Repos: stringSliceArg(args, "repos"),
			Paths: stringSliceArg(args, "paths"),
			Limit: intArg(args, "limit"),
		})
		if err != nil {
			return nil, err
		}
		return textResult(results)
	}

	server.RegisterTool(tool, handler)
}

func registerTouches(server *mcp.Server, deps Deps) {
	tool := mcp.Tool{
		Name:        "commitmux_touches",
		Description: "Find commits that touched a file path containing the given substring.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"path_glob": {Type: "string", Description: "Substring to match against stored file paths"},
				"since":     {Type: "integer", Description: "Unix seconds lower bound on author time"},
				"repos":     {Type: "array", Description: "Restrict to these repo names", Items: &mcp.Property{Type: "string"}},
				"limit":     {Type: "integer", Description: "Maximum results (default 50)"},
			},
			Required: []string{"path_glob"},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (*mcp.ToolsCallResult, error) {
		pathGlob := stringArg(args, "path_glob")
		if pathGlob == "" {
			return nil, fmt.Errorf("path_glob is required")
		}

		results, err := deps.Store.Touches(ctx, pathGlob, store.TouchesOpts{
			Since: int64(intArg(args, "since")),
			Repos: stringSliceArg(args, "repos"),
			Limit: intArg(args, "limit"),
		})
		if err != nil {
			return nil, err
		}
		return textResult(results)
	}

	server.RegisterTool(tool, handler)
}

// isoDetail mirrors store.CommitDetail but renders Date as an ISO-8601
// UTC string, the human-facing encoding spec.md §6 requires for
// commitmux_get_commit (SearchResult and TouchResult keep integer epochs
// for agent consumption).
type isoDetail struct {
	Repo         string              `json:"repo"`
	SHA          string              `json:"sha"`
	Subject      string              `json:"subject"`
	Body         string              `json:"body,omitempty"`
	Author       string              `json:"author"`
	Date         string              `json:"date"`
	ChangedFiles []store.ChangedFile `json:"changed_files"`
}

func toISODetail(d store.CommitDetail) isoDetail {
	return isoDetail{
		Repo:         d.Repo,
		SHA:          d.SHA,
		Subject:      d.Subject,
		Body:         d.Body,
		Author:       d.Author,
		Date:         time.Unix(d.Date, 0).UTC().Format(time.RFC3339),
		ChangedFiles: d.ChangedFiles,
	}
}

func registerGetCommit(server *mcp.Server, deps Deps) {
	tool := mcp.Tool{
		Name:        "commitmux_get_commit",
		Description: "Resolve a repo name and full/partial commit sha to full metadata and the changed-file list.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"repo": {Type: "string", Description: "Registered repo name"},
				"sha":  {Type: "string", Description: "Full sha or unambiguous prefix"},
			},
			Required: []string{"repo", "sha"},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (*mcp.ToolsCallResult, error) {
		repo := stringArg(args, "repo")
		sha := stringArg(args, "sha")
		if repo == "" || sha == "" {
			return nil, fmt.Errorf("repo and sha are required")
		}

		detail, err := deps.Store.GetCommit(ctx, repo, sha)
		if err != nil {
			return nil, err
		}
		return textResult(toISODetail(detail))
	}

	server.RegisterTool(tool, handler)
}

func registerGetPatch(server *mcp.Server, deps Deps) {
	tool := mcp.Tool{
		Name:        "commitmux_get_patch",
		Description: "Decompress and return a commit's stored unified diff text.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"repo":      {Type: "string", Description: "Registered repo name"},
				"sha":       {Type: "string", Description: "Full commit sha"},
				"max_bytes": {Type: "integer", Description: "Truncate the returned patch text to at most this many bytes"},
			},
			Required: []string{"repo", "sha"},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (*mcp.ToolsCallResult, error) {
		repo := stringArg(args, "repo")
		sha := stringArg(args, "sha")
		if repo == "" || sha == "" {
			return nil, fmt.Errorf("repo and sha are required")
		}

		patch, err := deps.Store.GetPatch(ctx, repo, sha, intArg(args, "max_bytes"))
		if err != nil {
			return nil, err
		}
		return textResult(patch)
	}

	server.RegisterTool(tool, handler)
}

func registerSearchSemantic(server *mcp.Server, deps Deps) {
	tool := mcp.Tool{
		Name:        "commitmux_search_semantic",
		Description: "Hybrid semantic search: embeds the query and runs a pre-filtered k-nearest-neighbor lookup against stored commit embeddings.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"query": {Type: "string", Description: "Natural-language query to embed"},
				"since": {Type: "integer", Description: "Unix seconds lower bound on author time"},
				"repos": {Type: "array", Description: "Restrict to these repo names", Items: &mcp.Property{Type: "string"}},
				"limit": {Type: "integer", Description: "Maximum results (default 10)"},
			},
			Required: []string{"query"},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (*mcp.ToolsCallResult, error) {
		query := stringArg(args, "query")
		if strings.TrimSpace(query) == "" {
			return nil, fmt.Errorf("Query cannot be empty")
		}

		limit := intArg(args, "limit")
		if _, present := args["limit"]; present && limit == 0 {
			return nil, fmt.Errorf("Limit must be greater than 0")
		}
		if limit == 0 {
			limit = 10
		}

		repos := stringSliceArg(args, "repos")
		if len(repos) > 0 {
			known, err := deps.knownRepoNames(ctx)
			if err != nil {
				return nil, err
			}
			if unknown := unknownRepos(repos, known); len(unknown) > 0 {
				return nil, fmt.Errorf("Unknown repo(s): %s", strings.Join(unknown, ", "))
			}
		}

		cfg, err := embedding.FromStore(ctx, deps.Store)
		if err != nil {
			return nil, err
		}
		embedder := cfg.NewEmbedder()

		// The embedding call is the sole suspension point in the whole
		// process; it runs synchronously on the calling goroutine and
		// nothing is left running once Embed returns.
		vectors, err := embedder.Embed(ctx, []string{query})
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("embedding the query returned no vector")
		}

		results, err := deps.Store.SearchSemantic(ctx, vectors[0], store.SearchOpts{
			Since: int64(intArg(args, "since")),
			Repos: repos,
			Limit: limit,
		})
		if err != nil {
			return nil, err
		}
		return textResult(results)
	}

	server.RegisterTool(tool, handler)
}

type repoSummary struct {
	Name         string `json:"name"`
	CommitCount  int    `json:"commit_count"`
	LastSyncedAt *int64 `json:"last_synced_at,omitempty"`
}

func registerListRepos(server *mcp.Server, deps Deps) {
	tool := mcp.Tool{
		Name:        "commitmux_list_repos",
		Description: "List every registered repo with its commit count and last sync time.",
		InputSchema: mcp.InputSchema{
			Type: "object",
		},
	}

	handler := func(ctx context.Context, args map[string]any) (*mcp.ToolsCallResult, error) {
		repos, err := deps.Store.ListRepos(ctx)
		if err != nil {
			return nil, err
		}

		summaries := make([]repoSummary, 0, len(repos))
		for _, r := range repos {
			count, err := deps.Store.CountCommitsForRepo(ctx, r.ID)
			if err != nil {
				return nil, err
			}
			summary := repoSummary{Name: r.Name, CommitCount: count}
			if synced, ok, err := deps.Store.GetIngestState(ctx, r.ID); err == nil && ok {
				summary.LastSyncedAt = &synced.LastSyncedAt
			}
			summaries = append(summaries, summary)
		}
		return textResult(summaries)
	}

	server.RegisterTool(tool, handler)
}
