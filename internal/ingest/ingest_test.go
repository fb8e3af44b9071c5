package ingest

import (
	"strings"
	"testing"
)

func TestSubjectLine(t *testing.T) {
	cases := []struct{ in, want string }{
		{"fix bug", "fix bug"},
		{"fix bug\n\nlonger body text", "fix bug"},
		{"", ""},
	}
	for _, c := range cases {
		if got := subjectLine(c.in); got != c.want {
			t.Errorf("subjectLine(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBodyText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"subject only", ""},
		{"subject\n\nbody paragraph", "body paragraph"},
		{"subject\n  leading space body  ", "leading space body"},
	}
	for _, c := range cases {
		if got := bodyText(c.in); got != c.want {
			t.Errorf("bodyText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruncatePreview(t *testing.T) {
	if got := truncatePreview("short", 100); got != "short" {
		t.Errorf("truncatePreview should leave short strings untouched, got %q", got)
	}

	long := strings.Repeat("a", 10)
	got := truncatePreview(long, 4)
	if got != "aaaa" {
		t.Errorf("truncatePreview(%q, 4) = %q, want 4 a's", long, got)
	}

	multibyte := "héllo wörld"
	got = truncatePreview(multibyte, 2)
	if got != "hé" {
		t.Errorf("truncatePreview should cut at rune boundaries, got %q", got)
	}
}

func TestMergeIgnoreConfigDoesNotMutateInput(t *testing.T) {
	cfg := IgnoreConfig{PathPrefixes: []string{"build/"}}
	original := append([]string(nil), cfg.PathPrefixes...)

	merged := mergeIgnoreConfig(cfg, []string{"dist/"})

	if !contains(merged.PathPrefixes, "vendor/") {
		t.Errorf("expected package defaults to be merged in, got %v", merged.PathPrefixes)
	}
	if !contains(merged.PathPrefixes, "build/") {
		t.Errorf("expected caller prefixes to be merged in, got %v", merged.PathPrefixes)
	}
	if !contains(merged.PathPrefixes, "dist/") {
		t.Errorf("expected repo excludes to be merged in, got %v", merged.PathPrefixes)
	}
	for i, p := range cfg.PathPrefixes {
		if p != original[i] {
			t.Errorf("mergeIgnoreConfig mutated the input cfg.PathPrefixes")
		}
	}
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
