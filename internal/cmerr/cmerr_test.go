package cmerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	t.Run("without wrapped error", func(t *testing.T) {
		err := Config("unknown config key")
		if got, want := err.Error(), "unknown config key"; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})

	t.Run("with wrapped error", func(t *testing.T) {
		err := Store("inserting commit", errors.New("disk full"))
		if got, want := err.Error(), "inserting commit: disk full"; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})
}

func TestErrorIsMatchesByKind(t *testing.T) {
	err := NotFound("repo \"foo\" not registered")
	if !errors.Is(err, NotFound("")) {
		t.Error("expected errors.Is to match on Kind alone, ignoring Message")
	}
	if errors.Is(err, AlreadyExists("")) {
		t.Error("expected errors.Is to not match a different Kind")
	}
}

func TestErrorIsThroughWrapping(t *testing.T) {
	inner := Git("resolving HEAD", errors.New("reference not found"))
	wrapped := fmt.Errorf("syncing repo foo: %w", inner)

	if !errors.Is(wrapped, Git("", nil)) {
		t.Error("expected errors.Is to see through fmt.Errorf wrapping")
	}

	var target *Error
	if !errors.As(wrapped, &target) {
		t.Fatal("expected errors.As to find the wrapped *Error")
	}
	if target.Kind != KindGit {
		t.Errorf("Kind = %s, want %s", target.Kind, KindGit)
	}
}

func TestKindOf(t *testing.T) {
	t.Run("unwraps to kind", func(t *testing.T) {
		err := fmt.Errorf("context: %w", Embed("calling endpoint", errors.New("timeout")))
		kind, ok := KindOf(err)
		if !ok {
			t.Fatal("expected ok=true")
		}
		if kind != KindEmbed {
			t.Errorf("kind = %s, want %s", kind, KindEmbed)
		}
	})

	t.Run("plain error has no kind", func(t *testing.T) {
		_, ok := KindOf(errors.New("plain"))
		if ok {
			t.Error("expected ok=false for a plain error")
		}
	})
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := Io("reading file", inner)
	if got := errors.Unwrap(err); got != inner {
		t.Errorf("Unwrap() = %v, want %v", got, inner)
	}
}
