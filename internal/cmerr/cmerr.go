// Package cmerr defines the error taxonomy shared across commitmux's
// components: Store, Ingester, Embedder, and the Dispatcher all return
// errors wrapping one of these kinds so callers can classify failures
// with errors.Is / errors.As instead of parsing messages.
package cmerr

import "fmt"

// Kind classifies a commitmux error.
type Kind string

const (
	KindStore         Kind = "store"
	KindIo            Kind = "io"
	KindGit           Kind = "git"
	KindConfig        Kind = "config"
	KindNotFound      Kind = "not_found"
	KindAlreadyExists Kind = "already_exists"
	KindEmbed         Kind = "embed"
)

// Error is a typed commitmux error. The zero value is not useful; build
// one with New or one of the kind-specific constructors below.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, cmerr.NotFound("")) works regardless of message/wrapped
// error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFound(msg string) *Error      { return New(KindNotFound, msg) }
func AlreadyExists(msg string) *Error { return New(KindAlreadyExists, msg) }
func Store(msg string, err error) *Error {
	return Wrap(KindStore, msg, err)
}
func Io(msg string, err error) *Error {
	return Wrap(KindIo, msg, err)
}
func Git(msg string, err error) *Error {
	return Wrap(KindGit, msg, err)
}
func Config(msg string) *Error {
	return New(KindConfig, msg)
}
func Embed(msg string, err error) *Error {
	return Wrap(KindEmbed, msg, err)
}

// KindOf returns the Kind of err if it (or something it wraps) is a
// *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind, true
	}
	return "", false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
