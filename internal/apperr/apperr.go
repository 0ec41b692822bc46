package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies the broad category of a failure, independent of transport.
type Kind string

const (
	KindDatabase   Kind = "database"
	KindSearch     Kind = "search"
	KindAi         Kind = "ai"
	KindCrawler    Kind = "crawler"
	KindAuth       Kind = "auth"
	KindConfig     Kind = "config"
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
)

// Error carries a kind alongside the message so HTTP handlers can map
// failures to status codes without string matching.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error. A nil err
// yields nil so call sites can wrap unconditionally.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// HTTPStatus maps an error to the response status code. Unknown kinds
// and unclassified errors map to 500.
func HTTPStatus(err error) int {
	switch k, _ := KindOf(err); k {
	case KindNotFound:
		return 404
	case KindValidation:
		return 400
	case KindAuth:
		return 401
	case KindConflict:
		return 409
	default:
		return 500
	}
}
