// Package errs defines the error-kind taxonomy used across the service.
// Kinds, never concrete types: callers test with errors.Is against one
// of the sentinels below.
package errs

import "errors"

var (
	// ErrParse marks malformed reference text or numbers. Logged and
	// swallowed by callers that parse reference data.
	ErrParse = errors.New("parse error")

	// ErrFetch marks a network/timeout failure reaching an upstream feed.
	ErrFetch = errors.New("fetch error")

	// ErrIntegrity marks a bad magic number or length mismatch on a
	// track file. Propagates to the caller.
	ErrIntegrity = errors.New("integrity error")

	// ErrIndex marks an out-of-range track-file read.
	ErrIndex = errors.New("index error")

	// ErrExpression marks a lex/parse/type/compile failure in the
	// filter language.
	ErrExpression = errors.New("expression error")

	// ErrNotFound marks a unary lookup miss (pilot, airport, etc).
	ErrNotFound = errors.New("not found")
)

// Wrap attaches a kind sentinel to a more specific error so errors.Is
// still matches the kind while %v still shows the detail.
func Wrap(kind error, detail string) error {
	if detail == "" {
		return kind
	}
	return &kindError{kind: kind, detail: detail}
}

type kindError struct {
	kind   error
	detail string
}

func (e *kindError) Error() string { return e.kind.Error() + ": " + e.detail }
func (e *kindError) Unwrap() error { return e.kind }
