package aroerr

import (
	"fmt"

	"github.com/arolang/aro/internal/ast"
)

// Error is the structured error type every ARO component returns instead
// of a bare error string. It carries enough context for the reporter to
// render file:line:col, a kind prefix, and enough detail for a
// match-arm to dispatch on.
type Error struct {
	Kind     Kind
	Category Category
	Severity Severity

	Message string
	Span    ast.Span
	HasSpan bool

	Details    map[string]string
	Cause      error
	Retryable  bool
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.HasSpan {
		return fmt.Sprintf("[%s] %s:%d:%d: %s", e.Kind, e.Span.File, e.Span.Start.Line, e.Span.Start.Col, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a key-value detail and returns the error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches an actionable suggestion for the user.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// At attaches a source span, used by the reporter to render caret
// underlines.
func (e *Error) At(span ast.Span) *Error {
	e.Span = span
	e.HasSpan = true
	return e
}

// New creates an Error of the given kind. Category, severity, and the
// retryable flag are derived from the kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Category:  categoryFromKind(kind),
		Severity:  severityFromKind(kind),
		Message:   message,
		Cause:     cause,
		Retryable: isRetryableKind(kind),
	}
}

// Wrap builds an Error from an existing error, reusing its message.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return New(kind, err.Error(), err)
}

// Compilation builds an error of the given kind with span attached, the
// most common construction site: the folder, codegen, and cycle analyzer
// all report per-statement failures. The category follows from kind.
func Compilation(kind Kind, span ast.Span, message string) *Error {
	return New(kind, message, nil).At(span)
}

// IsRetryable reports whether err is an *Error with Retryable set.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// IsFatal reports whether err is an *Error with fatal severity.
func IsFatal(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Severity == SeverityFatal
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}
