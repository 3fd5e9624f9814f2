// Package errs defines the error kinds surfaced across the sparse reference
// panel archive: codec, ingestion and query failures all report one of a
// small fixed set of kinds so callers can branch on errors.Is/As instead of
// parsing messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies the class of failure.
type Kind string

const (
	// FileNotFound is returned when an input path does not exist.
	FileNotFound Kind = "FileNotFound"
	// CorruptArchive is returned when archive bytes cannot be parsed.
	CorruptArchive Kind = "CorruptArchive"
	// UpstreamError is returned when the upstream tool exits non-zero.
	UpstreamError Kind = "UpstreamError"
	// IndexOutOfRange is returned for an out-of-bounds or empty selection.
	IndexOutOfRange Kind = "IndexOutOfRange"
	// InvariantViolation is returned when an archive invariant is broken,
	// e.g. a multi-chromosome input or disagreeing per-chunk haplotype counts.
	InvariantViolation Kind = "InvariantViolation"
	// TypeMismatch is returned for a malformed row or column selector.
	TypeMismatch Kind = "TypeMismatch"
)

// Error is the concrete error type returned by this module. It always
// carries a Kind so callers can use Is to check the failure class without
// string matching.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, errs.New(errs.CorruptArchive, "")) works as a sentinel
// check without comparing messages.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New constructs an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error that wraps cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err (or any error it wraps) has the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func FileNotFoundf(format string, args ...any) *Error {
	return New(FileNotFound, fmt.Sprintf(format, args...))
}

func CorruptArchivef(format string, args ...any) *Error {
	return New(CorruptArchive, fmt.Sprintf(format, args...))
}

func UpstreamErrorf(cause error, format string, args ...any) *Error {
	return Wrap(UpstreamError, fmt.Sprintf(format, args...), cause)
}

func IndexOutOfRangef(format string, args ...any) *Error {
	return New(IndexOutOfRange, fmt.Sprintf(format, args...))
}

func InvariantViolationf(format string, args ...any) *Error {
	return New(InvariantViolation, fmt.Sprintf(format, args...))
}

func TypeMismatchf(format string, args ...any) *Error {
	return New(TypeMismatch, fmt.Sprintf(format, args...))
}
