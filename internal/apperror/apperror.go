// Package apperror defines the error kinds shared by every domain package.
// Callers branch on Kind (or the sentinel helpers) rather than on message
// text; Contention is the only kind that is safe to retry.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindAmbiguous           Kind = "ambiguous_reference"
	KindInvalidState        Kind = "invalid_state"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindContention          Kind = "contention"
	KindInternal            Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	// Candidates lists the matching identifiers when Kind is KindAmbiguous.
	Candidates []string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Ambiguous(message string, candidates []string) *Error {
	return &Error{Kind: KindAmbiguous, Message: message, Candidates: candidates}
}

func InvalidState(format string, args ...any) *Error {
	return newError(KindInvalidState, format, args...)
}

func InsufficientBalance(format string, args ...any) *Error {
	return newError(KindInsufficientBalance, format, args...)
}

func Contention(message string, err error) *Error {
	return &Error{Kind: KindContention, Message: message, Err: err}
}

// Internal wraps an unexpected failure (driver errors, broken invariants).
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind carried by err, or KindInternal for plain errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether the caller may retry the operation as-is.
func IsRetryable(err error) bool {
	return IsKind(err, KindContention)
}
