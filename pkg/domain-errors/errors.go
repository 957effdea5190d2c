// Package dErrors provides coded domain errors shared across services.
//
// Services translate infrastructure sentinels (pkg/platform/sentinel) into
// coded errors at the service boundary; handlers map codes onto HTTP statuses.
// Business conditions are expressed as codes, never as panics or generic
// fmt.Errorf strings that callers would have to parse.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for programmatic handling.
type Code string

const (
	// CodeValidation: a precondition on the request failed; no writes were
	// attempted and the caller can correct the input and retry.
	CodeValidation Code = "validation"

	// CodeInvalidInput: malformed input at a trust boundary (bad UUID, unknown
	// enum value). A stricter sibling of CodeValidation used by parsers.
	CodeInvalidInput Code = "invalid_input"

	// CodeBadRequest: the request shape itself is unusable (missing body,
	// missing required identifier).
	CodeBadRequest Code = "bad_request"

	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"

	// CodeInvariantViolation: an entity-level invariant would be broken by the
	// requested transition (e.g. assigning an occupied residence).
	CodeInvariantViolation Code = "invariant_violation"

	// CodePartialFailure: a multi-step operation committed some but not all of
	// its writes. Carried by service.PartialFailure; never auto-retried.
	CodePartialFailure Code = "partial_failure"

	// CodeUnavailable: a dependency did not answer; the outcome of the last
	// call is unknown and the caller should re-check state before retrying.
	CodeUnavailable Code = "unavailable"

	CodeInternal Code = "internal"
)

// Error is a coded domain error. The wrapped cause, if any, is reachable via
// errors.Unwrap for logging; the Message is safe to surface to API callers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
// A nil cause yields nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
