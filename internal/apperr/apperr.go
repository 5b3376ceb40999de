// Package apperr defines the application-wide error taxonomy shared by the
// repository, service, and HTTP layers.
//
// Every predictable failure in the system belongs to exactly one of five
// kinds:
//
//   - Validation:    bad input caught before any storage call (missing proof,
//     non-positive donation amount, oversized upload).
//   - Configuration: a setting owned by a *different* user is missing
//     (e.g. the idea owner has not configured a payment key). These must be
//     surfaced with an actionable message, never as a generic failure.
//   - Constraint:    uniqueness or ownership violations (duplicate vote,
//     duplicate interest). Callers often treat these as benign no-ops.
//   - NotFound:      the entity vanished between a list and a detail fetch.
//   - Transport:     the storage layer is unreachable or failed unexpectedly.
//     Cache state must be left untouched when one of these occurs.
//
// Errors carry a Kind plus a human-readable message and optionally wrap an
// underlying cause, so callers can branch with IsKind while still using
// errors.Is / errors.As on the chain.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into the application taxonomy.
type Kind int

const (
	// KindUnknown is the zero value; errors of this kind are treated as
	// Transport failures by the HTTP layer.
	KindUnknown Kind = iota
	// KindValidation marks bad caller input detected before any storage call.
	KindValidation
	// KindConfiguration marks a missing setting actionable by another user.
	KindConfiguration
	// KindConstraint marks uniqueness/ownership violations from storage.
	KindConstraint
	// KindNotFound marks a missing entity.
	KindNotFound
	// KindTransport marks storage connectivity or unexpected backend failures.
	KindTransport
)

// String returns the stable lowercase name of the kind, suitable for error
// codes and log fields.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindConstraint:
		return "constraint"
	case KindNotFound:
		return "not_found"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is the concrete taxonomy error. Construct values with the helper
// constructors below rather than directly.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // optional wrapped cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Validation returns a new validation error with a formatted message.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Configuration returns a new configuration error with a formatted message.
func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Msg: fmt.Sprintf(format, args...)}
}

// Constraint returns a new constraint error with a formatted message.
func Constraint(format string, args ...any) *Error {
	return &Error{Kind: KindConstraint, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns a new not-found error with a formatted message.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Transport wraps err as a transport error. The message describes the
// operation that failed; err may be nil.
func Transport(err error, format string, args ...any) *Error {
	return &Error{Kind: KindTransport, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Wrap attaches a cause to a taxonomy error of the given kind.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the taxonomy kind of err, or KindUnknown when err is not an
// apperr.Error (directly or anywhere in its chain).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err (or any error it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
