// internal/app/system/apperr/apperr.go

// Package apperr carries the governance error taxonomy. Operations report
// failures as kinded errors so callers (HTTP handlers, the sweeper) can map
// them uniformly without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a governance failure.
type Kind string

const (
	// Unauthorized: no valid identity on the request.
	Unauthorized Kind = "unauthorized"
	// Forbidden: identity is valid but lacks the role for the action.
	Forbidden Kind = "forbidden"
	// NotFound: referenced group/ballot/user is absent.
	NotFound Kind = "not_found"
	// InvalidState: acting on a terminal ballot, or a duplicate live ballot
	// for the same subject.
	InvalidState Kind = "invalid_state"
	// InvariantViolation: the mutation would breach the minimum-leader rule.
	InvariantViolation Kind = "invariant_violation"
	// Conflict: the transaction lost a race; the caller should re-fetch and
	// retry.
	Conflict Kind = "conflict"
)

// Error is a kinded error with a human-readable reason. The reason is
// surfaced to callers verbatim.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a kinded error with a reason.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap attaches a kind and reason to an underlying error.
func Wrap(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// KindOf extracts the kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf extracts the human-readable reason, falling back to err.Error().
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to its response status. Unknown kinds (including
// plain errors) map to 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidState, Conflict:
		return http.StatusConflict
	case InvariantViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
