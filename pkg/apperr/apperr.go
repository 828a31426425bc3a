// Package apperr defines the service-boundary error taxonomy. Services wrap
// these kinds with fmt.Errorf("...: %w", apperr.ErrForbidden) and transports
// translate them to HTTP status codes.
package apperr

import "errors"

var (
	// ErrUnauthorized means missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means authenticated but insufficient role, membership or
	// ownership.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound covers both a genuinely absent resource and one hidden from
	// the caller; callers must not be able to tell the difference.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest means malformed or invalid input.
	ErrBadRequest = errors.New("bad request")
	// ErrConflict means a unique-constraint violation surfaced where it
	// changes behavior (e.g. duplicate attachment key).
	ErrConflict = errors.New("conflict")
)

// IsUnauthorized reports whether err wraps ErrUnauthorized.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsForbidden reports whether err wraps ErrForbidden.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsBadRequest reports whether err wraps ErrBadRequest.
func IsBadRequest(err error) bool { return errors.Is(err, ErrBadRequest) }

// IsConflict reports whether err wraps ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
