package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes every handler understands.
// Wrap them with fmt.Errorf("...: %w", Err...) to add detail.
var (
	// ErrUnauthenticated means no credential could be resolved for the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized means a credential was resolved but the role or
	// ownership rules forbid the action.
	ErrUnauthorized = errors.New("forbidden")
	// ErrNotFound means the target id is absent in the resolved tenant
	// namespace. A record filtered out by access rules is reported the same
	// way so existence never leaks across tenants.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness rule was violated, e.g. duplicate
	// payroll generation for the same employee and month.
	ErrConflict = errors.New("conflict")
	// ErrValidation means the input was malformed or out of range.
	ErrValidation = errors.New("invalid input")
	// ErrStoreUnavailable means the underlying persistence layer could not be
	// reached. Mutating calls surface this as a 5xx; credential resolution
	// fails closed instead.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Unauthenticatedf wraps ErrUnauthenticated with a formatted message.
func Unauthenticatedf(format string, args ...interface{}) error {
	return wrapf(ErrUnauthenticated, format, args...)
}

// Unauthorizedf wraps ErrUnauthorized with a formatted message.
func Unauthorizedf(format string, args ...interface{}) error {
	return wrapf(ErrUnauthorized, format, args...)
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return wrapf(ErrNotFound, format, args...)
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...interface{}) error {
	return wrapf(ErrConflict, format, args...)
}

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return wrapf(ErrValidation, format, args...)
}

// StoreUnavailablef wraps ErrStoreUnavailable with a formatted message.
func StoreUnavailablef(format string, args ...interface{}) error {
	return wrapf(ErrStoreUnavailable, format, args...)
}

func wrapf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}
