// Package common defines shared constants and sentinel errors used across
// the repository, service and transport layers. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Input errors. Always surfaced before any backend is touched.
	ErrValidation = errors.New("validation error")

	// Configuration errors.
	ErrNotConfigured        = errors.New("not configured")
	ErrMissingConfiguration = errors.New("missing configuration")
	ErrUnsupportedProvider  = errors.New("unsupported provider")

	// Auth errors. Messages are deliberately generic.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateAccount   = errors.New("duplicate account")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidState       = errors.New("invalid oauth state")

	// Downstream errors.
	ErrUpstreamFailure    = errors.New("upstream failure")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// ValidationError carries a message that is safe to show to the caller.
type ValidationError struct {
	Message string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
