package client

import (
	stderrors "errors"

	"github.com/taskdesk/taskdesk/internal/errors"
)

// Re-export the shared error sentinels so callers compare against a single
// symbol with errors.Is.
var (
	ErrAuthenticationFailed = errors.ErrAuthenticationFailed
	ErrValidationFailed     = errors.ErrValidationFailed
	ErrConflict             = errors.ErrConflict
	ErrNotFound             = errors.ErrNotFound
	ErrUnreachable          = errors.ErrUnreachable
)

// ClassifiedError is the concrete type behind every API failure.
type ClassifiedError = errors.ClassifiedError

// Message returns the human-readable part of err suitable for inline
// feedback: the server-provided message for API failures, else err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ce *errors.ClassifiedError
	if stderrors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return err.Error()
}
