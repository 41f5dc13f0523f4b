// Package errors provides the error taxonomy shared by the API client, the
// session store and the workspace directory.
//
// Every failure that crosses the API boundary is a *ClassifiedError. It carries
// a Kind (what went wrong, checked with errors.Is against the sentinels below)
// and a Category (whether a background retry may help).
package errors

import (
	"errors"
	"fmt"
)

// Sentinels matched by errors.Is for each Kind.
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrValidationFailed     = errors.New("validation failed")
	ErrConflict             = errors.New("conflict")
	ErrNotFound             = errors.New("not found")
	ErrUnreachable          = errors.New("service unreachable")
)

// Kind identifies what went wrong.
type Kind int

const (
	// KindUnreachable covers network failures, 5xx responses and bodies that
	// could not be decoded into the expected shape.
	KindUnreachable Kind = iota
	// KindAuthenticationFailed covers bad credentials and expired tokens.
	KindAuthenticationFailed
	// KindValidationFailed covers client-side validation and 400/422 responses.
	KindValidationFailed
	// KindConflict covers duplicate resources, e.g. an already registered email.
	KindConflict
	// KindNotFound covers stale ids.
	KindNotFound
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "Unreachable"
	case KindAuthenticationFailed:
		return "AuthenticationFailed"
	case KindValidationFailed:
		return "ValidationFailed"
	case KindConflict:
		return "Conflict"
	case KindNotFound:
		return "NotFound"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Sentinel returns the sentinel error matched by errors.Is for k.
func (k Kind) Sentinel() error {
	switch k {
	case KindAuthenticationFailed:
		return ErrAuthenticationFailed
	case KindValidationFailed:
		return ErrValidationFailed
	case KindConflict:
		return ErrConflict
	case KindNotFound:
		return ErrNotFound
	default:
		return ErrUnreachable
	}
}

// ErrorCategory determines how errors should be handled by retry logic.
type ErrorCategory int

const (
	// Recoverable errors may be retried with exponential backoff.
	// Examples: 500 Internal Server Error, network timeouts, connection failures.
	Recoverable ErrorCategory = iota

	// Irrecoverable errors should fail immediately without retry.
	// Examples: 401 Unauthorized, 404 Not Found, 409 Conflict.
	Irrecoverable
)

// String returns a human-readable representation of the error category.
func (c ErrorCategory) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// ClassifiedError wraps an error with taxonomy metadata.
type ClassifiedError struct {
	Op         string // API operation, e.g. "login"
	Kind       Kind
	Category   ErrorCategory
	StatusCode int    // HTTP status code (0 for non-HTTP errors)
	Message    string // human-readable reason suitable for display
	Body       string // raw response body for debugging
	Underlying error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Sentinel().Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, msg, e.StatusCode)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap returns the underlying error for error chain compatibility.
func (e *ClassifiedError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target is the sentinel for e.Kind.
func (e *ClassifiedError) Is(target error) bool {
	return target == e.Kind.Sentinel()
}

// IsIrrecoverable returns true if the error should not be retried.
func IsIrrecoverable(err error) bool {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Category == Irrecoverable
	}
	return false
}

// KindOf returns the Kind of err, or KindUnreachable when err is not classified.
func KindOf(err error) Kind {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnreachable
}

// NewValidationError reports a request rejected before any network call.
func NewValidationError(op, message string) *ClassifiedError {
	return &ClassifiedError{
		Op:       op,
		Kind:     KindValidationFailed,
		Category: Irrecoverable,
		Message:  message,
	}
}

// NewNotFoundError reports a lookup that matched nothing.
func NewNotFoundError(op, message string) *ClassifiedError {
	return &ClassifiedError{
		Op:       op,
		Kind:     KindNotFound,
		Category: Irrecoverable,
		Message:  message,
	}
}
