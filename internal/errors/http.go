package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ClassifyHTTPError maps a non-2xx response onto the taxonomy.
//   - 4xx client errors (except 408 and 429) are irrecoverable
//   - 5xx server errors are recoverable
func ClassifyHTTPError(op string, statusCode int, body string) *ClassifiedError {
	kind := httpKind(statusCode)
	return &ClassifiedError{
		Op:         op,
		Kind:       kind,
		Category:   httpCategory(statusCode),
		StatusCode: statusCode,
		Message:    messageFromBody(body, kind),
		Body:       body,
		Underlying: fmt.Errorf("%s failed: HTTP %d", op, statusCode),
	}
}

func httpKind(statusCode int) Kind {
	switch statusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidationFailed
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthenticationFailed
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindUnreachable
	}
}

func httpCategory(statusCode int) ErrorCategory {
	switch {
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusTooManyRequests:
		return Recoverable
	case statusCode >= 400 && statusCode < 500:
		return Irrecoverable
	default:
		// 5xx and unexpected codes
		return Recoverable
	}
}

// messageFromBody extracts the server's reason from {"message": ...} or
// {"error": ...}, falling back to a default per kind.
func messageFromBody(body string, kind Kind) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil {
		if m := strings.TrimSpace(payload.Message); m != "" {
			return m
		}
		if m := strings.TrimSpace(payload.Error); m != "" {
			return m
		}
	}
	switch kind {
	case KindAuthenticationFailed:
		return "invalid credentials"
	case KindConflict:
		return "resource already exists"
	case KindNotFound:
		return "resource not found"
	case KindValidationFailed:
		return "request rejected"
	default:
		return "server error"
	}
}

// NewNetworkError creates a classified error for network-level failures.
// Network errors are always recoverable as they may be transient.
func NewNetworkError(op string, err error) *ClassifiedError {
	return &ClassifiedError{
		Op:         op,
		Kind:       KindUnreachable,
		Category:   Recoverable,
		Message:    "network error",
		Underlying: err,
	}
}

// NewMalformedResponseError reports a 2xx response whose body does not have
// the expected shape.
func NewMalformedResponseError(op string, err error) *ClassifiedError {
	return &ClassifiedError{
		Op:         op,
		Kind:       KindUnreachable,
		Category:   Irrecoverable,
		Message:    "malformed response",
		Underlying: err,
	}
}
