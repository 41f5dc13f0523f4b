package types

import "net/http"

// ------------------------------
// Shared Interfaces
// ------------------------------

// HTTPClient interface for dependency injection
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Validator is implemented by request and response types that check their
// own required fields.
type Validator interface {
	Validate() error
}
