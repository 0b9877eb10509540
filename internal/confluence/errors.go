package confluence

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the Confluence REST API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether retrying the same request can succeed.
func (e *APIError) Transient() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// TransportError wraps a network-level failure (connection refused, timeout).
// Always considered transient.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to execute request: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransient reports whether the error is worth retrying under the shared
// retry policy.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
