package upstream

import (
	"fmt"
	"time"
)

// Error is a failed upstream call.
type Error struct {
	// Service is the upstream service name.
	Service string

	// StatusCode is the HTTP status code, or 0 for transport failures.
	StatusCode int

	// Message is the response body or a description of the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream %q error (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream %q error: %s", e.Service, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// AuthError is a rejected credential (HTTP 401 or 403).
type AuthError struct {
	Service string
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("upstream %q authentication failed: %s", e.Service, e.Message)
}

// RateLimitError is a provider-side rate limit (HTTP 429). It means the
// local limits are set higher than the provider's real quota.
type RateLimitError struct {
	Service string

	// RetryAfter is the provider's requested delay, if it sent one.
	RetryAfter time.Duration

	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("upstream %q rate limit exceeded (retry after %s): %s",
			e.Service, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("upstream %q rate limit exceeded: %s", e.Service, e.Message)
}
