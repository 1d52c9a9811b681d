package transport

import (
	"fmt"
	"net/http"
	"time"
)

// HTTPError is a final non-2xx response from the backend. The request did
// complete (the backend answered, just not with success) so the caller's
// session state is still coherent.
type HTTPError struct {
	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// Body is the (truncated) response body.
	Body string

	// RetryAfter is the parsed Retry-After header, if any.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// IsAuthFailure reports whether the status indicates a credential problem
// that the auth collaborator should resolve (refresh + retry).
func (e *HTTPError) IsAuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// RetryExhaustedError means the retry budget was spent without ever getting
// a final response. The caller cannot know whether any attempt reached the
// backend, so any associated session must be treated as invalid.
type RetryExhaustedError struct {
	// Attempts is the total number of attempts made.
	Attempts int

	// Elapsed is the total time spent, including backoff waits.
	Elapsed time.Duration

	// Last is the error from the final attempt.
	Last error
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts (%s): %v", e.Attempts, e.Elapsed.Round(time.Millisecond), e.Last)
}

// Unwrap returns the last attempt's error for error chain support.
func (e *RetryExhaustedError) Unwrap() error {
	return e.Last
}
