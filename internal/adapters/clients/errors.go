// Package clients provides instrumented HTTP clients for downstream hosts.
package clients

import "errors"

// Client errors are infrastructure failures. Callers translate them into
// domain errors (the image loader turns them into domain.ErrImageLoad).
var (
	// ErrCircuitOpen is returned while the circuit breaker blocks requests.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last failure once every attempt is used.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrRetryableStatus marks a 5xx or 429 response that was retried.
	ErrRetryableStatus = errors.New("retryable status")

	// ErrInvalidURL is returned for targets that cannot be resolved.
	ErrInvalidURL = errors.New("invalid url")
)
