package twitter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

// ErrDecode marks a response body that could not be parsed.
var ErrDecode = errors.New("twitter: malformed response")

// RateLimitError represents an HTTP 429 answer from the API.
type RateLimitError struct {
	// ResetAt is when the window resets, from x-rate-limit-reset. Zero if unknown.
	ResetAt time.Time

	// RetryAfter is the server-requested wait from the Retry-After header. Zero if absent.
	RetryAfter time.Duration

	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return "twitter: rate limit exceeded"
	}
	return fmt.Sprintf("twitter: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// Unwrap lets callers match domain.ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// APIError represents a non-success API response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twitter: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return errors.Is(err, domain.ErrNotFound)
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401
	}
	return false
}

// IsRetryable reports whether another attempt may succeed.
// Rate limits, server errors and network failures (including per-attempt
// timeouts) are retryable. Other 4xx answers and decode failures are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrDecode) {
		return false
	}
	if IsRateLimited(err) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
