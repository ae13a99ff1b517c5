package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &RateLimitError{}, true},
		{"server error", &APIError{StatusCode: 503}, true},
		{"status 429", &APIError{StatusCode: 429}, true},
		{"bad request", &APIError{StatusCode: 400}, false},
		{"unauthorized", &APIError{StatusCode: 401}, false},
		{"not found", &APIError{StatusCode: 404}, false},
		{"timeout", context.DeadlineExceeded, true},
		{"transport", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}, true},
		{"decode", fmt.Errorf("%w: eof", ErrDecode), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{StatusCode: 404}))
	assert.True(t, IsNotFound(fmt.Errorf("wrap: %w", domain.ErrNotFound)))
	assert.False(t, IsNotFound(&APIError{StatusCode: 500}))
	assert.True(t, IsUnauthorized(&APIError{StatusCode: 401}))
	assert.ErrorIs(t, &RateLimitError{}, domain.ErrRateLimited)
}

func TestRateLimiter_CheckRateLimit(t *testing.T) {
	rl := NewRateLimiter(0)

	resp := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}
	resp.Header.Set(HeaderRateRemaining, "12")
	resp.Header.Set(HeaderRateReset, "1700000000")
	assert.NoError(t, rl.CheckRateLimit(resp))
	assert.Equal(t, 12, rl.Remaining())
	assert.Equal(t, time.Unix(1700000000, 0), rl.ResetTime())

	limited := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	limited.Header.Set(HeaderRetryAfter, "3")
	err := rl.CheckRateLimit(limited)

	var rlErr *RateLimitError
	assert.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 3*time.Second, rlErr.RetryAfter)
	assert.Equal(t, time.Unix(1700000000, 0), rlErr.ResetAt)
}

func TestRateLimiter_WaitUnlimited(t *testing.T) {
	rl := NewRateLimiter(0)
	for i := 0; i < 10; i++ {
		assert.NoError(t, rl.Wait(context.Background()))
	}
}
