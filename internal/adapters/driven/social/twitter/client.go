package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
	"github.com/custodia-labs/persona-cli/internal/logger"
	"github.com/custodia-labs/persona-cli/internal/metrics"
	"github.com/custodia-labs/persona-cli/internal/telemetry"
)

const (
	// DefaultBaseURL is the v2 API root.
	DefaultBaseURL = "https://api.twitter.com/2"

	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the total number of attempts per request.
	DefaultMaxRetries = 3

	// DefaultRetryBase is the first backoff delay.
	DefaultRetryBase = time.Second

	// DefaultRetryCap bounds any single backoff delay, Retry-After waits included.
	DefaultRetryCap = 30 * time.Second

	userFields   = "name,username,description,profile_image_url,public_metrics"
	tweetFields  = "created_at,public_metrics,referenced_tweets,in_reply_to_user_id"
	searchFields = "created_at,public_metrics,author_id"

	maxErrorBody = 4096
)

var log = logger.Named("twitter")

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds client settings. Zero values take the defaults above.
type Config struct {
	BaseURL           string
	BearerToken       string
	MaxRetries        int
	RetryBase         time.Duration
	RetryCap          time.Duration
	Timeout           time.Duration
	RequestsPerSecond float64

	// HTTPClient replaces the traced default transport. Bearer auth is
	// still layered on top when a token is set.
	HTTPClient *http.Client

	// Sleep replaces the real backoff sleep.
	Sleep SleepFunc
}

// ConfigFromSettings maps upstream settings to a client config.
func ConfigFromSettings(s domain.UpstreamSettings) Config {
	return Config{
		BaseURL:           s.BaseURL,
		BearerToken:       s.BearerToken,
		MaxRetries:        s.MaxRetries,
		RetryBase:         s.RetryBase,
		RetryCap:          s.RetryCap,
		Timeout:           s.Timeout,
		RequestsPerSecond: s.RequestsPerSecond,
	}
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryBase <= 0 {
		c.RetryBase = DefaultRetryBase
	}
	if c.RetryCap <= 0 {
		c.RetryCap = DefaultRetryCap
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Sleep == nil {
		c.Sleep = sleepContext
	}
	return c
}

// Client is a resilient Twitter/X v2 API client.
type Client struct {
	cfg         Config
	http        *http.Client
	rateLimiter *RateLimiter
}

// Verify interface compliance.
var _ driven.SocialClient = (*Client)(nil)

// NewClient creates a client. Without a bearer token requests are sent
// unauthenticated and the API answers 401.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Transport: telemetry.Transport(nil)}
	}

	httpClient := base
	if cfg.BearerToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.BearerToken,
			TokenType:   "Bearer",
		})
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = oauth2.NewClient(ctx, ts)
	}

	return &Client{
		cfg:         cfg,
		http:        httpClient,
		rateLimiter: NewRateLimiter(cfg.RequestsPerSecond),
	}
}

// RateLimiter returns the client's rate limiter.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// FetchUserID resolves a handle to its user ID.
func (c *Client) FetchUserID(ctx context.Context, handle string) (string, error) {
	user, err := c.lookupUser(ctx, "FetchUserID", handle)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// FetchProfile returns the public profile for a handle.
func (c *Client) FetchProfile(ctx context.Context, handle string) (*domain.Profile, error) {
	user, err := c.lookupUser(ctx, "FetchProfile", handle)
	if err != nil {
		return nil, err
	}
	return user.toProfile(), nil
}

func (c *Client) lookupUser(ctx context.Context, op, handle string) (*apiUser, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return nil, fmt.Errorf("%s: %w: empty handle", op, domain.ErrInvalidInput)
	}

	params := url.Values{}
	params.Set("user.fields", userFields)

	var resp userResponse
	if err := c.do(ctx, op, "/users/by/username/"+url.PathEscape(handle), params, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || resp.Data.ID == "" {
		if msg := problemMessage(resp.Errors); msg != "" {
			return nil, fmt.Errorf("%s %q: %w: %s", op, handle, domain.ErrNotFound, msg)
		}
		return nil, fmt.Errorf("%s %q: %w", op, handle, domain.ErrNotFound)
	}
	return resp.Data, nil
}

// FetchUserPosts returns up to limit posts from a user's timeline.
func (c *Client) FetchUserPosts(
	ctx context.Context,
	userID string,
	limit int,
	includeReplies, includeReposts bool,
) ([]domain.Post, error) {
	if userID == "" {
		return nil, fmt.Errorf("FetchUserPosts: %w: empty user id", domain.ErrInvalidInput)
	}

	params := url.Values{}
	params.Set("max_results", strconv.Itoa(clamp(limit, 5, 100)))
	params.Set("tweet.fields", tweetFields)
	params.Set("expansions", "referenced_tweets.id")

	var resp tweetsResponse
	if err := c.do(ctx, "FetchUserPosts", "/users/"+url.PathEscape(userID)+"/tweets", params, &resp); err != nil {
		return nil, err
	}
	return normalizeTweets(resp.Data, includeReplies, includeReposts), nil
}

// FetchByHashtag returns recent posts carrying the hashtag.
func (c *Client) FetchByHashtag(ctx context.Context, tag string, limit int) ([]domain.Post, error) {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" {
		return nil, fmt.Errorf("FetchByHashtag: %w: empty hashtag", domain.ErrInvalidInput)
	}
	return c.searchRecent(ctx, "FetchByHashtag", "#"+tag, limit)
}

// Search returns recent posts matching a free-text query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("Search: %w: empty query", domain.ErrInvalidInput)
	}
	return c.searchRecent(ctx, "Search", query, limit)
}

func (c *Client) searchRecent(ctx context.Context, op, query string, limit int) ([]domain.Post, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("max_results", strconv.Itoa(clamp(limit, 10, 100)))
	params.Set("tweet.fields", searchFields)
	params.Set("expansions", "author_id")

	var resp tweetsResponse
	if err := c.do(ctx, op, "/tweets/search/recent", params, &resp); err != nil {
		return nil, err
	}
	return normalizeTweets(resp.Data, true, true), nil
}

// do performs a GET with retries and decodes the JSON body into out.
// Retryable failures back off as min(base*2^(n-1), cap) before retry n,
// stretched to any Retry-After the server sent. After the last attempt the
// final error is returned wrapped in domain.ErrUpstreamUnavailable.
func (c *Client) do(ctx context.Context, op, endpoint string, params url.Values, out any) error {
	reqURL := c.cfg.BaseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := c.retryDelay(attempt-1, lastErr)
			log.Debug("%s: retry %d/%d in %s after: %v", op, attempt, c.cfg.MaxRetries, delay, lastErr)
			if err := c.cfg.Sleep(ctx, delay); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		lastErr = c.attempt(ctx, op, reqURL, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
		if !IsRetryable(lastErr) {
			break
		}
	}

	if IsNotFound(lastErr) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, lastErr)
	}
	log.Warn("%s failed: %v", op, lastErr)
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstreamUnavailable, lastErr)
}

// retryDelay returns the wait before retry n (1-based). A Retry-After hint
// can lengthen the wait but never past RetryCap.
func (c *Client) retryDelay(n int, cause error) time.Duration {
	delay := backoffDelay(c.cfg.RetryBase, c.cfg.RetryCap, n)

	var rlErr *RateLimitError
	if errors.As(cause, &rlErr) && rlErr.RetryAfter > delay {
		delay = min(rlErr.RetryAfter, c.cfg.RetryCap)
	}
	return delay
}

// backoffDelay is min(base*2^(n-1), ceiling) computed without overflow.
func backoffDelay(base, ceiling time.Duration, n int) time.Duration {
	if base <= 0 || base >= ceiling {
		return ceiling
	}
	delay := base
	for i := 1; i < n; i++ {
		if delay > ceiling/2 {
			return ceiling
		}
		delay *= 2
	}
	return delay
}

func (c *Client) attempt(ctx context.Context, op, reqURL string, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamAttempts.WithLabelValues(op, "network_error").Inc()
		return err
	}
	defer resp.Body.Close()

	if rlErr := c.rateLimiter.CheckRateLimit(resp); rlErr != nil {
		metrics.UpstreamAttempts.WithLabelValues(op, "rate_limited").Inc()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return rlErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.UpstreamAttempts.WithLabelValues(op, "http_error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Status, body),
			URL:        reqURL,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.UpstreamAttempts.WithLabelValues(op, "decode_error").Inc()
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	metrics.UpstreamAttempts.WithLabelValues(op, "ok").Inc()
	return nil
}

// errorMessage extracts a readable message from an error body.
func errorMessage(status string, body []byte) string {
	var payload struct {
		Title  string       `json:"title"`
		Detail string       `json:"detail"`
		Errors []apiProblem `json:"errors"`
	}
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.Detail != "":
			return payload.Detail
		case payload.Title != "":
			return payload.Title
		case len(payload.Errors) > 0:
			return problemMessage(payload.Errors)
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return status
}

func clamp(v, lo, hi int) int {
	if v <= 0 {
		return hi
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
