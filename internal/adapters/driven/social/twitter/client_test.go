package twitter

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

// recordingSleeper captures backoff delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// scriptedServer answers with the given status codes in order, then 200 with body.
func scriptedServer(t *testing.T, statuses []int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		if n <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			_, _ = w.Write([]byte(`{"title":"scripted failure"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(baseURL string, sleeper *recordingSleeper) *Client {
	return NewClient(Config{
		BaseURL:     baseURL,
		BearerToken: "test-token",
		MaxRetries:  3,
		RetryBase:   time.Second,
		RetryCap:    30 * time.Second,
		Timeout:     2 * time.Second,
		HTTPClient:  &http.Client{},
		Sleep:       sleeper.Sleep,
	})
}

const userBody = `{"data":{"id":"42","name":"Jane","username":"jane","description":"dev rel",
"public_metrics":{"followers_count":10,"following_count":3,"tweet_count":99}}}`

func TestClient_RetriesRateLimitWithExponentialBackoff(t *testing.T) {
	srv, calls := scriptedServer(t, []int{429, 429}, userBody)
	sleeper := &recordingSleeper{}
	client := newTestClient(srv.URL, sleeper)

	id, err := client.FetchUserID(context.Background(), "jane")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.Delays())
}

func TestClient_ServerErrorsExhaustRetries(t *testing.T) {
	srv, calls := scriptedServer(t, []int{503, 502, 500}, userBody)
	sleeper := &recordingSleeper{}
	client := newTestClient(srv.URL, sleeper)

	_, err := client.FetchUserID(context.Background(), "jane")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.Len(t, sleeper.Delays(), 2)
}

func TestClient_BackoffIsCapped(t *testing.T) {
	srv, _ := scriptedServer(t, []int{500, 500, 500, 500, 500}, userBody)
	sleeper := &recordingSleeper{}
	client := NewClient(Config{
		BaseURL:    srv.URL,
		MaxRetries: 6,
		RetryBase:  time.Second,
		RetryCap:   5 * time.Second,
		HTTPClient: &http.Client{},
		Sleep:      sleeper.Sleep,
	})

	_, err := client.FetchUserID(context.Background(), "jane")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second,
	}, sleeper.Delays())
}

func TestClient_RetryAfterStretchesDelay(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set(HeaderRetryAfter, "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(userBody))
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	_, err := newTestClient(srv.URL, sleeper).FetchUserID(context.Background(), "jane")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{7 * time.Second}, sleeper.Delays())
}

func TestClient_RetryAfterIsClampedToCap(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set(HeaderRetryAfter, "3600")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(userBody))
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	_, err := newTestClient(srv.URL, sleeper).FetchUserID(context.Background(), "jane")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{30 * time.Second}, sleeper.Delays())
}

func TestBackoffDelay(t *testing.T) {
	huge := time.Duration(math.MaxInt64 / 3)
	tests := []struct {
		name    string
		base    time.Duration
		ceiling time.Duration
		n       int
		want    time.Duration
	}{
		{"first", time.Second, 30 * time.Second, 1, time.Second},
		{"doubles", time.Second, 30 * time.Second, 4, 8 * time.Second},
		{"capped", time.Second, 30 * time.Second, 6, 30 * time.Second},
		{"many attempts", time.Second, 30 * time.Second, 200, 30 * time.Second},
		{"large base does not overflow", huge, time.Duration(math.MaxInt64), 3, time.Duration(math.MaxInt64)},
		{"base above ceiling", time.Minute, time.Second, 1, time.Second},
		{"zero base", 0, time.Second, 2, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := backoffDelay(tt.base, tt.ceiling, tt.n)
			assert.Equal(t, tt.want, got)
			assert.Positive(t, got)
		})
	}
}

func TestClient_ClientErrorFailsFast(t *testing.T) {
	srv, calls := scriptedServer(t, []int{400}, userBody)
	sleeper := &recordingSleeper{}

	_, err := newTestClient(srv.URL, sleeper).FetchUserID(context.Background(), "jane")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Empty(t, sleeper.Delays())
}

func TestClient_NotFoundStatus(t *testing.T) {
	srv, calls := scriptedServer(t, []int{404}, userBody)

	_, err := newTestClient(srv.URL, &recordingSleeper{}).FetchUserID(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_MissingUserInBody(t *testing.T) {
	srv, _ := scriptedServer(t, nil,
		`{"errors":[{"title":"Not Found Error","detail":"Could not find user with username: [ghost]."}]}`)

	_, err := newTestClient(srv.URL, &recordingSleeper{}).FetchUserID(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "Could not find user")
}

func TestClient_NetworkErrorIsRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					_ = conn.Close()
				}
			}
			return
		}
		_, _ = w.Write([]byte(userBody))
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	id, err := newTestClient(srv.URL, sleeper).FetchUserID(context.Background(), "jane")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, []time.Duration{time.Second}, sleeper.Delays())
}

func TestClient_PerAttemptTimeoutIsRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte(userBody))
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	client := NewClient(Config{
		BaseURL:    srv.URL,
		Timeout:    50 * time.Millisecond,
		HTTPClient: &http.Client{},
		Sleep:      sleeper.Sleep,
	})

	id, err := client.FetchUserID(context.Background(), "jane")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_MalformedBodyIsNotRetried(t *testing.T) {
	srv, calls := scriptedServer(t, nil, `{not json`)

	_, err := newTestClient(srv.URL, &recordingSleeper{}).FetchUserID(context.Background(), "jane")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_CancelledContextStopsRetries(t *testing.T) {
	srv, _ := scriptedServer(t, []int{500, 500, 500}, userBody)
	ctx, cancel := context.WithCancel(context.Background())

	client := NewClient(Config{
		BaseURL:    srv.URL,
		HTTPClient: &http.Client{},
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})

	_, err := client.FetchUserID(ctx, "jane")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_SendsBearerTokenAndParams(t *testing.T) {
	var gotAuth, gotPath, gotFields string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotFields = r.URL.Query().Get("user.fields")
		_, _ = w.Write([]byte(userBody))
	}))
	defer srv.Close()

	profile, err := newTestClient(srv.URL, &recordingSleeper{}).FetchProfile(context.Background(), "@jane")
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "/users/by/username/jane", gotPath)
	assert.Equal(t, userFields, gotFields)
	assert.Equal(t, "jane", profile.Handle)
	assert.Equal(t, "Jane", profile.DisplayName)
	assert.Equal(t, uint64(10), profile.FollowerCount)
	assert.Equal(t, uint64(99), profile.PostCount)
}

func TestClient_FetchUserPostsFiltersAndDefaults(t *testing.T) {
	body := `{"data":[
		{"id":"1","text":"original","created_at":"2024-03-01T10:00:00Z","public_metrics":{"like_count":5,"retweet_count":2}},
		{"id":"2","text":"RT someone","created_at":"2024-03-01T09:00:00Z","referenced_tweets":[{"type":"retweeted","id":"9"}]},
		{"id":"3","text":"@bob reply","created_at":"2024-03-01T08:00:00Z","in_reply_to_user_id":"77"},
		{"id":"4","text":"no metrics"}
	]}`
	var gotMax string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMax = r.URL.Query().Get("max_results")
		assert.Equal(t, "/users/42/tweets", r.URL.Path)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	client := newTestClient(srv.URL, &recordingSleeper{})

	posts, err := client.FetchUserPosts(context.Background(), "42", 100, false, false)
	require.NoError(t, err)
	assert.Equal(t, "100", gotMax)
	require.Len(t, posts, 2)
	assert.Equal(t, "1", posts[0].ID)
	assert.Equal(t, uint64(5), posts[0].LikeCount)
	assert.Equal(t, uint64(2), posts[0].RepostCount)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), posts[0].CreatedAt.UTC())
	assert.Equal(t, "4", posts[1].ID)
	assert.Zero(t, posts[1].LikeCount)
	assert.Zero(t, posts[1].RepostCount)
	assert.True(t, posts[1].CreatedAt.IsZero())

	posts, err = client.FetchUserPosts(context.Background(), "42", 1, true, true)
	require.NoError(t, err)
	assert.Equal(t, "5", gotMax)
	assert.Len(t, posts, 4)
}

func TestClient_FetchByHashtagBuildsQuery(t *testing.T) {
	var gotQuery, gotMax string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotMax = r.URL.Query().Get("max_results")
		assert.Equal(t, "/tweets/search/recent", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"1","text":"#golang rocks","author_id":"5"}]}`))
	}))
	defer srv.Close()
	client := newTestClient(srv.URL, &recordingSleeper{})

	posts, err := client.FetchByHashtag(context.Background(), "#golang", 3)
	require.NoError(t, err)
	assert.Equal(t, "#golang", gotQuery)
	assert.Equal(t, "10", gotMax)
	require.Len(t, posts, 1)
	assert.Equal(t, "5", posts[0].AuthorID)

	_, err = client.Search(context.Background(), "go generics", 500)
	require.NoError(t, err)
	assert.Equal(t, "go generics", gotQuery)
	assert.Equal(t, "100", gotMax)
}

func TestClient_EmptyInputsAreInvalid(t *testing.T) {
	client := NewClient(Config{})
	ctx := context.Background()

	_, err := client.FetchUserID(ctx, "  @ ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = client.FetchUserPosts(ctx, "", 10, false, false)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = client.FetchByHashtag(ctx, "#", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = client.Search(ctx, "", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClient_RateLimitErrorMatchesDomain(t *testing.T) {
	srv, _ := scriptedServer(t, []int{429, 429, 429}, userBody)

	_, err := newTestClient(srv.URL, &recordingSleeper{}).FetchUserID(context.Background(), "jane")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.True(t, IsRateLimited(err))
}
