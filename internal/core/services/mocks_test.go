package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
)

// --- Shared test doubles ---

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// mockSocialClient implements driven.SocialClient with canned data.
type mockSocialClient struct {
	mu        sync.Mutex
	userID    string
	profile   *domain.Profile
	posts     []domain.Post
	searchRes []domain.Post
	err       error
	profErr   error
	gate      chan struct{}

	idCalls     int32
	postsCalls  int32
	searchCalls int32
	lastLimit   int
	lastReplies bool
	lastReposts bool
}

func (m *mockSocialClient) FetchUserID(_ context.Context, handle string) (string, error) {
	atomic.AddInt32(&m.idCalls, 1)
	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return "", m.err
	}
	if m.userID == "" {
		return "id-" + handle, nil
	}
	return m.userID, nil
}

func (m *mockSocialClient) FetchProfile(_ context.Context, _ string) (*domain.Profile, error) {
	if m.profErr != nil {
		return nil, m.profErr
	}
	return m.profile, nil
}

func (m *mockSocialClient) FetchUserPosts(
	_ context.Context,
	_ string,
	limit int,
	includeReplies, includeReposts bool,
) ([]domain.Post, error) {
	atomic.AddInt32(&m.postsCalls, 1)
	m.mu.Lock()
	m.lastLimit = limit
	m.lastReplies = includeReplies
	m.lastReposts = includeReposts
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.Post(nil), m.posts...), nil
}

func (m *mockSocialClient) FetchByHashtag(_ context.Context, _ string, _ int) ([]domain.Post, error) {
	atomic.AddInt32(&m.searchCalls, 1)
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.Post(nil), m.searchRes...), nil
}

func (m *mockSocialClient) Search(_ context.Context, _ string, _ int) ([]domain.Post, error) {
	atomic.AddInt32(&m.searchCalls, 1)
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.Post(nil), m.searchRes...), nil
}

// mockLLM implements driven.LLMService and records requests.
type mockLLM struct {
	mu       sync.Mutex
	response string
	err      error
	requests []driven.CompletionRequest
}

func (m *mockLLM) Complete(_ context.Context, req driven.CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) ModelName() string { return "mock-model" }

func (m *mockLLM) Ping(_ context.Context) error { return m.err }

func (m *mockLLM) Close() error { return nil }

func (m *mockLLM) lastRequest() driven.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return driven.CompletionRequest{}
	}
	return m.requests[len(m.requests)-1]
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// mockDocsSource implements driven.DocsSource.
type mockDocsSource struct {
	mu     sync.Mutex
	corpus string
	err    error
	delay  time.Duration
	calls  int32
}

func (m *mockDocsSource) Fetch(_ context.Context) (string, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.corpus, nil
}

func (m *mockDocsSource) Location() string { return "mock://docs" }

func (m *mockDocsSource) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// failingRecordStore wraps a RecordStore and fails selected operations.
type failingRecordStore struct {
	driven.RecordStore
	readErr  error
	writeErr error
}

func (f *failingRecordStore) Read(ctx context.Context, key string) (*driven.Record, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.RecordStore.Read(ctx, key)
}

func (f *failingRecordStore) Write(ctx context.Context, key string, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.RecordStore.Write(ctx, key, data)
}

var errBoom = errors.New("boom")

// Ensure mocks implement interfaces
var (
	_ driven.SocialClient = (*mockSocialClient)(nil)
	_ driven.LLMService   = (*mockLLM)(nil)
	_ driven.DocsSource   = (*mockDocsSource)(nil)
	_ driven.RecordStore  = (*failingRecordStore)(nil)
)
