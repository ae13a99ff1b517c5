package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer      *domain.Answer
	err         error
	gotQuestion string
	gotIdentity string
}

func (m *mockAnswerService) Answer(_ context.Context, question, identity string) (*domain.Answer, error) {
	m.gotQuestion = question
	m.gotIdentity = identity
	return m.answer, m.err
}

// mockPostService is a mock implementation of driving.PostService.
type mockPostService struct {
	result   *domain.PostsResult
	err      error
	gotQuery domain.PostQuery
}

func (m *mockPostService) GetPosts(_ context.Context, q domain.PostQuery) (*domain.PostsResult, error) {
	m.gotQuery = q
	return m.result, m.err
}

func (m *mockPostService) Warmup(_ context.Context, _ string) error {
	return m.err
}

// mockCacheAdmin is a mock implementation of driving.CacheAdmin.
type mockCacheAdmin struct {
	infos []domain.CacheInfo
	err   error
}

func (m *mockCacheAdmin) ListCaches(_ context.Context) ([]domain.CacheInfo, error) {
	return m.infos, m.err
}

func (m *mockCacheAdmin) Evict(_ context.Context, _ string) (bool, error) {
	return false, m.err
}

func (m *mockCacheAdmin) EvictAll(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockCacheAdmin) SweepExpired(_ context.Context, _ time.Duration) (int, error) {
	return 0, m.err
}

// mockDocsService is a mock implementation of driving.DocsService.
type mockDocsService struct {
	matches  []domain.ScoredChunk
	status   domain.DocsStatus
	err      error
	gotLimit int
}

func (m *mockDocsService) EnsureReady(_ context.Context) error { return m.err }

func (m *mockDocsService) Refresh(_ context.Context) error { return m.err }

func (m *mockDocsService) IsGroundingQuestion(_ string) bool { return false }

func (m *mockDocsService) TopMatches(_ string, limit int) []domain.ScoredChunk {
	m.gotLimit = limit
	return m.matches
}

func (m *mockDocsService) GroundingContext(_ context.Context, _ string, _ int) string { return "" }

func (m *mockDocsService) Status() domain.DocsStatus { return m.status }
