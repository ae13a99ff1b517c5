package cli

import (
	"bytes"
	"context"
	"time"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/logger"
)

// mockAnswerService implements driving.AnswerService.
type mockAnswerService struct {
	answer      *domain.Answer
	err         error
	gotQuestion string
	gotIdentity string
}

func (m *mockAnswerService) Answer(_ context.Context, question, identity string) (*domain.Answer, error) {
	m.gotQuestion = question
	m.gotIdentity = identity
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{Text: "My most recent post was about LPUs.", Path: domain.AnswerPathDirect}, nil
}

// mockPostService implements driving.PostService.
type mockPostService struct {
	result   *domain.PostsResult
	err      error
	gotQuery domain.PostQuery
}

func (m *mockPostService) GetPosts(_ context.Context, q domain.PostQuery) (*domain.PostsResult, error) {
	m.gotQuery = q
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.PostsResult{
		Posts: []domain.Post{
			{ID: "1", CreatedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC), Text: "Shipping day", LikeCount: 10, RepostCount: 3},
		},
		Profile: &domain.Profile{Handle: "ozenhati", DisplayName: "Ozen", FollowerCount: 1000, PostCount: 50},
		Source:  domain.PostSourceAPI,
	}, nil
}

func (m *mockPostService) Warmup(_ context.Context, _ string) error { return m.err }

// mockCacheAdmin implements driving.CacheAdmin.
type mockCacheAdmin struct {
	infos     []domain.CacheInfo
	evicted   []string
	missing   bool
	gotMaxAge time.Duration
	err       error
}

func (m *mockCacheAdmin) ListCaches(_ context.Context) ([]domain.CacheInfo, error) {
	return m.infos, m.err
}

func (m *mockCacheAdmin) Evict(_ context.Context, key string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.missing {
		return false, nil
	}
	m.evicted = append(m.evicted, key)
	return true, nil
}

func (m *mockCacheAdmin) EvictAll(_ context.Context) (int, error) {
	return len(m.infos), m.err
}

func (m *mockCacheAdmin) SweepExpired(_ context.Context, maxAge time.Duration) (int, error) {
	m.gotMaxAge = maxAge
	return 2, m.err
}

// mockDocsService implements driving.DocsService.
type mockDocsService struct {
	status     domain.DocsStatus
	matches    []domain.ScoredChunk
	ensureErr  error
	refreshErr error
	refreshed  bool
}

func (m *mockDocsService) EnsureReady(_ context.Context) error { return m.ensureErr }

func (m *mockDocsService) Refresh(_ context.Context) error {
	m.refreshed = true
	return m.refreshErr
}

func (m *mockDocsService) IsGroundingQuestion(_ string) bool { return false }

func (m *mockDocsService) TopMatches(_ string, limit int) []domain.ScoredChunk {
	if len(m.matches) > limit {
		return m.matches[:limit]
	}
	return m.matches
}

func (m *mockDocsService) GroundingContext(_ context.Context, _ string, _ int) string { return "" }

func (m *mockDocsService) Status() domain.DocsStatus { return m.status }

// mockSettingsService implements driving.SettingsService.
type mockSettingsService struct {
	settings    domain.AppSettings
	set         map[string]string
	setErr      error
	validateErr error
	llmErr      error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings(), set: map[string]string{}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetBearerToken(token string) error {
	m.settings.Upstream.BearerToken = token
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) Keys() []string {
	return []string{"cache.max_age_hours", "persona.handle"}
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.llmErr }

// mockScheduler implements driving.Scheduler.
type mockScheduler struct {
	started chan struct{}
	stopped bool
}

func (m *mockScheduler) Start(ctx context.Context) error {
	close(m.started)
	<-ctx.Done()
	return nil
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

type testServices struct {
	answers  *mockAnswerService
	posts    *mockPostService
	cache    *mockCacheAdmin
	docs     *mockDocsService
	settings *mockSettingsService
}

// setupTestServices installs mock services and returns a cleanup function
// that removes them and resets flag state.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		answers:  &mockAnswerService{},
		posts:    &mockPostService{},
		cache:    &mockCacheAdmin{},
		docs:     &mockDocsService{},
		settings: newMockSettingsService(),
	}
	SetServices(&Services{
		Answers:  ts.answers,
		Posts:    ts.posts,
		Cache:    ts.cache,
		Docs:     ts.docs,
		Settings: ts.settings,
	})

	return ts, func() {
		SetServices(&Services{})
		askAs, askJSON = "", false
		postsLimit, postsRefresh, postsJSON, postsReplies, postsReposts = 0, false, false, false, false
		cacheJSON, cacheMaxAge = false, 0
		docsLimit = 3
		chatAs = ""
		verbose = false
		logger.SetVerbose(false)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}
}

// runCommand executes the root command with args and returns its output.
func runCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}
