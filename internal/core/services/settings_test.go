package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/persona-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

// mockAIValidator records validation calls.
type mockAIValidator struct {
	err    error
	called bool
	got    domain.LLMSettings
}

func (m *mockAIValidator) ValidateLLM(config *domain.LLMSettings) error {
	m.called = true
	m.got = *config
	return m.err
}

func newTestSettings(t *testing.T, seed map[string]any) (*SettingsService, *memory.ConfigStore, map[string]string) {
	t.Helper()
	store := memory.NewConfigStore(seed)
	env := map[string]string{}
	svc := NewSettingsService(store, nil)
	svc.getenv = func(k string) string { return env[k] }
	return svc, store, env
}

func TestNewSettingsService(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _, _ := newTestSettings(t, nil)

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Persona, settings.Persona)
	assert.Equal(t, defaults.Upstream, settings.Upstream)
	assert.Equal(t, defaults.Cache, settings.Cache)
	assert.Equal(t, defaults.Docs, settings.Docs)
	assert.Equal(t, defaults.LLM, settings.LLM)
	assert.Equal(t, defaults.Storage, settings.Storage)
	assert.Equal(t, defaults.Scheduler, settings.Scheduler)
	assert.Equal(t, defaults.Telemetry, settings.Telemetry)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, _, _ := newTestSettings(t, map[string]any{
		"persona.handle":             "jack",
		"upstream.retry_base_ms":     250,
		"upstream.timeout_seconds":   5,
		"cache.max_age_hours":        2,
		"cache.sweep_interval_hours": 3,
		"docs.max_age_days":          1,
		"llm.provider":               "ollama",
		"llm.temperature":            0.2,
		"storage.backend":            "sqlite",
		"scheduler.enabled":          false,
	})

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, "jack", settings.Persona.Handle)
	assert.Equal(t, 250*time.Millisecond, settings.Upstream.RetryBase)
	assert.Equal(t, 5*time.Second, settings.Upstream.Timeout)
	assert.Equal(t, 2*time.Hour, settings.Cache.MaxAge)
	assert.Equal(t, 24*time.Hour, settings.Docs.MaxAge)
	assert.Equal(t, domain.AIProviderOllama, settings.LLM.Provider)
	assert.Equal(t, "llama3.2", settings.LLM.Model, "model default follows provider")
	assert.InDelta(t, 0.2, settings.LLM.Temperature, 1e-9)
	assert.Equal(t, domain.StorageBackendSQLite, settings.Storage.Backend)
	assert.False(t, settings.Scheduler.Enabled)
	assert.Equal(t, 3*time.Hour, settings.Scheduler.GetTaskConfig(domain.TaskIDCacheSweep).Interval)
}

func TestSettingsService_Get_ZeroTemperatureIsKept(t *testing.T) {
	service, _, _ := newTestSettings(t, map[string]any{"llm.temperature": 0.0})

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Zero(t, settings.LLM.Temperature)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	service, _, _ := newTestSettings(t, map[string]any{
		"llm.provider":    "invalid_provider",
		"storage.backend": "floppy",
	})

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.LLM.Provider, settings.LLM.Provider)
	assert.Equal(t, defaults.Storage.Backend, settings.Storage.Backend)
}

func TestSettingsService_Get_EnvOverridesSecrets(t *testing.T) {
	service, _, env := newTestSettings(t, map[string]any{
		"upstream.bearer_token": "from-file",
		"llm.api_key":           "file-key",
	})

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "from-file", settings.Upstream.BearerToken)
	assert.Equal(t, "file-key", settings.LLM.APIKey)

	env[EnvUpstreamToken] = "from-env"
	env[EnvLLMAPIKey] = "env-key"

	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, "from-env", settings.Upstream.BearerToken)
	assert.Equal(t, "env-key", settings.LLM.APIKey)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	service, _, _ := newTestSettings(t, nil)

	settings := domain.DefaultAppSettings()
	settings.Persona.Handle = "someone"
	settings.Upstream.BearerToken = "tok"
	settings.Upstream.RetryCap = 10 * time.Second
	settings.Cache.MaxAge = 12 * time.Hour
	settings.LLM.Provider = domain.AIProviderOpenAI
	settings.LLM.Model = "gpt-4o"
	settings.LLM.APIKey = "sk-test"
	settings.Storage.Backend = domain.StorageBackendBolt
	settings.Scheduler.Enabled = false

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "someone", got.Persona.Handle)
	assert.Equal(t, "tok", got.Upstream.BearerToken)
	assert.Equal(t, 10*time.Second, got.Upstream.RetryCap)
	assert.Equal(t, 12*time.Hour, got.Cache.MaxAge)
	assert.Equal(t, domain.AIProviderOpenAI, got.LLM.Provider)
	assert.Equal(t, "gpt-4o", got.LLM.Model)
	assert.Equal(t, "sk-test", got.LLM.APIKey)
	assert.Equal(t, domain.StorageBackendBolt, got.Storage.Backend)
	assert.False(t, got.Scheduler.Enabled)
}

func TestSettingsService_SaveDoesNotPersistEnvSecrets(t *testing.T) {
	service, store, env := newTestSettings(t, nil)
	env[EnvUpstreamToken] = "from-env"

	settings, err := service.Get()
	require.NoError(t, err)
	require.NoError(t, service.Save(settings))

	_, exists := store.Get("upstream.bearer_token")
	assert.False(t, exists)
}

func TestSettingsService_Set(t *testing.T) {
	service, store, _ := newTestSettings(t, nil)

	require.NoError(t, service.Set("persona.handle", "jack"))
	require.NoError(t, service.Set("upstream.max_retries", "5"))
	require.NoError(t, service.Set("llm.top_p", "0.9"))
	require.NoError(t, service.Set("storage.s3_use_ssl", "true"))
	require.NoError(t, service.Set(" LLM.Provider ", "anthropic"))

	assert.Equal(t, "jack", store.GetString("persona.handle"))
	assert.Equal(t, 5, store.GetInt("upstream.max_retries"))
	assert.InDelta(t, 0.9, store.GetFloat("llm.top_p"), 1e-9)
	assert.True(t, store.GetBool("storage.s3_use_ssl"))
	assert.Equal(t, "anthropic", store.GetString("llm.provider"))
}

func TestSettingsService_SetRejectsBadInput(t *testing.T) {
	service, _, _ := newTestSettings(t, nil)

	tests := []struct {
		name       string
		key, value string
	}{
		{"unknown key", "nope.nope", "x"},
		{"bad int", "upstream.max_retries", "many"},
		{"negative int", "cache.max_age_hours", "-1"},
		{"bad float", "llm.temperature", "warm"},
		{"bad bool", "scheduler.enabled", "maybe"},
		{"bad provider", "llm.provider", "skynet"},
		{"bad backend", "storage.backend", "floppy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.Set(tt.key, tt.value)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSettingKeys_Sorted(t *testing.T) {
	keys := SettingKeys()
	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, "llm.api_key")
	assert.Contains(t, keys, "storage.backend")
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service, _, _ := newTestSettings(t, nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.LLM.Provider)
	assert.Equal(t, "llama3.2", settings.LLM.Model)
	assert.Equal(t, "http://localhost:11434", settings.LLM.BaseURL)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderGroq, "llama-3.1-8b-instant", "gsk"))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, "llama-3.1-8b-instant", settings.LLM.Model)
	assert.Empty(t, settings.LLM.BaseURL)
	assert.Equal(t, "gsk", settings.LLM.APIKey)
}

func TestSettingsService_SetLLMProvider_Errors(t *testing.T) {
	service, _, env := newTestSettings(t, nil)

	assert.Error(t, service.SetLLMProvider("skynet", "", ""))
	assert.Error(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", ""))

	env[EnvLLMAPIKey] = "env-key"
	assert.NoError(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", ""))
}

func TestSettingsService_SetBearerToken(t *testing.T) {
	service, store, _ := newTestSettings(t, nil)

	assert.ErrorIs(t, service.SetBearerToken("  "), domain.ErrInvalidInput)
	require.NoError(t, service.SetBearerToken(" abc "))
	assert.Equal(t, "abc", store.GetString("upstream.bearer_token"))
}

func TestSettingsService_Validate(t *testing.T) {
	service, _, env := newTestSettings(t, nil)

	err := service.Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "no bearer token")

	env[EnvUpstreamToken] = "tok"
	err = service.Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "groq needs an api key")

	env[EnvLLMAPIKey] = "key"
	assert.NoError(t, service.Validate())
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service, _, _ := newTestSettings(t, nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestSettingsService_GetSchedulerConfig(t *testing.T) {
	service, _, _ := newTestSettings(t, map[string]any{"docs.refresh_interval_hours": 48})

	cfg, err := service.GetSchedulerConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 48*time.Hour, cfg.GetTaskConfig(domain.TaskIDDocsRefresh).Interval)
	assert.True(t, cfg.GetTaskConfig(domain.TaskIDCacheWarmup).RunOnStart)
}

func TestSettingsService_ValidateLLMConfig(t *testing.T) {
	service, _, _ := newTestSettings(t, nil)
	assert.NoError(t, service.ValidateLLMConfig(), "nil validator is a no-op")

	validator := &mockAIValidator{err: errBoom}
	service.aiValidator = validator
	assert.ErrorIs(t, service.ValidateLLMConfig(), errBoom)
	assert.True(t, validator.called)
	assert.Equal(t, domain.AIProviderGroq, validator.got.Provider)
}
