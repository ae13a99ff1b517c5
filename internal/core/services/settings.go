package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Environment variables that override stored secrets.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvUpstreamToken = "PERSONA_UPSTREAM_TOKEN"
	EnvLLMAPIKey     = "PERSONA_LLM_API_KEY"
)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyPersonaHandle      = "persona.handle"
	keyPersonaProduct     = "persona.product"
	keyPersonaDescription = "persona.description"

	keyUpstreamBaseURL    = "upstream.base_url"
	keyUpstreamToken      = "upstream.bearer_token"
	keyUpstreamMaxRetries = "upstream.max_retries"
	keyUpstreamRetryBase  = "upstream.retry_base_ms"
	keyUpstreamRetryCap   = "upstream.retry_cap_ms"
	keyUpstreamTimeout    = "upstream.timeout_seconds"
	keyUpstreamRPS        = "upstream.requests_per_second"

	keyCacheMaxAge         = "cache.max_age_hours"
	keyCacheSweepInterval  = "cache.sweep_interval_hours"
	keyCacheWarmupInterval = "cache.warmup_interval_hours"

	keyDocsURL             = "docs.url"
	keyDocsMaxAge          = "docs.max_age_days"
	keyDocsRefreshInterval = "docs.refresh_interval_hours"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"
	keyLLMMaxTokens   = "llm.max_tokens"
	keyLLMTopP        = "llm.top_p"

	keyStorageBackend       = "storage.backend"
	keyStorageDir           = "storage.dir"
	keyStorageRedisAddr     = "storage.redis_addr"
	keyStorageRedisPassword = "storage.redis_password"
	keyStorageRedisDB       = "storage.redis_db"
	keyStorageS3Endpoint    = "storage.s3_endpoint"
	keyStorageS3AccessKey   = "storage.s3_access_key"
	keyStorageS3SecretKey   = "storage.s3_secret_key"
	keyStorageS3Bucket      = "storage.s3_bucket"
	keyStorageS3UseSSL      = "storage.s3_use_ssl"

	keySchedulerEnabled = "scheduler.enabled"

	keyTelemetryEndpoint    = "telemetry.otlp_endpoint"
	keyTelemetryServiceName = "telemetry.service_name"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
)

// settingKinds lists every key accepted by Set and how its value is parsed.
var settingKinds = map[string]valueKind{
	keyPersonaHandle:        kindString,
	keyPersonaProduct:       kindString,
	keyPersonaDescription:   kindString,
	keyUpstreamBaseURL:      kindString,
	keyUpstreamToken:        kindString,
	keyUpstreamMaxRetries:   kindInt,
	keyUpstreamRetryBase:    kindInt,
	keyUpstreamRetryCap:     kindInt,
	keyUpstreamTimeout:      kindInt,
	keyUpstreamRPS:          kindFloat,
	keyCacheMaxAge:          kindInt,
	keyCacheSweepInterval:   kindInt,
	keyCacheWarmupInterval:  kindInt,
	keyDocsURL:              kindString,
	keyDocsMaxAge:           kindInt,
	keyDocsRefreshInterval:  kindInt,
	keyLLMProvider:          kindString,
	keyLLMModel:             kindString,
	keyLLMBaseURL:           kindString,
	keyLLMAPIKey:            kindString,
	keyLLMTemperature:       kindFloat,
	keyLLMMaxTokens:         kindInt,
	keyLLMTopP:              kindFloat,
	keyStorageBackend:       kindString,
	keyStorageDir:           kindString,
	keyStorageRedisAddr:     kindString,
	keyStorageRedisPassword: kindString,
	keyStorageRedisDB:       kindInt,
	keyStorageS3Endpoint:    kindString,
	keyStorageS3AccessKey:   kindString,
	keyStorageS3SecretKey:   kindString,
	keyStorageS3Bucket:      kindString,
	keyStorageS3UseSSL:      kindBool,
	keySchedulerEnabled:     kindBool,
	keyTelemetryEndpoint:    kindString,
	keyTelemetryServiceName: kindString,
}

// SettingKeys returns every configurable key in sorted order.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings. Environment variables
// override the stored bearer token and LLM API key.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Persona: domain.PersonaSettings{
			Handle:      s.getString(keyPersonaHandle, d.Persona.Handle),
			Product:     s.getString(keyPersonaProduct, d.Persona.Product),
			Description: s.getString(keyPersonaDescription, d.Persona.Description),
		},
		Upstream: domain.UpstreamSettings{
			BaseURL:           s.getString(keyUpstreamBaseURL, d.Upstream.BaseURL),
			BearerToken:       s.secret(keyUpstreamToken, EnvUpstreamToken),
			MaxRetries:        s.getInt(keyUpstreamMaxRetries, d.Upstream.MaxRetries),
			RetryBase:         s.getDuration(keyUpstreamRetryBase, time.Millisecond, d.Upstream.RetryBase),
			RetryCap:          s.getDuration(keyUpstreamRetryCap, time.Millisecond, d.Upstream.RetryCap),
			Timeout:           s.getDuration(keyUpstreamTimeout, time.Second, d.Upstream.Timeout),
			RequestsPerSecond: s.getFloat(keyUpstreamRPS, d.Upstream.RequestsPerSecond),
		},
		Cache: domain.CacheSettings{
			MaxAge:         s.getDuration(keyCacheMaxAge, time.Hour, d.Cache.MaxAge),
			SweepInterval:  s.getDuration(keyCacheSweepInterval, time.Hour, d.Cache.SweepInterval),
			WarmupInterval: s.getDuration(keyCacheWarmupInterval, time.Hour, d.Cache.WarmupInterval),
		},
		Docs: domain.DocsSettings{
			URL:             s.getString(keyDocsURL, d.Docs.URL),
			MaxAge:          s.getDuration(keyDocsMaxAge, 24*time.Hour, d.Docs.MaxAge),
			RefreshInterval: s.getDuration(keyDocsRefreshInterval, time.Hour, d.Docs.RefreshInterval),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, d.LLM.Provider),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL), // No default - empty means the provider's own endpoint
			APIKey:      s.secret(keyLLMAPIKey, EnvLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
			TopP:        s.getFloat(keyLLMTopP, d.LLM.TopP),
		},
		Storage: domain.StorageSettings{
			Backend:       s.getBackend(d.Storage.Backend),
			Dir:           s.configStore.GetString(keyStorageDir),
			RedisAddr:     s.getString(keyStorageRedisAddr, d.Storage.RedisAddr),
			RedisPassword: s.configStore.GetString(keyStorageRedisPassword),
			RedisDB:       s.configStore.GetInt(keyStorageRedisDB),
			S3Endpoint:    s.configStore.GetString(keyStorageS3Endpoint),
			S3AccessKey:   s.configStore.GetString(keyStorageS3AccessKey),
			S3SecretKey:   s.configStore.GetString(keyStorageS3SecretKey),
			S3Bucket:      s.getString(keyStorageS3Bucket, d.Storage.S3Bucket),
			S3UseSSL:      s.getBool(keyStorageS3UseSSL, d.Storage.S3UseSSL),
		},
		Telemetry: domain.TelemetrySettings{
			OTLPEndpoint: s.configStore.GetString(keyTelemetryEndpoint),
			ServiceName:  s.getString(keyTelemetryServiceName, d.Telemetry.ServiceName),
		},
	}

	// The model default follows the provider.
	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])

	settings.Scheduler = schedulerConfig(
		s.getBool(keySchedulerEnabled, d.Scheduler.Enabled),
		settings.Cache,
		settings.Docs,
	)

	return settings, nil
}

// GetSchedulerConfig derives the scheduler configuration from settings.
func (s *SettingsService) GetSchedulerConfig() (domain.SchedulerConfig, error) {
	settings, err := s.Get()
	if err != nil {
		return domain.SchedulerConfig{}, err
	}
	return settings.Scheduler, nil
}

func schedulerConfig(enabled bool, cache domain.CacheSettings, docs domain.DocsSettings) domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	cfg.Enabled = enabled

	sweep := cfg.TaskConfigs[domain.TaskIDCacheSweep]
	sweep.Interval = cache.SweepInterval
	cfg.TaskConfigs[domain.TaskIDCacheSweep] = sweep

	warmup := cfg.TaskConfigs[domain.TaskIDCacheWarmup]
	warmup.Interval = cache.WarmupInterval
	cfg.TaskConfigs[domain.TaskIDCacheWarmup] = warmup

	refresh := cfg.TaskConfigs[domain.TaskIDDocsRefresh]
	refresh.Interval = docs.RefreshInterval
	cfg.TaskConfigs[domain.TaskIDDocsRefresh] = refresh

	return cfg
}

// Save persists application settings. Empty secrets are not written so an
// environment override is never copied into the file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key string
		val any
	}{
		{keyPersonaHandle, settings.Persona.Handle},
		{keyPersonaProduct, settings.Persona.Product},
		{keyPersonaDescription, settings.Persona.Description},
		{keyUpstreamBaseURL, settings.Upstream.BaseURL},
		{keyUpstreamMaxRetries, settings.Upstream.MaxRetries},
		{keyUpstreamRetryBase, int(settings.Upstream.RetryBase / time.Millisecond)},
		{keyUpstreamRetryCap, int(settings.Upstream.RetryCap / time.Millisecond)},
		{keyUpstreamTimeout, int(settings.Upstream.Timeout / time.Second)},
		{keyUpstreamRPS, settings.Upstream.RequestsPerSecond},
		{keyCacheMaxAge, int(settings.Cache.MaxAge / time.Hour)},
		{keyCacheSweepInterval, int(settings.Cache.SweepInterval / time.Hour)},
		{keyCacheWarmupInterval, int(settings.Cache.WarmupInterval / time.Hour)},
		{keyDocsURL, settings.Docs.URL},
		{keyDocsMaxAge, int(settings.Docs.MaxAge / (24 * time.Hour))},
		{keyDocsRefreshInterval, int(settings.Docs.RefreshInterval / time.Hour)},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyLLMTopP, settings.LLM.TopP},
		{keyStorageBackend, settings.Storage.Backend.String()},
		{keyStorageDir, settings.Storage.Dir},
		{keyStorageRedisAddr, settings.Storage.RedisAddr},
		{keyStorageRedisDB, settings.Storage.RedisDB},
		{keyStorageS3Endpoint, settings.Storage.S3Endpoint},
		{keyStorageS3Bucket, settings.Storage.S3Bucket},
		{keyStorageS3UseSSL, settings.Storage.S3UseSSL},
		{keySchedulerEnabled, settings.Scheduler.Enabled},
		{keyTelemetryEndpoint, settings.Telemetry.OTLPEndpoint},
		{keyTelemetryServiceName, settings.Telemetry.ServiceName},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := []struct {
		key, env, val string
	}{
		{keyUpstreamToken, EnvUpstreamToken, settings.Upstream.BearerToken},
		{keyLLMAPIKey, EnvLLMAPIKey, settings.LLM.APIKey},
		{keyStorageRedisPassword, "", settings.Storage.RedisPassword},
		{keyStorageS3AccessKey, "", settings.Storage.S3AccessKey},
		{keyStorageS3SecretKey, "", settings.Storage.S3SecretKey},
	}
	for _, sec := range secrets {
		if sec.val == "" || (sec.env != "" && s.getenv(sec.env) == sec.val) {
			continue
		}
		if err := s.configStore.Set(sec.key, sec.val); err != nil {
			return fmt.Errorf("save %s: %w", sec.key, err)
		}
	}

	return nil
}

// Set parses value according to the key's type and stores it.
func (s *SettingsService) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s expects a non-negative integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s expects a non-negative number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false", domain.ErrInvalidInput, key)
		}
		parsed = b
	default:
		parsed = value
	}

	switch key {
	case keyLLMProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, value)
		}
	case keyStorageBackend:
		if !domain.StorageBackend(value).IsValid() {
			return fmt.Errorf("%w: invalid storage backend: %s", domain.ErrInvalidInput, value)
		}
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(EnvLLMAPIKey) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	// Local providers need a base URL, cloud providers use their own endpoint.
	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetBearerToken stores the upstream API bearer token.
func (s *SettingsService) SetBearerToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: bearer token is empty", domain.ErrInvalidInput)
	}
	return s.configStore.Set(keyUpstreamToken, token)
}

// Validate checks that the settings can serve persona answers.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Persona.Handle == "" {
		return fmt.Errorf("%w: persona.handle is not set", domain.ErrInvalidInput)
	}
	if !settings.Upstream.IsConfigured() {
		return fmt.Errorf("%w: upstream bearer token is not set (use 'persona settings token' or %s)",
			domain.ErrInvalidInput, EnvUpstreamToken)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %q is not configured", domain.ErrInvalidInput, settings.LLM.Provider)
	}
	if !settings.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: invalid storage backend: %s", domain.ErrInvalidInput, settings.Storage.Backend)
	}
	return nil
}

// Keys lists the keys accepted by Set, sorted.
func (s *SettingsService) Keys() []string {
	return SettingKeys()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, unit, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * unit
}

func (s *SettingsService) secret(key, env string) string {
	if v := s.getenv(env); v != "" {
		return v
	}
	return s.configStore.GetString(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	val := s.configStore.GetString(keyStorageBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.StorageBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
