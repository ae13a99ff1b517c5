package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies a generation backend provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderGroq is the Groq OpenAI-compatible cloud API.
	AIProviderGroq AIProvider = "groq"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGroq, AIProviderOpenAI, AIProviderAnthropic, AIProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderGroq || p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderGroq:
		return "Groq (cloud, OpenAI-compatible)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	default:
		return unknownDescription
	}
}

// StorageBackend selects where cache records and the docs snapshot live.
type StorageBackend string

// Available storage backends.
const (
	StorageBackendFile   StorageBackend = "file"
	StorageBackendMemory StorageBackend = "memory"
	StorageBackendBolt   StorageBackend = "bbolt"
	StorageBackendSQLite StorageBackend = "sqlite"
	StorageBackendRedis  StorageBackend = "redis"
	StorageBackendS3     StorageBackend = "s3"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageBackendFile, StorageBackendMemory, StorageBackendBolt,
		StorageBackendSQLite, StorageBackendRedis, StorageBackendS3:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StorageBackend) Description() string {
	switch b {
	case StorageBackendFile:
		return "JSON files on disk"
	case StorageBackendMemory:
		return "In-memory (lost on exit)"
	case StorageBackendBolt:
		return "bbolt embedded database"
	case StorageBackendSQLite:
		return "SQLite database"
	case StorageBackendRedis:
		return "Redis server"
	case StorageBackendS3:
		return "S3-compatible object storage"
	default:
		return unknownDescription
	}
}

// AllStorageBackends returns every storage backend.
func AllStorageBackends() []StorageBackend {
	return []StorageBackend{
		StorageBackendFile,
		StorageBackendMemory,
		StorageBackendBolt,
		StorageBackendSQLite,
		StorageBackendRedis,
		StorageBackendS3,
	}
}

// PersonaSettings describes who the assistant speaks as.
type PersonaSettings struct {
	// Handle is the default account answered for.
	Handle string

	// Product is the product the documentation index covers.
	Product string

	// Description is a one-line role used in the prompt preamble.
	Description string
}

// UpstreamSettings configures the social API client.
type UpstreamSettings struct {
	BaseURL           string
	BearerToken       string
	MaxRetries        int
	RetryBase         time.Duration
	RetryCap          time.Duration
	Timeout           time.Duration
	RequestsPerSecond float64
}

// IsConfigured returns true if a bearer token is set.
func (u UpstreamSettings) IsConfigured() bool {
	return u.BearerToken != ""
}

// CacheSettings configures the post cache.
type CacheSettings struct {
	MaxAge         time.Duration
	SweepInterval  time.Duration
	WarmupInterval time.Duration
}

// DocsSettings configures the documentation index.
type DocsSettings struct {
	URL             string
	MaxAge          time.Duration
	RefreshInterval time.Duration
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Temperature, MaxTokens and TopP are the sampling parameters.
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StorageSettings configures the durable record store.
type StorageSettings struct {
	Backend StorageBackend

	// Dir is the data directory for file, bbolt and sqlite backends.
	// Empty means ~/.persona/data.
	Dir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
}

// TelemetrySettings configures tracing export.
type TelemetrySettings struct {
	// OTLPEndpoint is the OTLP/HTTP collector host:port. Empty disables export.
	OTLPEndpoint string
	ServiceName  string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Persona   PersonaSettings
	Upstream  UpstreamSettings
	Cache     CacheSettings
	Docs      DocsSettings
	LLM       LLMSettings
	Storage   StorageSettings
	Scheduler SchedulerConfig
	Telemetry TelemetrySettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Secrets (bearer token, API keys) are left empty.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Persona: PersonaSettings{
			Handle:      "ozenhati",
			Product:     "groq",
			Description: "Head of Developer Relations at Groq",
		},
		Upstream: UpstreamSettings{
			BaseURL:           "https://api.twitter.com/2",
			MaxRetries:        3,
			RetryBase:         1 * time.Second,
			RetryCap:          30 * time.Second,
			Timeout:           10 * time.Second,
			RequestsPerSecond: 1,
		},
		Cache: CacheSettings{
			MaxAge:         24 * time.Hour,
			SweepInterval:  1 * time.Hour,
			WarmupInterval: 6 * time.Hour,
		},
		Docs: DocsSettings{
			URL:             "https://console.groq.com/llms-full.txt",
			MaxAge:          7 * 24 * time.Hour,
			RefreshInterval: 24 * time.Hour,
		},
		LLM: LLMSettings{
			Provider:    AIProviderGroq,
			Model:       DefaultLLMModels()[AIProviderGroq],
			Temperature: 0.5,
			MaxTokens:   300,
			TopP:        1,
		},
		Storage: StorageSettings{
			Backend:   StorageBackendFile,
			RedisAddr: "localhost:6379",
			S3Bucket:  "persona-cache",
		},
		Scheduler: DefaultSchedulerConfig(),
		Telemetry: TelemetrySettings{
			ServiceName: "persona",
		},
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderGroq,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderOllama,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGroq:      "llama-3.3-70b-versatile",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderOllama:    "llama3.2",
	}
}
