// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService is the generation backend used to phrase persona answers.
// This is an optional service - when nil, answers degrade to the keyword fallback.
//
// Implementations include:
//   - OpenAI-compatible APIs (Groq, OpenAI)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Complete runs one chat completion and returns the generated text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// ModelName returns the name of the default model.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	// Model overrides the service's default model when set.
	Model string

	// Messages is the conversation, typically a system message then a user message.
	Messages []ChatMessage

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// TopP is the nucleus sampling threshold. Zero leaves the provider default.
	TopP float64
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
