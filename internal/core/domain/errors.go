package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// A query that resolves to zero posts also reports ErrNotFound.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable indicates every retry against the social API
	// failed and no usable cached copy exists.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrRateLimited indicates the upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrGenerationFailure indicates the generation backend errored or timed out.
	// The answer pipeline recovers from it with the keyword fallback.
	ErrGenerationFailure = errors.New("generation failed")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrIndexUnavailable indicates the documentation index could not be
	// loaded or fetched and no snapshot is in memory.
	ErrIndexUnavailable = errors.New("documentation index unavailable")

	// ErrCacheCorruption indicates a persisted record could not be parsed.
	// Readers treat it as a cache miss.
	ErrCacheCorruption = errors.New("cache record corrupt")
)
