package driving

import (
	"context"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

// DocsService exposes the documentation relevance index.
type DocsService interface {
	// EnsureReady loads or builds the index. Safe to call concurrently.
	EnsureReady(ctx context.Context) error

	// Refresh re-fetches and re-ingests the corpus regardless of age.
	Refresh(ctx context.Context) error

	// IsGroundingQuestion reports whether a question should be grounded in docs.
	IsGroundingQuestion(question string) bool

	// TopMatches returns at most limit chunks scoring above zero, best first.
	TopMatches(question string, limit int) []domain.ScoredChunk

	// GroundingContext returns the best matching chunks joined as
	// "title:\ncontent" blocks, or a generic product description when nothing
	// matches. The result is never empty.
	GroundingContext(ctx context.Context, question string, limit int) string

	// Status summarises the loaded index.
	Status() domain.DocsStatus
}
