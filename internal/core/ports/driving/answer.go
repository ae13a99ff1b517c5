package driving

import (
	"context"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

// AnswerService answers questions as a persona.
type AnswerService interface {
	// Answer replies to question speaking as identity. An empty identity
	// uses the configured persona handle.
	Answer(ctx context.Context, question, identity string) (*domain.Answer, error)
}
