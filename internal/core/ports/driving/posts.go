package driving

import (
	"context"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

// PostService retrieves posts, serving from cache when possible.
type PostService interface {
	// GetPosts returns posts for the query. A cached snapshot younger than
	// the cache max-age is served unless ForceRefresh is set; otherwise the
	// upstream API is called and the result cached.
	GetPosts(ctx context.Context, query domain.PostQuery) (*domain.PostsResult, error)

	// Warmup populates the cache for a handle if it has no fresh entry.
	Warmup(ctx context.Context, handle string) error
}
