package driven

import (
	"context"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

// SocialClient issues requests to the upstream social-data API.
// Implementations retry transient failures and normalise payloads into
// domain posts; they hold no state between calls.
type SocialClient interface {
	// FetchUserID resolves a handle to the upstream user ID.
	// Returns domain.ErrNotFound if the account does not exist.
	FetchUserID(ctx context.Context, handle string) (string, error)

	// FetchProfile returns the profile summary for a handle.
	FetchProfile(ctx context.Context, handle string) (*domain.Profile, error)

	// FetchUserPosts returns a user's timeline. Replies and reposts are
	// dropped unless requested.
	FetchUserPosts(ctx context.Context, userID string, limit int, includeReplies, includeReposts bool) ([]domain.Post, error)

	// FetchByHashtag returns recent posts carrying the hashtag.
	FetchByHashtag(ctx context.Context, tag string, limit int) ([]domain.Post, error)

	// Search returns recent posts matching a free-text query.
	Search(ctx context.Context, query string, limit int) ([]domain.Post, error)
}
