package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

// CacheAdmin inspects and clears the post cache.
type CacheAdmin interface {
	// ListCaches describes every cache record. Unreadable records are
	// included with their Error field set.
	ListCaches(ctx context.Context) ([]domain.CacheInfo, error)

	// Evict removes one record by storage key. Returns false if it did not exist.
	Evict(ctx context.Context, storageKey string) (bool, error)

	// EvictAll removes every cache record and returns how many were removed.
	EvictAll(ctx context.Context) (int, error)

	// SweepExpired removes records older than maxAge. Zero uses the default.
	SweepExpired(ctx context.Context, maxAge time.Duration) (int, error)
}
