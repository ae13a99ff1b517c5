package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driving"
	"github.com/custodia-labs/persona-cli/internal/logger"
)

// DefaultPostLimit is the number of posts requested when a query sets none.
const DefaultPostLimit = 100

// Ensure PostService implements the interface.
var _ driving.PostService = (*PostService)(nil)

var postsLog = logger.Named("posts")

// PostService serves posts from the cache, fetching upstream on a miss.
// Concurrent misses for the same query share one upstream fetch.
type PostService struct {
	client driven.SocialClient
	cache  *CacheService
	group  singleflight.Group
}

// NewPostService creates a post service.
func NewPostService(client driven.SocialClient, cache *CacheService) *PostService {
	return &PostService{
		client: client,
		cache:  cache,
	}
}

// GetPosts returns posts for the query.
// When the upstream fetch fails and an expired record exists, the expired
// record is served rather than failing.
func (s *PostService) GetPosts(ctx context.Context, q domain.PostQuery) (*domain.PostsResult, error) {
	key, err := domain.NewCacheKey(q.Namespace, q.Value)
	if err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPostLimit
	}

	if !q.ForceRefresh {
		entry, err := s.cache.Get(ctx, q.Namespace, q.Value, 0)
		if err != nil {
			postsLog.Warn("cache read %s: %v", key, err)
		} else if entry != nil {
			postsLog.Debug("serving %s from cache", key)
			return resultFromEntry(entry, domain.PostSourceCache), nil
		}
	}

	flightKey := fmt.Sprintf("%s|%d|%t|%t", key, q.Limit, q.IncludeReplies, q.IncludeReposts)
	v, err, shared := s.group.Do(flightKey, func() (any, error) {
		return s.fetch(ctx, q)
	})
	if shared {
		postsLog.Debug("coalesced fetch for %s", key)
	}
	if err == nil {
		return v.(*domain.PostsResult), nil
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		return nil, err
	}

	if stale, serr := s.cache.GetStale(ctx, q.Namespace, q.Value); serr == nil && stale != nil {
		postsLog.Warn("fetch %s failed, serving stale copy: %v", key, err)
		return resultFromEntry(stale, domain.PostSourceCache), nil
	}

	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUpstreamUnavailable) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
}

func (s *PostService) fetch(ctx context.Context, q domain.PostQuery) (*domain.PostsResult, error) {
	var (
		posts    []domain.Post
		profile  *domain.Profile
		metadata = domain.CacheMetadata{Query: q.Value}
		err      error
	)

	switch q.Namespace {
	case domain.NamespaceUser:
		handle := strings.TrimPrefix(strings.TrimSpace(q.Value), "@")
		metadata.Handle = handle

		userID, idErr := s.client.FetchUserID(ctx, handle)
		if idErr != nil {
			return nil, fmt.Errorf("resolve %s: %w", handle, idErr)
		}

		p, perr := s.client.FetchProfile(ctx, handle)
		if perr != nil {
			postsLog.Debug("profile for %s unavailable: %v", handle, perr)
		} else {
			profile = p
			metadata.Profile = p
		}

		posts, err = s.client.FetchUserPosts(ctx, userID, q.Limit, q.IncludeReplies, q.IncludeReposts)
	case domain.NamespaceHashtag:
		tag := strings.TrimPrefix(strings.TrimSpace(q.Value), "#")
		metadata.Hashtag = tag
		posts, err = s.client.FetchByHashtag(ctx, tag, q.Limit)
	case domain.NamespaceSearch:
		posts, err = s.client.Search(ctx, q.Value, q.Limit)
	default:
		return nil, fmt.Errorf("%w: unknown namespace %q", domain.ErrInvalidInput, q.Namespace)
	}
	if err != nil {
		return nil, err
	}

	result := &domain.PostsResult{
		Posts:   posts,
		Profile: profile,
		Source:  domain.PostSourceAPI,
	}

	entry, err := s.cache.Put(ctx, q.Namespace, q.Value, posts, metadata)
	if err != nil {
		postsLog.Warn("cache write for %q: %v", q.Value, err)
		return result, nil
	}
	result.CachedAt = entry.CachedAt
	return result, nil
}

// Warmup fetches the persona timeline when no fresh cache entry exists.
func (s *PostService) Warmup(ctx context.Context, handle string) error {
	entry, err := s.cache.Get(ctx, domain.NamespaceUser, handle, 0)
	if err == nil && entry != nil {
		postsLog.Debug("warmup: %s already cached (%d posts)", handle, entry.PostCount)
		return nil
	}

	result, err := s.GetPosts(ctx, personaQuery(handle))
	if err != nil {
		return fmt.Errorf("warmup %s: %w", handle, err)
	}
	postsLog.Info("warmup: cached %d posts for %s", len(result.Posts), handle)
	return nil
}

// personaQuery is the timeline query used to answer as a persona:
// replies kept, reposts dropped.
func personaQuery(handle string) domain.PostQuery {
	return domain.PostQuery{
		Namespace:      domain.NamespaceUser,
		Value:          handle,
		Limit:          DefaultPostLimit,
		IncludeReplies: true,
		IncludeReposts: false,
	}
}

func resultFromEntry(entry *domain.CacheEntry, source domain.PostSource) *domain.PostsResult {
	return &domain.PostsResult{
		Posts:    entry.Posts,
		Profile:  entry.Metadata.Profile,
		Source:   source,
		CachedAt: entry.CachedAt,
	}
}
