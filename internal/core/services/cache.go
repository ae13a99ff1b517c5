package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driving"
	"github.com/custodia-labs/persona-cli/internal/logger"
	"github.com/custodia-labs/persona-cli/internal/metrics"
)

// DefaultCacheMaxAge is used when no max-age is configured or requested.
const DefaultCacheMaxAge = 24 * time.Hour

// Ensure CacheService implements the interface.
var _ driving.CacheAdmin = (*CacheService)(nil)

var cacheLog = logger.Named("cache")

// CacheService is a TTL cache of post snapshots over a RecordStore.
// Expiry is judged from the record modification time.
type CacheService struct {
	store  driven.RecordStore
	maxAge time.Duration
	now    func() time.Time
}

// NewCacheService creates a cache over store. A non-positive maxAge uses DefaultCacheMaxAge.
func NewCacheService(store driven.RecordStore, maxAge time.Duration) *CacheService {
	if maxAge <= 0 {
		maxAge = DefaultCacheMaxAge
	}
	return &CacheService{
		store:  store,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// SetClock replaces the time source.
func (s *CacheService) SetClock(now func() time.Time) {
	s.now = now
}

// MaxAge returns the default max-age.
func (s *CacheService) MaxAge() time.Duration {
	return s.maxAge
}

// Get returns the entry for query if it is fresh.
// Absent, unparseable, expired and colliding records all yield (nil, nil).
func (s *CacheService) Get(
	ctx context.Context,
	ns domain.Namespace,
	query string,
	maxAge time.Duration,
) (*domain.CacheEntry, error) {
	entry, fresh, err := s.lookup(ctx, ns, query, maxAge)
	if err != nil || !fresh {
		return nil, err
	}
	return entry, nil
}

// GetStale returns the entry for query regardless of age.
// Unparseable and colliding records yield (nil, nil).
func (s *CacheService) GetStale(ctx context.Context, ns domain.Namespace, query string) (*domain.CacheEntry, error) {
	entry, _, err := s.lookup(ctx, ns, query, 0)
	return entry, err
}

func (s *CacheService) lookup(
	ctx context.Context,
	ns domain.Namespace,
	query string,
	maxAge time.Duration,
) (*domain.CacheEntry, bool, error) {
	key, err := domain.NewCacheKey(ns, query)
	if err != nil {
		return nil, false, err
	}
	if maxAge <= 0 {
		maxAge = s.maxAge
	}

	rec, err := s.store.Read(ctx, key.String())
	if errors.Is(err, domain.ErrNotFound) {
		metrics.CacheLookups.WithLabelValues(string(ns), "miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache %s: %w", key, err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(rec.Data, &entry); err != nil {
		cacheLog.Warn("%s: %v: %v", key, domain.ErrCacheCorruption, err)
		metrics.CacheLookups.WithLabelValues(string(ns), "corrupt").Inc()
		return nil, false, nil
	}

	if !sameQuery(ns, entry.Metadata.Query, query) {
		cacheLog.Debug("%s: stored query %q does not match %q", key, entry.Metadata.Query, query)
		metrics.CacheLookups.WithLabelValues(string(ns), "collision").Inc()
		return nil, false, nil
	}

	if s.now().Sub(rec.ModTime) > maxAge {
		metrics.CacheLookups.WithLabelValues(string(ns), "expired").Inc()
		return &entry, false, nil
	}

	metrics.CacheLookups.WithLabelValues(string(ns), "hit").Inc()
	return &entry, true, nil
}

// Put stores posts under the key for query, replacing any existing record.
func (s *CacheService) Put(
	ctx context.Context,
	ns domain.Namespace,
	query string,
	posts []domain.Post,
	metadata domain.CacheMetadata,
) (*domain.CacheEntry, error) {
	key, err := domain.NewCacheKey(ns, query)
	if err != nil {
		return nil, err
	}
	if metadata.Query == "" {
		metadata.Query = query
	}
	if posts == nil {
		posts = []domain.Post{}
	}

	entry := &domain.CacheEntry{
		Key:       key.String(),
		Namespace: ns,
		CachedAt:  s.now().UTC(),
		PostCount: len(posts),
		Metadata:  metadata,
		Posts:     posts,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode cache %s: %w", key, err)
	}
	if err := s.store.Write(ctx, key.String(), data); err != nil {
		return nil, fmt.Errorf("write cache %s: %w", key, err)
	}
	return entry, nil
}

// ListCaches describes every cache record, sorted by key.
func (s *CacheService) ListCaches(ctx context.Context) ([]domain.CacheInfo, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cache: %w", err)
	}

	now := s.now()
	infos := make([]domain.CacheInfo, 0, len(records))
	for _, ri := range records {
		key, ok := domain.ParseCacheKey(ri.Key)
		if !ok {
			continue
		}
		info := domain.CacheInfo{
			Key:       ri.Key,
			Namespace: key.Namespace,
			CachedAt:  ri.ModTime,
			Size:      ri.Size,
			Age:       now.Sub(ri.ModTime),
		}
		info.Expired = info.Age > s.maxAge

		rec, err := s.store.Read(ctx, ri.Key)
		if err != nil {
			info.Error = err.Error()
			infos = append(infos, info)
			continue
		}
		var entry domain.CacheEntry
		if err := json.Unmarshal(rec.Data, &entry); err != nil {
			info.Error = fmt.Sprintf("%v: %v", domain.ErrCacheCorruption, err)
			infos = append(infos, info)
			continue
		}
		info.PostCount = entry.PostCount
		info.Metadata = entry.Metadata
		if !entry.CachedAt.IsZero() {
			info.CachedAt = entry.CachedAt
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Evict removes one record. Returns false if it did not exist.
func (s *CacheService) Evict(ctx context.Context, storageKey string) (bool, error) {
	if _, ok := domain.ParseCacheKey(storageKey); !ok {
		return false, fmt.Errorf("%w: not a cache key: %q", domain.ErrInvalidInput, storageKey)
	}
	err := s.store.Delete(ctx, storageKey)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("evict %s: %w", storageKey, err)
	}
	metrics.CacheEvictions.WithLabelValues("manual").Inc()
	return true, nil
}

// EvictAll removes every cache record.
func (s *CacheService) EvictAll(ctx context.Context) (int, error) {
	return s.deleteWhere(ctx, "manual", func(driven.RecordInfo) bool { return true })
}

// SweepExpired removes records whose age exceeds maxAge.
func (s *CacheService) SweepExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = s.maxAge
	}
	now := s.now()
	return s.deleteWhere(ctx, "expired", func(ri driven.RecordInfo) bool {
		return now.Sub(ri.ModTime) > maxAge
	})
}

func (s *CacheService) deleteWhere(ctx context.Context, reason string, match func(driven.RecordInfo) bool) (int, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cache: %w", err)
	}

	removed := 0
	for _, ri := range records {
		if _, ok := domain.ParseCacheKey(ri.Key); !ok || !match(ri) {
			continue
		}
		err := s.store.Delete(ctx, ri.Key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("delete %s: %w", ri.Key, err)
		}
		removed++
	}
	if removed > 0 {
		metrics.CacheEvictions.WithLabelValues(reason).Add(float64(removed))
		cacheLog.Info("removed %d %s record(s)", removed, reason)
	}
	return removed, nil
}

// sameQuery reports whether a stored original query matches the requested
// one. Records written without a query are accepted.
func sameQuery(ns domain.Namespace, stored, requested string) bool {
	if stored == "" {
		return true
	}
	return canonicalQuery(ns, stored) == canonicalQuery(ns, requested)
}

func canonicalQuery(ns domain.Namespace, q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	switch ns {
	case domain.NamespaceUser:
		q = strings.TrimPrefix(q, "@")
	case domain.NamespaceHashtag:
		q = strings.TrimPrefix(q, "#")
	case domain.NamespaceSearch:
		q = strings.Join(strings.Fields(q), " ")
	}
	return q
}
