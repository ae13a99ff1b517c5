package domain

import (
	"fmt"
	"strings"
	"time"
)

// Namespace partitions the cache key space by query kind.
type Namespace string

// Cache namespaces.
const (
	NamespaceUser    Namespace = "user"
	NamespaceSearch  Namespace = "search"
	NamespaceHashtag Namespace = "hashtag"
)

// MaxKeyLength caps the normalised value of every key so it stays usable
// as a file name.
const MaxKeyLength = 50

// IsValid returns true if the namespace is recognised.
func (n Namespace) IsValid() bool {
	switch n {
	case NamespaceUser, NamespaceSearch, NamespaceHashtag:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (n Namespace) String() string {
	return string(n)
}

// AllNamespaces returns every cache namespace.
func AllNamespaces() []Namespace {
	return []Namespace{NamespaceUser, NamespaceSearch, NamespaceHashtag}
}

// CacheKey identifies one cache record.
type CacheKey struct {
	Namespace  Namespace
	Normalized string
}

// String returns the flat storage key, e.g. "user_jack".
func (k CacheKey) String() string {
	return string(k.Namespace) + "_" + k.Normalized
}

// NewCacheKey normalises a query input into a key.
// Handles and hashtags are lower-cased with their sigil stripped. Free-text
// queries are lower-cased and every run of non-alphanumerics collapses to a
// single underscore. Values are capped at MaxKeyLength.
func NewCacheKey(ns Namespace, input string) (CacheKey, error) {
	if !ns.IsValid() {
		return CacheKey{}, fmt.Errorf("%w: unknown namespace %q", ErrInvalidInput, ns)
	}

	value := strings.ToLower(strings.TrimSpace(input))
	switch ns {
	case NamespaceUser:
		value = strings.TrimPrefix(value, "@")
		value = replaceOutside(value, false)
	case NamespaceHashtag:
		value = strings.TrimPrefix(value, "#")
		value = replaceOutside(value, false)
	case NamespaceSearch:
		value = strings.Trim(replaceOutside(value, true), "_")
	}
	if len(value) > MaxKeyLength {
		value = value[:MaxKeyLength]
	}

	if value == "" || strings.Trim(value, "_") == "" {
		return CacheKey{}, fmt.Errorf("%w: empty %s query", ErrInvalidInput, ns)
	}
	return CacheKey{Namespace: ns, Normalized: value}, nil
}

// ParseCacheKey splits a flat storage key back into namespace and value.
func ParseCacheKey(storageKey string) (CacheKey, bool) {
	for _, ns := range AllNamespaces() {
		prefix := string(ns) + "_"
		if strings.HasPrefix(storageKey, prefix) && len(storageKey) > len(prefix) {
			return CacheKey{Namespace: ns, Normalized: storageKey[len(prefix):]}, true
		}
	}
	return CacheKey{}, false
}

// replaceOutside maps every byte outside [a-z0-9_] to '_'. With collapse set,
// underscores are treated as separators and runs become one underscore.
func replaceOutside(s string, collapse bool) string {
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		keep := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || (!collapse && c == '_')
		if keep {
			b.WriteByte(c)
			lastUnderscore = false
			continue
		}
		if collapse && lastUnderscore {
			continue
		}
		b.WriteByte('_')
		lastUnderscore = true
	}
	return b.String()
}

// CacheMetadata carries optional context stored alongside cached posts.
type CacheMetadata struct {
	// Query is the original, un-normalised query input. Reads compare it
	// to detect two distinct queries that normalise to the same key.
	Query string `json:"query,omitempty"`

	// Handle is set for user timelines.
	Handle string `json:"username,omitempty"`

	// Hashtag is set for hashtag searches.
	Hashtag string `json:"hashtag,omitempty"`

	// Profile is the author profile, when it could be fetched.
	Profile *Profile `json:"userData,omitempty"`

	// Extra holds free-form annotations.
	Extra map[string]string `json:"extra,omitempty"`
}

// CacheEntry is a cached snapshot of posts for one key.
// One entry exists per key; the last writer wins.
type CacheEntry struct {
	Key       string        `json:"key"`
	Namespace Namespace     `json:"namespace"`
	CachedAt  time.Time     `json:"cachedAt"`
	PostCount int           `json:"count"`
	Metadata  CacheMetadata `json:"metadata"`
	Posts     []Post        `json:"tweets"`
}

// Age returns how long ago the entry was cached relative to now.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}

// CacheInfo describes a cache record for listing.
// Unreadable records are reported with Error set rather than skipped.
type CacheInfo struct {
	Key       string
	Namespace Namespace
	CachedAt  time.Time
	PostCount int
	Metadata  CacheMetadata
	Size      int64
	Age       time.Duration
	Expired   bool
	Error     string
}

// IsCorrupt returns true if the record could not be read or parsed.
func (i CacheInfo) IsCorrupt() bool {
	return i.Error != ""
}
