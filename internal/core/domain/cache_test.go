package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheKey(t *testing.T) {
	tests := []struct {
		name  string
		ns    Namespace
		input string
		want  string
	}{
		{"user lower-cased", NamespaceUser, "OzenHati", "user_ozenhati"},
		{"user sigil stripped", NamespaceUser, "@OzenHati", "user_ozenhati"},
		{"user keeps underscore", NamespaceUser, "jack_dorsey", "user_jack_dorsey"},
		{"hashtag sigil stripped", NamespaceHashtag, "#GoLang", "hashtag_golang"},
		{"search collapses runs", NamespaceSearch, "Groq  API -- latency!", "search_groq_api_latency"},
		{"search trims edges", NamespaceSearch, "  ?what is groq?  ", "search_what_is_groq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := NewCacheKey(tt.ns, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, key.String())
		})
	}
}

func TestNewCacheKey_EqualQueriesNormaliseIdentically(t *testing.T) {
	a, err := NewCacheKey(NamespaceSearch, "Groq API")
	require.NoError(t, err)
	b, err := NewCacheKey(NamespaceSearch, "groq   api")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := NewCacheKey(NamespaceUser, "@Jack")
	require.NoError(t, err)
	d, err := NewCacheKey(NamespaceUser, "jack")
	require.NoError(t, err)
	assert.Equal(t, c, d)
}

func TestNewCacheKey_SearchLengthCapped(t *testing.T) {
	key, err := NewCacheKey(NamespaceSearch, strings.Repeat("abc ", 40))
	require.NoError(t, err)
	assert.Len(t, key.Normalized, MaxKeyLength)
}

func TestNewCacheKey_HashtagAndHandleLengthCapped(t *testing.T) {
	tag, err := NewCacheKey(NamespaceHashtag, "#"+strings.Repeat("Go", 300))
	require.NoError(t, err)
	assert.Len(t, tag.Normalized, MaxKeyLength)
	assert.Equal(t, strings.Repeat("go", 25), tag.Normalized)

	user, err := NewCacheKey(NamespaceUser, "@"+strings.Repeat("x", 120))
	require.NoError(t, err)
	assert.Len(t, user.Normalized, MaxKeyLength)

	short, err := NewCacheKey(NamespaceHashtag, "#golang")
	require.NoError(t, err)
	assert.Equal(t, "golang", short.Normalized)
}

func TestNewCacheKey_Invalid(t *testing.T) {
	_, err := NewCacheKey(Namespace("timeline"), "x")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewCacheKey(NamespaceUser, "  @ ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewCacheKey(NamespaceSearch, "!!!")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseCacheKey(t *testing.T) {
	key, ok := ParseCacheKey("hashtag_golang")
	require.True(t, ok)
	assert.Equal(t, NamespaceHashtag, key.Namespace)
	assert.Equal(t, "golang", key.Normalized)

	_, ok = ParseCacheKey("docs_index")
	assert.False(t, ok)

	_, ok = ParseCacheKey("user_")
	assert.False(t, ok)
}

func TestCacheEntry_Age(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &CacheEntry{CachedAt: now.Add(-90 * time.Minute)}
	assert.Equal(t, 90*time.Minute, entry.Age(now))
}

func TestCacheInfo_IsCorrupt(t *testing.T) {
	assert.False(t, CacheInfo{Key: "user_a"}.IsCorrupt())
	assert.True(t, CacheInfo{Key: "user_a", Error: "unexpected EOF"}.IsCorrupt())
}
