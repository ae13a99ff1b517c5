package domain

import (
	"sort"
	"time"
)

// Post is a single social-media message with engagement counters.
// Posts are immutable once normalised; identity is the ID.
type Post struct {
	// ID is the upstream identifier.
	ID string `json:"id"`

	// CreatedAt is when the post was published. Zero if unknown.
	CreatedAt time.Time `json:"created_at"`

	// Text is the body of the post.
	Text string `json:"text"`

	// LikeCount is the number of likes. Defaults to zero when absent upstream.
	LikeCount uint64 `json:"likes"`

	// RepostCount is the number of reposts. Defaults to zero when absent upstream.
	RepostCount uint64 `json:"retweets"`

	// AuthorID identifies the author for search and hashtag results.
	AuthorID string `json:"author_id,omitempty"`
}

// Profile summarises the account behind a timeline.
// It is optional everywhere: its absence never blocks post retrieval.
type Profile struct {
	ID              string `json:"id"`
	Handle          string `json:"username"`
	DisplayName     string `json:"name,omitempty"`
	Bio             string `json:"description,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	FollowerCount   uint64 `json:"followers_count"`
	FollowingCount  uint64 `json:"following_count"`
	PostCount       uint64 `json:"tweet_count"`
}

// SortNewestFirst orders posts by CreatedAt descending in place.
// Posts sharing a timestamp keep their relative order.
func SortNewestFirst(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

// PostSource reports where a PostsResult came from.
type PostSource string

// Post sources.
const (
	PostSourceCache PostSource = "cache"
	PostSourceAPI   PostSource = "api"
)

// PostQuery describes a request for posts.
type PostQuery struct {
	// Namespace selects the kind of query.
	Namespace Namespace

	// Value is the handle, free-text query, or hashtag.
	Value string

	// Limit caps the number of posts requested upstream. Zero uses the default.
	Limit int

	// IncludeReplies keeps replies in user timelines.
	IncludeReplies bool

	// IncludeReposts keeps reposts in user timelines.
	IncludeReposts bool

	// ForceRefresh bypasses the cache.
	ForceRefresh bool
}

// PostsResult is the outcome of a post retrieval.
type PostsResult struct {
	Posts    []Post
	Profile  *Profile
	Source   PostSource
	CachedAt time.Time
}
