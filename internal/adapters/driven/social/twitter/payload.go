package twitter

import (
	"strings"
	"time"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

// Wire shapes for the v2 API. Every optional field is a pointer or has a
// usable zero value so absent data normalises to zero.

type apiProblem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

type userResponse struct {
	Data   *apiUser     `json:"data"`
	Errors []apiProblem `json:"errors"`
}

type apiUser struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Username        string       `json:"username"`
	Description     string       `json:"description"`
	ProfileImageURL string       `json:"profile_image_url"`
	PublicMetrics   *userMetrics `json:"public_metrics"`
}

type userMetrics struct {
	FollowersCount uint64 `json:"followers_count"`
	FollowingCount uint64 `json:"following_count"`
	TweetCount     uint64 `json:"tweet_count"`
}

type tweetsResponse struct {
	Data   []apiTweet   `json:"data"`
	Errors []apiProblem `json:"errors"`
	Meta   struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type apiTweet struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	AuthorID         string            `json:"author_id"`
	CreatedAt        string            `json:"created_at"`
	InReplyToUserID  string            `json:"in_reply_to_user_id"`
	PublicMetrics    *tweetMetrics     `json:"public_metrics"`
	ReferencedTweets []referencedTweet `json:"referenced_tweets"`
}

type tweetMetrics struct {
	RetweetCount uint64 `json:"retweet_count"`
	ReplyCount   uint64 `json:"reply_count"`
	LikeCount    uint64 `json:"like_count"`
	QuoteCount   uint64 `json:"quote_count"`
}

type referencedTweet struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (t apiTweet) isRepost() bool {
	for _, ref := range t.ReferencedTweets {
		if ref.Type == "retweeted" {
			return true
		}
	}
	return false
}

func (t apiTweet) isReply() bool {
	return t.InReplyToUserID != ""
}

func (t apiTweet) toPost() domain.Post {
	post := domain.Post{
		ID:       t.ID,
		Text:     t.Text,
		AuthorID: t.AuthorID,
	}
	if t.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, t.CreatedAt); err == nil {
			post.CreatedAt = ts
		}
	}
	if t.PublicMetrics != nil {
		post.LikeCount = t.PublicMetrics.LikeCount
		post.RepostCount = t.PublicMetrics.RetweetCount
	}
	return post
}

// normalizeTweets converts wire tweets to posts, dropping replies and
// reposts unless requested. Input order is preserved.
func normalizeTweets(tweets []apiTweet, includeReplies, includeReposts bool) []domain.Post {
	posts := make([]domain.Post, 0, len(tweets))
	for _, t := range tweets {
		if !includeReposts && t.isRepost() {
			continue
		}
		if !includeReplies && t.isReply() {
			continue
		}
		posts = append(posts, t.toPost())
	}
	return posts
}

func (u *apiUser) toProfile() *domain.Profile {
	p := &domain.Profile{
		ID:              u.ID,
		Handle:          u.Username,
		DisplayName:     u.Name,
		Bio:             u.Description,
		ProfileImageURL: u.ProfileImageURL,
	}
	if u.PublicMetrics != nil {
		p.FollowerCount = u.PublicMetrics.FollowersCount
		p.FollowingCount = u.PublicMetrics.FollowingCount
		p.PostCount = u.PublicMetrics.TweetCount
	}
	return p
}

func problemMessage(problems []apiProblem) string {
	msgs := make([]string, 0, len(problems))
	for _, p := range problems {
		switch {
		case p.Detail != "":
			msgs = append(msgs, p.Detail)
		case p.Title != "":
			msgs = append(msgs, p.Title)
		}
	}
	return strings.Join(msgs, "; ")
}
