package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

const defaultDocsLimit = 3

var (
	errPostsUnavailable = errors.New("post service not configured")
	errDocsUnavailable  = errors.New("docs service not configured")
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to ask the persona"`
	As       string `json:"as,omitempty" jsonschema:"handle to answer as (default: the configured persona)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer         string `json:"answer"`
	Path           string `json:"path"`
	GroundedInDocs bool   `json:"grounded_in_docs"`
}

// GetPostsInput is the input schema for the get_posts tool.
type GetPostsInput struct {
	Kind    string `json:"kind" jsonschema:"one of user, search or hashtag"`
	Value   string `json:"value" jsonschema:"the handle, search query or hashtag"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of posts to request"`
	Refresh bool   `json:"refresh,omitempty" jsonschema:"bypass the cache"`
}

// GetPostsOutput is the output schema for the get_posts tool.
type GetPostsOutput struct {
	Posts    []PostOutput    `json:"posts"`
	Count    int             `json:"count"`
	Source   string          `json:"source"`
	CachedAt string          `json:"cached_at,omitempty"`
	Profile  *domain.Profile `json:"profile,omitempty"`
}

// PostOutput represents a single post.
type PostOutput struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at,omitempty"`
	Text      string `json:"text"`
	Likes     uint64 `json:"likes"`
	Reposts   uint64 `json:"reposts"`
}

// SearchDocsInput is the input schema for the search_docs tool.
type SearchDocsInput struct {
	Question string `json:"question" jsonschema:"the question to match against the documentation"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of sections (default 3)"`
}

// SearchDocsOutput is the output schema for the search_docs tool.
type SearchDocsOutput struct {
	Sections []DocSectionOutput `json:"sections"`
	Count    int                `json:"count"`
}

// DocSectionOutput represents one matching documentation section.
type DocSectionOutput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Score   int    `json:"score"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask the persona a question and get an answer in their voice",
	}, s.handleAsk)

	if s.ports.Posts != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "get_posts",
			Description: "Fetch recent posts for a user, search query or hashtag",
		}, s.handleGetPosts)
	}

	if s.ports.Docs != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "search_docs",
			Description: "Find the product documentation sections that best match a question",
		}, s.handleSearchDocs)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Answers == nil {
		return nil, AskOutput{}, ErrMissingAnswerService
	}
	answer, err := s.ports.Answers.Answer(ctx, input.Question, input.As)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:         answer.Text,
		Path:           string(answer.Path),
		GroundedInDocs: answer.GroundedInDocs,
	}, nil
}

// handleGetPosts handles the get_posts tool invocation.
func (s *Server) handleGetPosts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetPostsInput,
) (*mcp.CallToolResult, GetPostsOutput, error) {
	if s.ports.Posts == nil {
		return nil, GetPostsOutput{}, errPostsUnavailable
	}

	kind := domain.Namespace(input.Kind)
	if kind == "" {
		kind = domain.NamespaceUser
	}

	result, err := s.ports.Posts.GetPosts(ctx, domain.PostQuery{
		Namespace:    kind,
		Value:        input.Value,
		Limit:        input.Limit,
		ForceRefresh: input.Refresh,
	})
	if err != nil {
		return nil, GetPostsOutput{}, err
	}

	output := GetPostsOutput{
		Posts:   make([]PostOutput, len(result.Posts)),
		Count:   len(result.Posts),
		Source:  string(result.Source),
		Profile: result.Profile,
	}
	if !result.CachedAt.IsZero() {
		output.CachedAt = result.CachedAt.Format(time.RFC3339)
	}

	for i := range result.Posts {
		p := &result.Posts[i]
		output.Posts[i] = PostOutput{
			ID:      p.ID,
			Text:    p.Text,
			Likes:   p.LikeCount,
			Reposts: p.RepostCount,
		}
		if !p.CreatedAt.IsZero() {
			output.Posts[i].CreatedAt = p.CreatedAt.Format(time.RFC3339)
		}
	}

	return nil, output, nil
}

// handleSearchDocs handles the search_docs tool invocation.
func (s *Server) handleSearchDocs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchDocsInput,
) (*mcp.CallToolResult, SearchDocsOutput, error) {
	if s.ports.Docs == nil {
		return nil, SearchDocsOutput{}, errDocsUnavailable
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultDocsLimit
	}

	if err := s.ports.Docs.EnsureReady(ctx); err != nil {
		return nil, SearchDocsOutput{}, err
	}

	matches := s.ports.Docs.TopMatches(input.Question, limit)
	output := SearchDocsOutput{
		Sections: make([]DocSectionOutput, len(matches)),
		Count:    len(matches),
	}
	for i := range matches {
		output.Sections[i] = DocSectionOutput{
			Title:   matches[i].Title,
			Content: matches[i].Content,
			Score:   matches[i].Score,
		}
	}

	return nil, output, nil
}
