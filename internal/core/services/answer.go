package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driving"
	"github.com/custodia-labs/persona-cli/internal/logger"
	"github.com/custodia-labs/persona-cli/internal/metrics"
	"github.com/custodia-labs/persona-cli/internal/telemetry"
)

const (
	// maxPromptPosts bounds the posts rendered into one prompt.
	maxPromptPosts = 500

	// minGroundingLength is the shortest docs context used as-is.
	minGroundingLength = 50

	// maxFallbackPosts bounds the posts quoted by the keyword fallback.
	maxFallbackPosts = 3

	postDateLayout = "1/2/2006"

	noHistoryAnswer = "I don't seem to have posted about that topic before. Feel free to ask me something else!"
)

// Default static grounding texts used when the docs index cannot help.
const (
	DefaultDocsUnavailableText = "Groq provides a fast inference API compatible with OpenAI format. " +
		"The API is accessible via endpoints like https://api.groq.com/openai/v1/chat/completions " +
		"and offers various models with industry-leading speed."

	DefaultDocsTooShortText = "Groq provides lightning-fast inference for AI applications through its API, " +
		"supporting various models like Llama 3.3 70B, Mixtral, and others. The API is OpenAI-compatible " +
		"and accessible via endpoints like https://api.groq.com/openai/v1/chat/completions " +
		"with industry-leading speed and performance."
)

// Ensure AnswerService implements the interfaces.
var (
	_ driving.AnswerService   = (*AnswerService)(nil)
	_ driven.PromptStoreAware = (*AnswerService)(nil)
)

var answerLog = logger.Named("answer")

// AnswerConfig holds persona and generation settings.
type AnswerConfig struct {
	Handle      string
	Description string
	Product     string

	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64

	// TopMatches is the number of doc chunks used for grounding.
	TopMatches int

	// DocsUnavailableText is used when the docs index cannot be loaded.
	DocsUnavailableText string

	// DocsTooShortText replaces retrieved docs context shorter than 50 characters.
	DocsTooShortText string
}

// AnswerConfigFromSettings maps app settings to an answer config.
func AnswerConfigFromSettings(s *domain.AppSettings) AnswerConfig {
	return AnswerConfig{
		Handle:      s.Persona.Handle,
		Description: s.Persona.Description,
		Product:     s.Persona.Product,
		Model:       s.LLM.Model,
		Temperature: s.LLM.Temperature,
		MaxTokens:   s.LLM.MaxTokens,
		TopP:        s.LLM.TopP,
	}
}

func (c AnswerConfig) withDefaults() AnswerConfig {
	if c.Product == "" {
		c.Product = DefaultProduct
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 300
	}
	if c.TopMatches <= 0 {
		c.TopMatches = DefaultTopMatches
	}
	if c.DocsUnavailableText == "" {
		c.DocsUnavailableText = DefaultDocsUnavailableText
	}
	if c.DocsTooShortText == "" {
		c.DocsTooShortText = DefaultDocsTooShortText
	}
	return c
}

// AnswerService answers questions speaking as a persona.
//
// Per request: load posts, try a deterministic direct answer, optionally
// retrieve documentation grounding, build the prompt, generate, and fall
// back to keyword matching over the posts when generation fails.
type AnswerService struct {
	posts driving.PostService
	docs  driving.DocsService
	llm   driven.LLMService
	cfg   AnswerConfig
	newID func() string

	mu      sync.RWMutex
	prompts driven.PromptStore
}

// NewAnswerService creates an answer service. docs and llm may be nil:
// without docs no grounding is attempted, without llm every non-direct
// question takes the fallback path.
func NewAnswerService(
	posts driving.PostService,
	docs driving.DocsService,
	llm driven.LLMService,
	cfg AnswerConfig,
) *AnswerService {
	return &AnswerService{
		posts: posts,
		docs:  docs,
		llm:   llm,
		cfg:   cfg.withDefaults(),
		newID: uuid.NewString,
	}
}

// SetPromptStore sets the store the persona prompts are loaded from.
func (s *AnswerService) SetPromptStore(store driven.PromptStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = store
}

// Answer replies to question as identity, or the configured persona when
// identity is empty.
func (s *AnswerService) Answer(ctx context.Context, question, identity string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	handle := strings.TrimPrefix(strings.TrimSpace(identity), "@")
	if handle == "" {
		handle = s.cfg.Handle
	}
	if handle == "" {
		return nil, fmt.Errorf("%w: no persona handle configured", domain.ErrInvalidInput)
	}

	reqID := s.newID()
	ctx, span := telemetry.Tracer().Start(ctx, "persona.Answer", trace.WithAttributes(
		attribute.String("persona.handle", handle),
		attribute.String("persona.request_id", reqID),
	))
	defer span.End()

	res, err := s.posts.GetPosts(ctx, personaQuery(handle))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load posts")
		return nil, err
	}

	posts := make([]domain.Post, len(res.Posts))
	copy(posts, res.Posts)
	domain.SortNewestFirst(posts)
	if len(posts) == 0 {
		span.SetStatus(codes.Error, "no posts")
		return nil, fmt.Errorf("no posts for @%s: %w", handle, domain.ErrNotFound)
	}

	answer := &domain.Answer{RequestID: reqID}
	if text, ok := directAnswer(question, posts); ok {
		answer.Text = text
		answer.Path = domain.AnswerPathDirect
		return s.finish(span, answer), nil
	}

	docsContext := s.groundingContext(ctx, question)
	answer.GroundedInDocs = docsContext != ""

	text, err := s.generate(ctx, handle, question, posts, res.Profile, docsContext)
	if err != nil {
		answerLog.Warn("[%s] %v, using fallback", reqID, err)
		span.RecordError(err)
		answer.Text = fallbackAnswer(question, posts)
		answer.Path = domain.AnswerPathFallback
		return s.finish(span, answer), nil
	}

	answer.Text = text
	answer.Path = domain.AnswerPathGenerated
	return s.finish(span, answer), nil
}

func (s *AnswerService) finish(span trace.Span, a *domain.Answer) *domain.Answer {
	span.SetAttributes(
		attribute.String("persona.answer_path", string(a.Path)),
		attribute.Bool("persona.grounded", a.GroundedInDocs),
	)
	metrics.Answers.WithLabelValues(string(a.Path)).Inc()
	answerLog.Debug("[%s] answered via %s (grounded=%t)", a.RequestID, a.Path, a.GroundedInDocs)
	return a
}

// groundingContext returns documentation text for technical questions, or
// "" when the question needs none. Index failures degrade to static text.
func (s *AnswerService) groundingContext(ctx context.Context, question string) string {
	if s.docs == nil || !s.docs.IsGroundingQuestion(question) {
		return ""
	}
	if err := s.docs.EnsureReady(ctx); err != nil {
		answerLog.Warn("docs index: %v", err)
		return s.cfg.DocsUnavailableText
	}
	text := s.docs.GroundingContext(ctx, question, s.cfg.TopMatches)
	if len(text) < minGroundingLength {
		return s.cfg.DocsTooShortText
	}
	return text
}

func (s *AnswerService) generate(
	ctx context.Context,
	handle, question string,
	posts []domain.Post,
	profile *domain.Profile,
	docsContext string,
) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailure, domain.ErrLLMUnavailable)
	}

	data := s.promptData(handle, question, posts, profile, docsContext)
	system, err := s.render(driven.PromptPersonaSystem, data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailure, err)
	}
	user, err := s.render(driven.PromptPersonaAnswer, data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailure, err)
	}

	ctx, span := telemetry.Tracer().Start(ctx, "persona.Generate")
	defer span.End()

	text, err := s.llm.Complete(ctx, driven.CompletionRequest{
		Model: s.cfg.Model,
		Messages: []driven.ChatMessage{
			{Role: driven.RoleSystem, Content: system},
			{Role: driven.RoleUser, Content: user},
		},
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
		TopP:        s.cfg.TopP,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailure, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrGenerationFailure)
	}
	return text, nil
}

func (s *AnswerService) promptData(
	handle, question string,
	posts []domain.Post,
	profile *domain.Profile,
	docsContext string,
) driven.PromptData {
	n := len(posts)
	if n > maxPromptPosts {
		n = maxPromptPosts
	}
	rendered := make([]driven.PromptPost, n)
	for i := 0; i < n; i++ {
		rendered[i] = driven.PromptPost{
			Number: i + 1,
			Date:   formatPostDate(posts[i]),
			Text:   posts[i].Text,
		}
	}

	var latest *driven.PromptPost
	if n > 0 {
		latest = &rendered[0]
	}

	return driven.PromptData{
		Handle:       handle,
		Description:  s.cfg.Description,
		Product:      s.cfg.Product,
		ProductTitle: productTitle(s.cfg.Product),
		ProductUpper: strings.ToUpper(s.cfg.Product),
		Profile:      profile,
		DocsContext:  docsContext,
		Posts:        rendered,
		Latest:       latest,
		Question:     question,
	}
}

// render executes the named prompt template, falling back to the built-in
// template when a custom one fails to load or execute.
func (s *AnswerService) render(name string, data driven.PromptData) (string, error) {
	s.mu.RLock()
	store := s.prompts
	s.mu.RUnlock()

	if store != nil {
		if text, err := store.Load(name); err == nil && text != "" {
			out, rerr := executePrompt(name, text, data)
			if rerr == nil {
				return out, nil
			}
			answerLog.Warn("custom prompt %s: %v, using default", name, rerr)
		}
	}

	def, ok := driven.DefaultPrompts[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return executePrompt(name, def, data)
}

func executePrompt(name, text string, data driven.PromptData) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse prompt %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// directAnswer handles questions that are answered deterministically from
// posts sorted newest first.
func directAnswer(question string, posts []domain.Post) (string, bool) {
	if len(posts) == 0 {
		return "", false
	}
	q := strings.ToLower(question)

	if containsAny(q, "latest tweet", "last tweet", "recent tweet", "latest post", "last post", "recent post") {
		p := posts[0]
		return fmt.Sprintf("My latest post was: \"%s\" posted on %s.", p.Text, formatPostDate(p)), true
	}

	if containsAny(q, "most liked", "popular tweet", "popular post") {
		best := posts[0]
		for _, p := range posts[1:] {
			if p.LikeCount > best.LikeCount {
				best = p
			}
		}
		return fmt.Sprintf("My most liked post was: \"%s\" with %d likes.", best.Text, best.LikeCount), true
	}

	return "", false
}

// fallbackAnswer quotes up to three posts sharing a word longer than three
// characters with the question. It never fails.
func fallbackAnswer(question string, posts []domain.Post) string {
	words := fallbackWords(question)
	if len(words) == 0 {
		return noHistoryAnswer
	}

	var matched []string
	for _, p := range posts {
		text := strings.ToLower(p.Text)
		for _, w := range words {
			if strings.Contains(text, w) {
				matched = append(matched, p.Text)
				break
			}
		}
		if len(matched) == maxFallbackPosts {
			break
		}
	}
	if len(matched) == 0 {
		return noHistoryAnswer
	}
	return "Based on my past posts, I can tell you that " + strings.Join(matched, "\n")
}

func fallbackWords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 3 {
			words = append(words, f)
		}
	}
	return words
}

func formatPostDate(p domain.Post) string {
	if p.CreatedAt.IsZero() {
		return "an unknown date"
	}
	return p.CreatedAt.Format(postDateLayout)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
