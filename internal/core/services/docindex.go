package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driving"
	"github.com/custodia-labs/persona-cli/internal/logger"
	"github.com/custodia-labs/persona-cli/internal/metrics"
	"github.com/custodia-labs/persona-cli/internal/telemetry"
)

const (
	// DocsIndexKey is the RecordStore key of the persisted snapshot.
	DocsIndexKey = "docs_index"

	// DefaultDocsMaxAge is how long a snapshot is considered fresh.
	DefaultDocsMaxAge = 7 * 24 * time.Hour

	// DefaultTopMatches is the number of chunks used for grounding.
	DefaultTopMatches = 3

	// DefaultProduct names the documented product.
	DefaultProduct = "groq"

	ensureFlightKey  = "docs-index"
	refreshFlightKey = "docs-index-refresh"

	// failureCooldown spaces out re-fetch attempts while a stale snapshot is served.
	failureCooldown = 5 * time.Minute
)

// Ensure DocIndex implements the interface.
var _ driving.DocsService = (*DocIndex)(nil)

var docsLog = logger.Named("docs")

// keywordCategory tags a chunk when any of its phrases occurs in the text.
type keywordCategory struct {
	name    string
	phrases []string
}

var keywordCategories = []keywordCategory{
	{"models", []string{"model", "llama", "mixtral", "llm", "parameters", "gemma", "whisper", "qwen", "deepseek", "mistral"}},
	{"authentication", []string{"api key", "auth", "authenticate", "bearer", "token", "authorization"}},
	{"endpoints", []string{"endpoint", "chat/completions", "url", "api call", "request", "chat", "completions", "speech", "audio"}},
	{"parameters", []string{"temperature", "max_tokens", "max tokens", "top_p", "frequency_penalty", "presence_penalty", "parameter"}},
	{"rate limits", []string{"rate", "limit", "throttle", "quota", "429", "too many requests", "ratelimit"}},
	{"error", []string{"error", "exception", "issue", "problem", "bug", "fail", "failure", "trouble"}},
	{"pricing", []string{"price", "cost", "billing", "charge", "dollar", "free tier", "pay", "paid"}},
	{"tools", []string{"tool use", "function call", "function calling", "tools", "agent", "tool", "function"}},
	{"speech", []string{"speech", "audio", "transcription", "whisper", "voice", "speak"}},
	{"inference", []string{"inference", "speed", "fast", "latency", "quick", "performance", "throughput"}},
}

var (
	sectionSplit = regexp.MustCompile(`(?m)^##\s+`)
	modelPattern = regexp.MustCompile(`(?i)(llama|mixtral|gemma|whisper|qwen|deepseek|mistral)[-\s]*(3|2|1)?\.?(\d+)?[b-]?`)
	nonWord      = regexp.MustCompile(`\W+`)
)

// groundingIndicators are phrases that mark a question as product-technical.
// "{product}" is replaced with the configured product name.
var groundingIndicators = []string{
	"{product} api", "api key", "{product} model", "endpoint", "{product} documentation",
	"rate limit", "authenticate", "token", "parameters", "model", "llama", "mixtral",
	"whisper", "llm", "{product}", "context window", "inference", "speech to text",
	"text to speech", "tools", "function", "integration", "sdk", "client", "request",
	"response", "json", "latency", "fast", "speed", "quick", "performance", "pricing",
	"cost", "billing", "quota", "limit", "temperature", "top_p", "max tokens", "python",
	"javascript", "node", "curl", "openai", "compatibility", "compatible", "how to",
	"api usage", "implementation",
}

var groundingPatterns = []string{
	`how (do|can) (i|you|we) use`,
	`how (does|do) (the )?{product}`,
	`what (is|are) (the )?{product}`,
	`can (i|you|we) use`,
	`help with (the )?{product}`,
	`explain (the )?{product}`,
	`(the )?{product} (api|model|inference|function)`,
}

// DocIndexConfig configures a DocIndex.
type DocIndexConfig struct {
	// Product is the documented product name used in question detection.
	Product string

	// MaxAge is how long a snapshot stays fresh.
	MaxAge time.Duration
}

// DocIndex is a keyword-scored index over a documentation corpus.
// The snapshot is fetched once, persisted, and shared by all readers.
type DocIndex struct {
	source driven.DocsSource
	store  driven.RecordStore
	cfg    DocIndexConfig
	now    func() time.Time

	indicators []string
	patterns   []*regexp.Regexp

	group singleflight.Group

	mu          sync.RWMutex
	snapshot    *domain.DocIndexSnapshot
	lastFailure time.Time
}

// NewDocIndex creates an index. store may be nil, in which case snapshots
// live only in memory.
func NewDocIndex(source driven.DocsSource, store driven.RecordStore, cfg DocIndexConfig) *DocIndex {
	if cfg.Product == "" {
		cfg.Product = DefaultProduct
	}
	cfg.Product = strings.ToLower(strings.TrimSpace(cfg.Product))
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultDocsMaxAge
	}

	idx := &DocIndex{
		source: source,
		store:  store,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, ind := range groundingIndicators {
		idx.indicators = append(idx.indicators, strings.ReplaceAll(ind, "{product}", cfg.Product))
	}
	quoted := regexp.QuoteMeta(cfg.Product)
	for _, p := range groundingPatterns {
		idx.patterns = append(idx.patterns, regexp.MustCompile(`(?i)`+strings.ReplaceAll(p, "{product}", quoted)))
	}
	return idx
}

// SetClock replaces the time source.
func (d *DocIndex) SetClock(now func() time.Time) {
	d.now = now
}

// Product returns the configured product name.
func (d *DocIndex) Product() string {
	return d.cfg.Product
}

// EnsureReady loads a fresh snapshot from storage or builds one from the
// source. Concurrent callers share one load. When the source fails, any
// snapshot already loaded or persisted keeps being served.
func (d *DocIndex) EnsureReady(ctx context.Context) error {
	d.mu.RLock()
	snap, lastFailure := d.snapshot, d.lastFailure
	d.mu.RUnlock()

	now := d.now()
	if snap.IsFresh(now, d.cfg.MaxAge) {
		return nil
	}
	if snap != nil && now.Sub(lastFailure) < failureCooldown {
		return nil
	}

	_, err, _ := d.group.Do(ensureFlightKey, func() (any, error) {
		return nil, d.load(ctx)
	})
	return err
}

func (d *DocIndex) load(ctx context.Context) error {
	persisted := d.readPersisted(ctx)
	if persisted.IsFresh(d.now(), d.cfg.MaxAge) {
		d.setSnapshot(persisted)
		docsLog.Debug("loaded %d chunks from storage", len(persisted.Chunks))
		return nil
	}

	err := d.rebuild(ctx)
	if err == nil {
		return nil
	}

	d.mu.Lock()
	d.lastFailure = d.now()
	if d.snapshot == nil && persisted != nil {
		d.snapshot = persisted
		metrics.DocsChunks.Set(float64(len(persisted.Chunks)))
	}
	loaded := d.snapshot != nil
	d.mu.Unlock()

	if loaded {
		docsLog.Warn("refresh from %s failed, serving stale index: %v", d.source.Location(), err)
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
}

// Refresh fetches and re-ingests the corpus regardless of snapshot age.
// On failure the current snapshot is kept.
func (d *DocIndex) Refresh(ctx context.Context) error {
	_, err, _ := d.group.Do(refreshFlightKey, func() (any, error) {
		return nil, d.rebuild(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// RefreshIfStale refreshes only when neither memory nor storage holds a
// fresh snapshot. A fresh persisted snapshot is adopted without fetching.
func (d *DocIndex) RefreshIfStale(ctx context.Context) (bool, error) {
	if st := d.Status(); st.Ready && !st.Stale {
		return false, nil
	}
	if persisted := d.readPersisted(ctx); persisted.IsFresh(d.now(), d.cfg.MaxAge) {
		d.setSnapshot(persisted)
		docsLog.Debug("adopted %d persisted chunks, skipping refresh", len(persisted.Chunks))
		return false, nil
	}
	if err := d.Refresh(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (d *DocIndex) rebuild(ctx context.Context) error {
	if d.source == nil {
		metrics.DocsIngests.WithLabelValues("error").Inc()
		return errors.New("no documentation source configured")
	}

	ctx, span := telemetry.Tracer().Start(ctx, "docs.ingest")
	defer span.End()

	text, err := d.source.Fetch(ctx)
	if err != nil {
		metrics.DocsIngests.WithLabelValues("error").Inc()
		span.RecordError(err)
		return fmt.Errorf("fetch %s: %w", d.source.Location(), err)
	}

	chunks := d.Ingest(text)
	if len(chunks) == 0 {
		metrics.DocsIngests.WithLabelValues("empty").Inc()
		return fmt.Errorf("no sections found in %s", d.source.Location())
	}

	snap := &domain.DocIndexSnapshot{Chunks: chunks, LastUpdated: d.now().UTC()}
	d.setSnapshot(snap)
	d.persist(ctx, snap)
	metrics.DocsIngests.WithLabelValues("ok").Inc()
	docsLog.Info("indexed %d chunks from %s", len(chunks), d.source.Location())
	return nil
}

func (d *DocIndex) setSnapshot(snap *domain.DocIndexSnapshot) {
	d.mu.Lock()
	d.snapshot = snap
	d.lastFailure = time.Time{}
	d.mu.Unlock()
	metrics.DocsChunks.Set(float64(len(snap.Chunks)))
}

func (d *DocIndex) readPersisted(ctx context.Context) *domain.DocIndexSnapshot {
	if d.store == nil {
		return nil
	}
	rec, err := d.store.Read(ctx, DocsIndexKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			docsLog.Warn("read persisted index: %v", err)
		}
		return nil
	}
	var snap domain.DocIndexSnapshot
	if err := json.Unmarshal(rec.Data, &snap); err != nil {
		docsLog.Warn("persisted index: %v: %v", domain.ErrCacheCorruption, err)
		return nil
	}
	if len(snap.Chunks) == 0 {
		return nil
	}
	return &snap
}

func (d *DocIndex) persist(ctx context.Context, snap *domain.DocIndexSnapshot) {
	if d.store == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		docsLog.Warn("encode index: %v", err)
		return
	}
	if err := d.store.Write(ctx, DocsIndexKey, data); err != nil {
		docsLog.Warn("persist index: %v", err)
	}
}

// Ingest segments a markdown corpus on "## " headings. Text before the first
// heading becomes an introduction chunk. Sections with no body are skipped.
func (d *DocIndex) Ingest(text string) []domain.DocChunk {
	sections := sectionSplit.Split(text, -1)
	chunks := make([]domain.DocChunk, 0, len(sections))

	if intro := strings.TrimSpace(sections[0]); intro != "" {
		title := "Introduction to " + productTitle(d.cfg.Product)
		chunks = append(chunks, domain.DocChunk{
			Title:    title,
			Content:  intro,
			Keywords: extractKeywords(title + " " + intro),
		})
	}

	for _, section := range sections[1:] {
		title, body, _ := strings.Cut(section, "\n")
		title = strings.TrimSpace(title)
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		chunks = append(chunks, domain.DocChunk{
			Title:    title,
			Content:  body,
			Keywords: extractKeywords(title + " " + body),
		})
	}
	return chunks
}

// extractKeywords returns the categories whose phrases occur in text,
// followed by any model names, lower-cased and de-duplicated.
func extractKeywords(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	var keywords []string
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			keywords = append(keywords, k)
		}
	}

	for _, cat := range keywordCategories {
		for _, phrase := range cat.phrases {
			if strings.Contains(lower, phrase) {
				add(cat.name)
				break
			}
		}
	}
	for _, m := range modelPattern.FindAllString(lower, -1) {
		add(strings.Trim(m, " \t\r\n-"))
	}
	return keywords
}

// questionWords returns the lower-cased words of q longer than three characters.
func questionWords(q string) []string {
	var words []string
	for _, w := range nonWord.Split(strings.ToLower(q), -1) {
		if utf8.RuneCountInString(w) > 3 {
			words = append(words, w)
		}
	}
	return words
}

// scoreChunk is 5 per shared keyword, plus 2 per question word found in the
// title and 1 per question word found in the content.
func scoreChunk(chunk domain.DocChunk, keywords, words []string) int {
	score := 0
	for _, k := range keywords {
		if chunk.HasKeyword(k) {
			score += 5
		}
	}
	title := strings.ToLower(chunk.Title)
	content := strings.ToLower(chunk.Content)
	for _, w := range words {
		if strings.Contains(title, w) {
			score += 2
		}
		if strings.Contains(content, w) {
			score++
		}
	}
	return score
}

// IsGroundingQuestion reports whether the question is about the product's
// API, models or technical details.
func (d *DocIndex) IsGroundingQuestion(question string) bool {
	lower := strings.ToLower(question)
	for _, ind := range d.indicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	for _, re := range d.patterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// TopMatches returns at most limit chunks with a positive score, highest
// first. Ties keep corpus order.
func (d *DocIndex) TopMatches(question string, limit int) []domain.ScoredChunk {
	if limit <= 0 {
		limit = DefaultTopMatches
	}

	d.mu.RLock()
	snap := d.snapshot
	d.mu.RUnlock()
	if snap == nil {
		return nil
	}

	keywords := extractKeywords(question)
	words := questionWords(question)

	var scored []domain.ScoredChunk
	for _, chunk := range snap.Chunks {
		if s := scoreChunk(chunk, keywords, words); s > 0 {
			scored = append(scored, domain.ScoredChunk{DocChunk: chunk, Score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// GroundingContext joins the best matches as "title:\ncontent" blocks.
// With no index loaded or nothing matching it returns a generic product
// description.
func (d *DocIndex) GroundingContext(ctx context.Context, question string, limit int) string {
	_, span := telemetry.Tracer().Start(ctx, "docs.GroundingContext")
	defer span.End()

	name := productTitle(d.cfg.Product)
	if d.Status().ChunkCount == 0 {
		return name + " provides lightning-fast inference for AI models through its API."
	}

	matches := d.TopMatches(question, limit)
	if len(matches) == 0 {
		return name + " provides lightning-fast inference for AI applications through its API, " +
			"supporting various language models like Llama and Mixtral."
	}

	blocks := make([]string, len(matches))
	for i, m := range matches {
		blocks[i] = m.Title + ":\n" + m.Content
	}
	return strings.Join(blocks, "\n\n")
}

// Status summarises the loaded snapshot.
func (d *DocIndex) Status() domain.DocsStatus {
	d.mu.RLock()
	snap := d.snapshot
	d.mu.RUnlock()

	if snap == nil {
		return domain.DocsStatus{Stale: true}
	}
	return domain.DocsStatus{
		Ready:       true,
		ChunkCount:  len(snap.Chunks),
		LastUpdated: snap.LastUpdated,
		Stale:       !snap.IsFresh(d.now(), d.cfg.MaxAge),
	}
}

// productTitle capitalises the first letter of a product name.
func productTitle(product string) string {
	if product == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(product)
	return strings.ToUpper(string(r)) + product[size:]
}
