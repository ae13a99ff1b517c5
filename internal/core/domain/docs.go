package domain

import "time"

// DocChunk is a titled section of the documentation corpus.
// Chunks are immutable after ingestion.
type DocChunk struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords"`
}

// HasKeyword reports whether the chunk was tagged with keyword.
func (c DocChunk) HasKeyword(keyword string) bool {
	for _, k := range c.Keywords {
		if k == keyword {
			return true
		}
	}
	return false
}

// DocIndexSnapshot is the persisted form of the documentation index.
type DocIndexSnapshot struct {
	Chunks      []DocChunk `json:"chunks"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// IsFresh reports whether the snapshot is younger than maxAge.
func (s *DocIndexSnapshot) IsFresh(now time.Time, maxAge time.Duration) bool {
	if s == nil || s.LastUpdated.IsZero() {
		return false
	}
	return now.Sub(s.LastUpdated) < maxAge
}

// ScoredChunk pairs a chunk with its relevance score for one question.
type ScoredChunk struct {
	DocChunk
	Score int
}

// DocsStatus summarises the documentation index.
type DocsStatus struct {
	Ready       bool
	ChunkCount  int
	LastUpdated time.Time
	Stale       bool
}
