package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSortNewestFirst(t *testing.T) {
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := []Post{
		{ID: "old", CreatedAt: t1},
		{ID: "new", CreatedAt: t1.Add(48 * time.Hour)},
		{ID: "mid-a", CreatedAt: t1.Add(24 * time.Hour)},
		{ID: "mid-b", CreatedAt: t1.Add(24 * time.Hour)},
	}

	SortNewestFirst(posts)

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"new", "mid-a", "mid-b", "old"}, ids)
}

func TestDocIndexSnapshot_IsFresh(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour

	var nilSnap *DocIndexSnapshot
	assert.False(t, nilSnap.IsFresh(now, week))
	assert.False(t, (&DocIndexSnapshot{}).IsFresh(now, week))
	assert.True(t, (&DocIndexSnapshot{LastUpdated: now.Add(-time.Hour)}).IsFresh(now, week))
	assert.False(t, (&DocIndexSnapshot{LastUpdated: now.Add(-8 * 24 * time.Hour)}).IsFresh(now, week))
}

func TestDocChunk_HasKeyword(t *testing.T) {
	chunk := DocChunk{Keywords: []string{"models", "llama-3"}}
	assert.True(t, chunk.HasKeyword("models"))
	assert.False(t, chunk.HasKeyword("pricing"))
}
