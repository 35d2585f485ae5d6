package store_test

import (
	"testing"

	"github.com/serapieum/docent/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReciprocalRankFusion(t *testing.T) {
	fts := []store.SearchResult{
		{Filepath: "a.md", Matches: []string{"line with match"}, Snippet: "snippet"},
		{Filepath: "b.md"},
	}
	vec := []store.SearchResult{
		{Filepath: "b.md"},
		{Filepath: "a.md"},
		{Filepath: "c.md"},
	}

	fused := store.ReciprocalRankFusion(fts, vec)
	require.Len(t, fused, 3)

	// a and b each appear in both lists at ranks 1 and 2; c only once
	assert.InDelta(t, 1.0/61+1.0/62, fused[0].Score, 1e-9)
	assert.InDelta(t, 1.0/61+1.0/62, fused[1].Score, 1e-9)
	assert.InDelta(t, 1.0/63, fused[2].Score, 1e-9)
	assert.Equal(t, "c.md", fused[2].Filepath)

	// The FTS line matches survive fusion regardless of list order
	for _, r := range fused {
		if r.Filepath == "a.md" {
			assert.Equal(t, []string{"line with match"}, r.Matches)
			assert.Equal(t, "snippet", r.Snippet)
		}
	}
}

func TestReciprocalRankFusion_SingleList(t *testing.T) {
	list := []store.SearchResult{
		{Filepath: "first.md"},
		{Filepath: "second.md"},
	}

	fused := store.ReciprocalRankFusion(list)
	require.Len(t, fused, 2)
	assert.Equal(t, "first.md", fused[0].Filepath)
	assert.Greater(t, fused[0].Score, fused[1].Score)
}

func TestReciprocalRankFusion_Empty(t *testing.T) {
	assert.Empty(t, store.ReciprocalRankFusion())
	assert.Empty(t, store.ReciprocalRankFusion(nil, nil))
}
