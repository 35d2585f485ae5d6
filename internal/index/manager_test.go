package index_test

import (
	"path/filepath"
	"testing"

	"github.com/serapieum/docent/internal/index"
	"github.com/serapieum/docent/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns a fixed vector and counts calls.
type fakeEmbedder struct {
	calls int
	vec   []float32
}

func (f *fakeEmbedder) Embed(text string, isQuery bool) ([]float32, error) {
	f.calls++
	return f.vec, nil
}

func (f *fakeEmbedder) Close() error { return nil }

func newManager(t *testing.T) (*index.Manager, *fakeEmbedder) {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "index.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureVectorTable(4))

	emb := &fakeEmbedder{vec: []float32{0.5, 0.5, 0.5, 0.5}}
	return &index.Manager{
		Store:        s,
		Embedder:     emb,
		Model:        "nomic-embed-text",
		Dim:          4,
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}, emb
}

func TestManager_BuildAndLoad(t *testing.T) {
	m, emb := newManager(t)

	docs := []store.Document{
		{Collection: "papers", Path: "a.md", Content: "first paper"},
		{Collection: "papers", Path: "b.md", Content: "second paper"},
	}

	idx, err := m.Build("papers", docs)
	require.NoError(t, err)

	assert.Equal(t, "papers", idx.Info.Name)
	assert.Equal(t, "nomic-embed-text", idx.Info.Model)
	assert.Equal(t, 4, idx.Info.Dim)
	assert.Len(t, idx.DocIDs, 2)
	assert.Equal(t, 2, emb.calls, "one chunk per short document")

	loaded, err := m.Load("papers")
	require.NoError(t, err)
	assert.Equal(t, idx.DocIDs, loaded.DocIDs)

	embeddings, err := idx.Embeddings()
	require.NoError(t, err)
	assert.Len(t, embeddings, 2)

	assert.Contains(t, idx.String(), "papers")
}

func TestManager_Build_SkipsEmbedded(t *testing.T) {
	m, emb := newManager(t)

	docs := []store.Document{{Collection: "papers", Path: "a.md", Content: "same paper"}}
	_, err := m.Build("first", docs)
	require.NoError(t, err)
	require.Equal(t, 1, emb.calls)

	// The same content in a second index reuses the existing vectors
	idx, err := m.Build("second", docs)
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls)
	assert.Len(t, idx.DocIDs, 1)
}

func TestManager_Build_NoEmbedder(t *testing.T) {
	m, _ := newManager(t)
	m.Embedder = nil

	_, err := m.Build("papers", nil)
	assert.Error(t, err)
}

func TestManager_ListAndDelete(t *testing.T) {
	m, _ := newManager(t)

	_, err := m.Build("one", []store.Document{{Collection: "c", Path: "a.md", Content: "x"}})
	require.NoError(t, err)
	_, err = m.Build("two", []store.Document{{Collection: "c", Path: "b.md", Content: "y"}})
	require.NoError(t, err)

	infos, err := m.List()
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	require.NoError(t, m.Delete("one"))
	infos, err = m.List()
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	_, err = m.Load("one")
	assert.Error(t, err)
}
