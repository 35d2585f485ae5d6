package store_test

import (
	"path/filepath"
	"testing"

	"github.com/serapieum/docent/internal/store"
	"github.com/serapieum/docent/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "index.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestFTS_InternalState verifies that the triggers are correctly firing
// and populating the FTS table.
func TestFTS_InternalState(t *testing.T) {
	s := newTestStore(t)

	content := "Search test content"
	err := s.IndexDocument("debug", "debug.md", content)
	require.NoError(t, err)

	var count int
	err = s.DB.QueryRow("SELECT COUNT(*) FROM documents").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "documents table should have 1 row")

	var ftsCount int
	err = s.DB.QueryRow("SELECT COUNT(*) FROM documents_fts").Scan(&ftsCount)
	require.NoError(t, err)
	if ftsCount == 0 {
		t.Fatal("documents_fts is empty! The SQLite triggers failed to populate the FTS table.")
	}

	var body string
	err = s.DB.QueryRow("SELECT body FROM documents_fts LIMIT 1").Scan(&body)
	require.NoError(t, err)
	assert.Equal(t, content, body, "FTS body should match inserted content")
}

func TestSearchFTS_Basic(t *testing.T) {
	s := newTestStore(t)

	content := `
# Project Alpha
We are discussing the architecture of Project Alpha.
`
	err := s.IndexDocument("work", "alpha.md", content)
	require.NoError(t, err)

	results, err := s.SearchFTS("architecture", 10, 1, false)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "work/alpha.md", results[0].Filepath)
	assert.Equal(t, "Project Alpha", results[0].Title)
	require.NotEmpty(t, results[0].Matches)
	assert.Contains(t, results[0].Matches[0], "architecture")
}

func TestSearchFTS_FindAll(t *testing.T) {
	s := newTestStore(t)

	content := "first target line\nnothing here\nsecond target line"
	require.NoError(t, s.IndexDocument("work", "multi.md", content))

	results, err := s.SearchFTS("target", 10, 0, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Matches, 2)
}

func TestIndexAndGetDocument(t *testing.T) {
	s := newTestStore(t)

	col := "notes"
	path := "test.md"
	content := "# My Title\nThis is a test content body."

	err := s.IndexDocument(col, path, content)
	assert.NoError(t, err)

	retrieved, err := s.GetDocument(col, path)
	assert.NoError(t, err)
	assert.Equal(t, content, retrieved)

	_, err = s.GetDocument(col, "missing.md")
	assert.Error(t, err)
}

func TestAddDocument_SkipExisting(t *testing.T) {
	s := newTestStore(t)

	doc := store.Document{Collection: "notes", Path: "a.md", Content: "same content"}

	added, err := s.AddDocument(doc, false)
	require.NoError(t, err)
	assert.True(t, added)

	// Re-adding identical content is a no-op unless update is requested
	added, err = s.AddDocument(doc, false)
	require.NoError(t, err)
	assert.False(t, added)

	added, err = s.AddDocument(doc, true)
	require.NoError(t, err)
	assert.True(t, added)
}

func TestUpdateDocument(t *testing.T) {
	s := newTestStore(t)

	err := s.IndexDocument("main", "update.md", "This is the initial version.")
	require.NoError(t, err)

	res, _ := s.SearchFTS("initial", 10, 0, false)
	require.Len(t, res, 1)

	err = s.IndexDocument("main", "update.md", "This is the updated version.")
	require.NoError(t, err)

	res, _ = s.SearchFTS("initial", 10, 0, false)
	assert.Len(t, res, 0, "Old content should be removed from FTS index")

	res, _ = s.SearchFTS("updated", 10, 0, false)
	assert.Len(t, res, 1, "New content should be present in FTS index")
}

func TestGetDocsByFileName(t *testing.T) {
	s := newTestStore(t)

	doc := store.Document{
		Collection: "papers",
		Path:       "essays/paul_graham_essay.txt",
		Content:    "What I Worked On",
		Meta:       map[string]string{"file_name": "paul_graham_essay.txt"},
	}
	_, err := s.AddDocument(doc, false)
	require.NoError(t, err)

	// Substring match
	docs, err := s.GetDocsByFileName("graham", false)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "What I Worked On", docs[0].Content)
	assert.Equal(t, "paul_graham_essay.txt", docs[0].Meta["file_name"])

	// Exact match requires the full name
	docs, err = s.GetDocsByFileName("graham", true)
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = s.GetDocsByFileName("paul_graham_essay.txt", true)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestVectors(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureVectorTable(768))

	content := "Vector test content"
	err := s.IndexDocument("vec", "vec.md", content)
	require.NoError(t, err)

	pending, err := s.GetPendingEmbeddings()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	var hash string
	for h := range pending {
		hash = h
	}

	vec := make([]float32, 768)
	vec[0] = 0.5
	vec[1] = 0.5
	err = s.SaveEmbedding(hash, 0, vec)
	assert.NoError(t, err)

	// Once embedded, the document is no longer pending
	pending, err = s.GetPendingEmbeddings()
	require.NoError(t, err)
	assert.Empty(t, pending)

	results, err := s.SearchVec(vec, 5)
	assert.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "vec/vec.md", results[0].Filepath)
}

func TestEnsureVectorTable_DimChange(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureVectorTable(768))

	require.NoError(t, s.IndexDocument("vec", "doc.md", "some content"))
	hash := util.HashContent("some content")
	require.NoError(t, s.SaveEmbedding(hash, 0, make([]float32, 768)))

	// Same dim is a no-op
	require.NoError(t, s.EnsureVectorTable(768))
	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Embeddings)

	// Changing dims drops all vectors; the document becomes pending again
	require.NoError(t, s.EnsureVectorTable(384))
	stats, err = s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Embeddings)

	pending, err := s.GetPendingEmbeddings()
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, s.SaveEmbedding(hash, 0, make([]float32, 384)))
}

func TestSearchHybrid(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureVectorTable(4))

	require.NoError(t, s.IndexDocument("kb", "golang.md", "All about golang concurrency"))
	require.NoError(t, s.IndexDocument("kb", "python.md", "All about python asyncio"))

	goHash := util.HashContent("All about golang concurrency")
	pyHash := util.HashContent("All about python asyncio")
	require.NoError(t, s.SaveEmbedding(goHash, 0, []float32{1, 0, 0, 0}))
	require.NoError(t, s.SaveEmbedding(pyHash, 0, []float32{0, 1, 0, 0}))

	results, err := s.SearchHybrid("golang", []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// The doc matching both FTS and vector search must rank first
	assert.Equal(t, "kb/golang.md", results[0].Filepath)
}

func TestNamedIndexes(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureVectorTable(4))

	id, err := s.CreateIndex("papers", "nomic-embed-text", 4)
	require.NoError(t, err)

	// Names are unique
	_, err = s.CreateIndex("papers", "nomic-embed-text", 4)
	assert.Error(t, err)

	require.NoError(t, s.IndexDocument("papers", "a.md", "doc a"))
	hash := util.HashContent("doc a")
	require.NoError(t, s.SaveEmbedding(hash, 0, []float32{0.1, 0.2, 0.3, 0.4}))
	require.NoError(t, s.AddIndexMember(id, hash))

	info, err := s.GetIndex("papers")
	require.NoError(t, err)
	assert.Equal(t, "papers", info.Name)
	assert.Equal(t, 4, info.Dim)
	assert.Equal(t, 1, info.Docs)

	docIDs, err := s.IndexDocIDs("papers")
	require.NoError(t, err)
	assert.Equal(t, []string{hash}, docIDs)

	embeddings, err := s.IndexEmbeddings("papers")
	require.NoError(t, err)
	require.Len(t, embeddings, 1)
	require.Len(t, embeddings[hash], 1)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3, 0.4}, embeddings[hash][0], 1e-6)

	infos, err := s.ListIndexes()
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	require.NoError(t, s.DeleteIndex("papers"))
	_, err = s.GetIndex("papers")
	assert.Error(t, err)
	assert.Error(t, s.DeleteIndex("papers"))

	// Documents and vectors survive index deletion
	content, err := s.GetDocument("papers", "a.md")
	require.NoError(t, err)
	assert.Equal(t, "doc a", content)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.IndexDocument("a", "one.md", "first"))
	require.NoError(t, s.IndexDocument("b", "two.md", "second"))

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 2, stats.Collections)
	assert.Equal(t, 0, stats.Embeddings)
	assert.Equal(t, 0, stats.Indexes)
}
