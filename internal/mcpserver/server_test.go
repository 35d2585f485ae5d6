package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/serapieum/docent/internal/store"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "index.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewServer(s, nil), s
}

func textContent(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestGetTools(t *testing.T) {
	srv, _ := newTestServer(t)

	names := map[string]bool{}
	for _, tool := range srv.GetTools() {
		names[tool.Name] = true
	}
	for _, want := range []string{"search", "vsearch", "query", "get_document", "find_by_name", "status"} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestCallTool_Search(t *testing.T) {
	srv, s := newTestServer(t)
	require.NoError(t, s.IndexDocument("work", "alpha.md", "# Alpha\nthe architecture notes"))

	res, err := srv.CallTool(context.Background(), "search", map[string]any{
		"query": "architecture",
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var results []searchResultJSON
	require.NoError(t, json.Unmarshal([]byte(textContent(t, res)), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "work/alpha.md", results[0].Filepath)
	assert.Equal(t, "Alpha", results[0].Title)
}

func TestCallTool_GetDocument(t *testing.T) {
	srv, s := newTestServer(t)
	require.NoError(t, s.IndexDocument("notes", "sub/doc.md", "body text"))

	res, err := srv.CallTool(context.Background(), "get_document", map[string]any{
		"path": "notes/sub/doc.md",
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "body text", textContent(t, res))

	// A bare name without a collection prefix is rejected
	res, err = srv.CallTool(context.Background(), "get_document", map[string]any{
		"path": "doc.md",
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestCallTool_FindByName(t *testing.T) {
	srv, s := newTestServer(t)
	_, err := s.AddDocument(store.Document{
		Collection: "papers",
		Path:       "essay.txt",
		Content:    "text",
		Meta:       map[string]string{"file_name": "essay.txt"},
	}, false)
	require.NoError(t, err)

	res, err := srv.CallTool(context.Background(), "find_by_name", map[string]any{
		"name": "essay",
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var docs []documentJSON
	require.NoError(t, json.Unmarshal([]byte(textContent(t, res)), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "papers", docs[0].Collection)
	assert.Equal(t, "essay.txt", docs[0].Path)
}

func TestCallTool_Status(t *testing.T) {
	srv, s := newTestServer(t)
	require.NoError(t, s.IndexDocument("a", "one.md", "x"))

	res, err := srv.CallTool(context.Background(), "status", nil)
	require.NoError(t, err)
	require.False(t, res.IsError)

	var status statusJSON
	require.NoError(t, json.Unmarshal([]byte(textContent(t, res)), &status))
	assert.Equal(t, 1, status.TotalDocuments)
	assert.Equal(t, 1, status.Collections)
}

func TestCallTool_VectorSearchWithoutEmbedder(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, name := range []string{"vsearch", "query"} {
		res, err := srv.CallTool(context.Background(), name, map[string]any{"query": "anything"})
		require.NoError(t, err)
		assert.True(t, res.IsError, "%s should fail without an embedder", name)
	}
}

func TestCallTool_Unknown(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := srv.CallTool(context.Background(), "nope", nil)
	assert.Error(t, err)
}
