package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/serapieum/docent/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Each command carries its own --collection default; binding them to one
// shared variable would let the last registration clobber the others.
func TestCollectionFlagDefaults(t *testing.T) {
	root := newRootCmd()

	wantDefaults := map[string]string{
		"extract": "extracted",
		"import":  "imported",
		"export":  "",
		"figures": "",
	}

	for name, want := range wantDefaults {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		flag := cmd.Flags().Lookup("collection")
		require.NotNil(t, flag, "%s has no collection flag", name)
		assert.Equal(t, want, flag.DefValue, "%s default", name)
	}

	// pflag wrote the defaults into the bound variables at registration
	assert.Equal(t, "extracted", extractCollection)
	assert.Equal(t, "imported", importCollection)
	assert.Equal(t, "", exportCollection)
	assert.Equal(t, "", figuresCollection)
}

type flakyEmbedder struct {
	calls  int
	failOn int // 1-based call number to fail at, 0 = never
}

func (f *flakyEmbedder) Embed(text string, isQuery bool) ([]float32, error) {
	f.calls++
	if f.failOn != 0 && f.calls >= f.failOn {
		return nil, fmt.Errorf("model gone")
	}
	return []float32{1, 0, 0, 0}, nil
}

func (f *flakyEmbedder) Close() error { return nil }

func TestEmbedDocumentChunks_FailureKeepsDocumentPending(t *testing.T) {
	s, err := store.NewStore(filepath.Join(t.TempDir(), "index.sqlite"))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.EnsureVectorTable(4))

	// Long enough to split into multiple chunks at chunkSize 40
	content := "# Doc\n\n" + strings.Repeat("a paragraph about something.\n\n", 6)
	require.NoError(t, s.IndexDocument("kb", "doc.md", content))

	pending, err := s.GetPendingEmbeddings()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	var hash string
	for h := range pending {
		hash = h
	}

	// Second chunk fails: nothing may be saved, the doc stays pending
	emb := &flakyEmbedder{failOn: 2}
	err = embedDocumentChunks(s, emb, hash, content, 40, 0)
	require.Error(t, err)
	require.Greater(t, emb.calls, 1, "content should split into multiple chunks")

	pending, err = s.GetPendingEmbeddings()
	require.NoError(t, err)
	assert.Len(t, pending, 1, "failed document must remain pending")

	// A later successful run embeds every chunk
	err = embedDocumentChunks(s, &flakyEmbedder{}, hash, content, 40, 0)
	require.NoError(t, err)

	pending, err = s.GetPendingEmbeddings()
	require.NoError(t, err)
	assert.Empty(t, pending)
}
