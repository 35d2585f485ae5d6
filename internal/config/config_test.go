package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Missing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	// Missing file yields defaults
	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Equal(t, "nomic-embed-text", cfg.EmbedModel)
	assert.Equal(t, 768, cfg.EmbedDimensions)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 3, cfg.Extractors.Keywords)
	assert.False(t, cfg.EmbeddingsConfigured)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "docent.yml")

	cfg := Default()
	cfg.EmbedModel = "embeddinggemma"
	cfg.EmbedDimensions = 256
	cfg.EmbeddingsConfigured = true
	cfg.UseLocal = true
	cfg.LocalModelPath = "/models/embed.gguf"
	cfg.Extractors.Summary = true
	cfg.Collections = append(cfg.Collections, Collection{
		Name: "notes", Path: "/home/me/notes", Pattern: "*.md",
	})

	require.NoError(t, SaveFile(cfg, path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestFindCollection(t *testing.T) {
	cfg := Default()
	cfg.Collections = []Collection{
		{Name: "work", Path: "/w"},
		{Name: "notes", Path: "/n"},
	}

	col := cfg.FindCollection("notes")
	require.NotNil(t, col)
	assert.Equal(t, "/n", col.Path)

	assert.Nil(t, cfg.FindCollection("missing"))
}
