package index

import (
	"fmt"

	"github.com/serapieum/docent/internal/ingest"
	"github.com/serapieum/docent/internal/llm"
	"github.com/serapieum/docent/internal/store"
	"github.com/serapieum/docent/internal/util"
)

// Manager builds and loads named vector indexes on top of the store.
type Manager struct {
	Store        *store.Store
	Embedder     llm.Embedder
	Model        string
	Dim          int
	ChunkSize    int
	ChunkOverlap int
}

// Index is a loaded vector index.
type Index struct {
	Info   store.IndexInfo
	DocIDs []string

	store *store.Store
}

// Build creates a named index from documents: every document is stored,
// chunked, embedded and registered as a member. Documents whose vectors
// already exist are not re-embedded.
func (m *Manager) Build(name string, docs []store.Document) (*Index, error) {
	if m.Embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}

	indexID, err := m.Store.CreateIndex(name, m.Model, m.Dim)
	if err != nil {
		return nil, err
	}

	for _, doc := range docs {
		if doc.Hash == "" {
			doc.Hash = util.HashContent(doc.Content)
		}
		if _, err := m.Store.AddDocument(doc, false); err != nil {
			return nil, fmt.Errorf("add %s: %w", doc.Path, err)
		}

		if err := m.embedDocument(doc); err != nil {
			return nil, err
		}
		if err := m.Store.AddIndexMember(indexID, doc.Hash); err != nil {
			return nil, err
		}
	}

	return m.Load(name)
}

func (m *Manager) embedDocument(doc store.Document) error {
	// Skip documents that already have vectors
	pending, err := m.Store.GetPendingEmbeddings()
	if err != nil {
		return err
	}
	if _, ok := pending[doc.Hash]; !ok {
		return nil
	}

	chunks, err := ingest.SplitMarkdown(doc.Content, m.ChunkSize, m.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("split %s: %w", doc.Path, err)
	}

	for i, chunk := range chunks {
		vec, err := m.Embedder.Embed(chunk, false)
		if err != nil {
			return fmt.Errorf("embed %s[%d]: %w", doc.Path, i, err)
		}
		if err := m.Store.SaveEmbedding(doc.Hash, i, vec); err != nil {
			return err
		}
	}
	return nil
}

// Load returns an existing index by name.
func (m *Manager) Load(name string) (*Index, error) {
	info, err := m.Store.GetIndex(name)
	if err != nil {
		return nil, err
	}
	docIDs, err := m.Store.IndexDocIDs(name)
	if err != nil {
		return nil, err
	}
	return &Index{Info: *info, DocIDs: docIDs, store: m.Store}, nil
}

// List returns all indexes in the store.
func (m *Manager) List() ([]store.IndexInfo, error) {
	return m.Store.ListIndexes()
}

// Delete removes a named index, leaving documents and vectors in place.
func (m *Manager) Delete(name string) error {
	return m.Store.DeleteIndex(name)
}

// Embeddings returns the index's vectors keyed by document hash, one vector
// per chunk.
func (idx *Index) Embeddings() (map[string][][]float32, error) {
	return idx.store.IndexEmbeddings(idx.Info.Name)
}

func (idx *Index) String() string {
	return fmt.Sprintf("Index: %s (model=%s dim=%d documents=%d)",
		idx.Info.Name, idx.Info.Model, idx.Info.Dim, len(idx.DocIDs))
}
