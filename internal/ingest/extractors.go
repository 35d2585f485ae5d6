package ingest

import (
	"context"
	"fmt"

	"github.com/serapieum/docent/internal/config"
	"github.com/serapieum/docent/internal/llm"
	"github.com/serapieum/docent/internal/store"
	"github.com/serapieum/docent/internal/util"
)

// Metadata keys written by the extractors.
const (
	MetaTitle     = "document_title"
	MetaKeywords  = "excerpt_keywords"
	MetaQuestions = "questions_this_excerpt_can_answer"
	MetaSummary   = "section_summary"
)

// Chunk is a document excerpt with extractor metadata attached.
type Chunk struct {
	DocHash string
	Seq     int
	Text    string
	Meta    map[string]string
}

// Pipeline splits documents into chunks and runs LLM extractors over each
// chunk, filling chunk metadata. Extractors are optional; with a zero
// Extractors config the pipeline only chunks.
type Pipeline struct {
	Generator    *llm.Generator
	Extractors   config.Extractors
	ChunkSize    int
	ChunkOverlap int
}

func (p *Pipeline) Run(ctx context.Context, docs []store.Document) ([]Chunk, error) {
	var chunks []Chunk
	for _, doc := range docs {
		hash := doc.Hash
		if hash == "" {
			hash = util.HashContent(doc.Content)
		}

		parts, err := SplitMarkdown(doc.Content, p.ChunkSize, p.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", doc.Path, err)
		}

		// The title is extracted once per document, from the first chunk.
		var docTitle string
		if p.Extractors.Title && p.Generator != nil && len(parts) > 0 {
			docTitle, err = p.extractTitle(ctx, parts[0])
			if err != nil {
				return nil, fmt.Errorf("title extractor on %s: %w", doc.Path, err)
			}
		}

		for i, part := range parts {
			chunk := Chunk{
				DocHash: hash,
				Seq:     i,
				Text:    part,
				Meta:    map[string]string{},
			}
			for k, v := range doc.Meta {
				chunk.Meta[k] = v
			}
			if docTitle != "" {
				chunk.Meta[MetaTitle] = docTitle
			}

			if p.Generator != nil {
				if err := p.annotate(ctx, &chunk); err != nil {
					return nil, fmt.Errorf("extractors on %s[%d]: %w", doc.Path, i, err)
				}
			}
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

func (p *Pipeline) extractTitle(ctx context.Context, excerpt string) (string, error) {
	prompt := fmt.Sprintf(
		"Give a short, comprehensive title for the following document excerpt. "+
			"Answer with the title only.\n\n%s", excerpt)
	return p.Generator.Generate(ctx, prompt, nil)
}

func (p *Pipeline) annotate(ctx context.Context, chunk *Chunk) error {
	if n := p.Extractors.Keywords; n > 0 {
		prompt := fmt.Sprintf(
			"Give %d unique keywords for this excerpt, comma separated. "+
				"Answer with the keywords only.\n\n%s", n, chunk.Text)
		out, err := p.Generator.Generate(ctx, prompt, nil)
		if err != nil {
			return err
		}
		chunk.Meta[MetaKeywords] = out
	}

	if n := p.Extractors.Questions; n > 0 {
		prompt := fmt.Sprintf(
			"Give %d question(s) that this excerpt can specifically answer, "+
				"one per line. Answer with the questions only.\n\n%s", n, chunk.Text)
		out, err := p.Generator.Generate(ctx, prompt, nil)
		if err != nil {
			return err
		}
		chunk.Meta[MetaQuestions] = out
	}

	if p.Extractors.Summary {
		prompt := fmt.Sprintf(
			"Summarize the key topics and entities of this excerpt in a short "+
				"paragraph.\n\n%s", chunk.Text)
		out, err := p.Generator.Generate(ctx, prompt, nil)
		if err != nil {
			return err
		}
		chunk.Meta[MetaSummary] = out
	}

	return nil
}

// StoreChunks persists extracted chunks as documents under collection,
// addressed as path#seq so they remain searchable next to their source.
func StoreChunks(s *store.Store, collection, path string, chunks []Chunk) (int, error) {
	count := 0
	for _, chunk := range chunks {
		added, err := s.AddDocument(store.Document{
			Collection: collection,
			Path:       fmt.Sprintf("%s#%d", path, chunk.Seq),
			Content:    chunk.Text,
			Meta:       chunk.Meta,
		}, true)
		if err != nil {
			return count, err
		}
		if added {
			count++
		}
	}
	return count, nil
}
