package ingest

import (
	"github.com/tmc/langchaingo/textsplitter"
)

// SplitMarkdown chunks text with the markdown-aware splitter.
func SplitMarkdown(text string, chunkSize, chunkOverlap int) ([]string, error) {
	splitter := textsplitter.NewMarkdownTextSplitter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
	return splitter.SplitText(text)
}
