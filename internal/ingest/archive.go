package ingest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/serapieum/docent/internal/store"
	"github.com/klauspost/compress/zstd"
)

// Bundle format: zstd-compressed concatenation of fenced blocks, one per
// document:
//
//	```markdown path/to/file.md
//	content
//	```
//
// Documents that themselves contain backtick fences are wrapped in a longer
// fence so the round trip stays lossless.

var headerRegex = regexp.MustCompile("^(`{3,})\\s*markdown\\s+(.+)$")

// ImportBundle reads a compressed bundle and indexes every document it
// contains into collection. Returns the number of documents indexed.
func ImportBundle(s *store.Store, archivePath, collection string) (int, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder, err := zstd.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer decoder.Close()

	scanner := bufio.NewScanner(decoder)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	var (
		currentPath    string
		currentFence   string
		currentContent strings.Builder
		inBlock        bool
		count          int
	)

	save := func() {
		if currentPath == "" {
			return
		}
		if err := s.IndexDocument(collection, currentPath, currentContent.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error indexing %s: %v\n", currentPath, err)
		} else {
			count++
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		if match := headerRegex.FindStringSubmatch(line); len(match) > 2 {
			// A shorter fence inside an open block is document content
			if !inBlock || len(match[1]) >= len(currentFence) {
				if inBlock {
					save()
				}
				currentFence = match[1]
				currentPath = strings.TrimSpace(match[2])
				currentContent.Reset()
				inBlock = true
				continue
			}
		}

		if inBlock && strings.TrimSpace(line) == currentFence {
			save()
			inBlock = false
			currentPath = ""
			currentContent.Reset()
			continue
		}

		if inBlock {
			currentContent.WriteString(line)
			currentContent.WriteString("\n")
		}
	}

	// Unclosed final block still counts
	if inBlock {
		save()
	}

	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("error reading archive: %w", err)
	}
	return count, nil
}

// fenceFor returns a backtick fence longer than any backtick run opening a
// line of content, so the content cannot terminate its own block.
func fenceFor(content string) string {
	longest := 2
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		n := 0
		for n < len(trimmed) && trimmed[n] == '`' {
			n++
		}
		if n > longest {
			longest = n
		}
	}
	return strings.Repeat("`", longest+1)
}

// ExportBundle writes every document of a collection into a compressed
// bundle at archivePath, in the same format ImportBundle reads.
func ExportBundle(s *store.Store, collection, archivePath string) (int, error) {
	docs, err := s.ListDocuments()
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return 0, err
	}
	f, err := os.Create(archivePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	encoder, err := zstd.NewWriter(f)
	if err != nil {
		return 0, fmt.Errorf("failed to create zstd writer: %w", err)
	}

	count := 0
	for _, doc := range docs {
		if collection != "" && doc.Collection != collection {
			continue
		}
		content, err := s.GetDocument(doc.Collection, doc.Path)
		if err != nil {
			encoder.Close()
			return count, err
		}

		fence := fenceFor(content)
		fmt.Fprintf(encoder, "%smarkdown %s\n", fence, doc.Path)
		if _, err := encoder.Write([]byte(content)); err != nil {
			encoder.Close()
			return count, err
		}
		if !strings.HasSuffix(content, "\n") {
			fmt.Fprintln(encoder)
		}
		fmt.Fprintln(encoder, fence)
		count++
	}

	if err := encoder.Close(); err != nil {
		return count, err
	}
	return count, nil
}
