package ingest

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/serapieum/docent/internal/store"
	"github.com/serapieum/docent/internal/util"
)

// Extensions read by ReadDocuments. Everything else is skipped.
var textExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".rst":      true,
}

// ReadDocuments walks dir and returns a document per readable text file.
// Document IDs are sha256 hashes of the file content, and each document
// carries file metadata (path, name, type, size, modification date).
func ReadDocuments(dir string, recursive bool) ([]store.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("directory not found: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var docs []store.Document
	err = filepath.Walk(dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(fi.Name()))
		if !textExtensions[ext] {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		fileType := mime.TypeByExtension(ext)
		if fileType == "" {
			fileType = "text/plain"
		}

		docs = append(docs, store.Document{
			Path:    relPath,
			Content: string(content),
			Hash:    util.HashContent(string(content)),
			Title:   util.ExtractTitle(string(content), relPath),
			Meta: map[string]string{
				"file_path":          path,
				"file_name":          fi.Name(),
				"file_type":          fileType,
				"file_size":          fmt.Sprint(fi.Size()),
				"last_modified_date": fi.ModTime().Format("2006-01-02"),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
