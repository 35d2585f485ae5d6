package util

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
)

// HashContent returns the sha256 hex digest of content.
// Document IDs are derived from content, so identical text maps to one doc.
func HashContent(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

var (
	h1Re = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	h2Re = regexp.MustCompile(`(?m)^##\s+(.+)$`)
)

// ExtractTitle finds a title for a document: first H1, then H2,
// falling back to the file name without extension.
func ExtractTitle(content, filename string) string {
	if match := h1Re.FindStringSubmatch(content); len(match) > 1 {
		return strings.TrimSpace(match[1])
	}
	if match := h2Re.FindStringSubmatch(content); len(match) > 1 {
		return strings.TrimSpace(match[1])
	}
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Ellipsis truncates s to at most n runes, appending "..." when cut.
func Ellipsis(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
