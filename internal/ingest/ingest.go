// Package ingest turns e-book files into ordered chapter texts plus a table
// of contents.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxUploadSize is the largest document accepted over HTTP.
const MaxUploadSize = 10 << 20 // 10 MB

var (
	// ErrUnsupportedFormat is returned for file types Open cannot read.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrNoChapters is returned when a document yields no text at all.
	ErrNoChapters = errors.New("document contains no chapter text")
)

// Document is an ingested book.
type Document struct {
	Title    string   `json:"title"`
	Chapters []string `json:"chapters"`
	TOC      []string `json:"toc"`
}

// Open reads the document at path, choosing the reader by extension:
// .epub, or .txt/.md/.markdown for plain text.
func Open(path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		return OpenEPUB(path)
	case ".txt", ".md", ".markdown":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadText(f, TitleFromPath(path))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

var numericSuffix = regexp.MustCompile(`[-_ ]\d+$`)

// TitleFromPath extracts a title from a filename.
// e.g., "the-long-road.epub" -> "the-long-road"
// e.g., "notes_2.txt" -> "notes"
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return numericSuffix.ReplaceAllString(name, "")
}
