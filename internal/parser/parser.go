// Package parser turns uploaded files into address records. Each format
// reduces to the same thing: one free-form address string per record, with
// optional pre-classified entities when the source carries them.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/zhongyd/addrnorm/internal/addr"
)

// Parser converts raw file bytes into address records.
type Parser interface {
	Parse(r io.Reader, filename string) ([]addr.Record, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":   true,
	".jsonl": true,
	".csv":   true,
	".md":    true,
	".html":  true,
	".htm":   true,
	".pdf":   true,
	".docx":  true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".jsonl":
		return &JSONLParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// recordsFromLines trims each line and keeps the non-empty ones as address
// records. Shared by the formats that reduce to plain text.
func recordsFromLines(lines []string) []addr.Record {
	var records []addr.Record
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		records = append(records, addr.Record{Address: line})
	}
	return records
}
