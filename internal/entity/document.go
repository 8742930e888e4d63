package entity

import (
	"strings"

	"github.com/google/uuid"
)

// Document is the immutable pipeline input: raw bytes plus identity.
// It is created at ingestion and read-only afterward.
type Document struct {
	ID         uuid.UUID
	SourcePath string
	MediaType  string
	Content    []byte
	PageCount  int // 0 when unknown (images, plain text)
}

// Block is one unit of recognized text with optional layout metadata.
type Block struct {
	Text        string `json:"text"`
	Page        int    `json:"page"`
	Region      string `json:"region,omitempty"`
	IsTableCell bool   `json:"is_table_cell,omitempty"`
	TableIndex  int    `json:"table_index,omitempty"` // 1-based when IsTableCell
}

// RawText is the ordered OCR output for a document. Ownership transfers to
// the next stage on hand-off; it is never mutated afterward.
type RawText struct {
	Blocks []Block
}

// Text joins all block contents in document order.
func (r RawText) Text() string {
	parts := make([]string, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n")
}

// TableCount returns the number of distinct tables referenced by layout hints.
func (r RawText) TableCount() int {
	seen := map[int]struct{}{}
	for _, b := range r.Blocks {
		if b.IsTableCell && b.TableIndex > 0 {
			seen[b.TableIndex] = struct{}{}
		}
	}
	return len(seen)
}

// StructuredMarkdown is the normalized markdown rendition of a document:
// headings, tables and key:value lines.
type StructuredMarkdown struct {
	Content string
}
