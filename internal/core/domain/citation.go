package domain

import (
	"fmt"
	"strings"
)

// CitedChunk is the read-only view of a chunk kept in a CitationMap.
type CitedChunk struct {
	Text       string  `json:"text"`
	PageNum    int     `json:"page_num"`
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// CitationMap resolves a chunk index back to its content and geometry.
// Built once per document and read-only afterward; safe to share across
// concurrent validators.
type CitationMap map[int]CitedChunk

// BuildCitationMap produces one entry per chunk keyed by its index.
// Pure and total: empty input yields an empty map.
func BuildCitationMap(chunks []TextChunk) CitationMap {
	m := make(CitationMap, len(chunks))
	for _, c := range chunks {
		m[c.ChunkIndex] = CitedChunk{
			Text:       c.Text,
			PageNum:    c.PageNum,
			BBox:       c.BBox,
			Confidence: c.Confidence,
		}
	}
	return m
}

// CitableDocument renders "[index] text" per chunk joined by newlines, in
// chunk order. This is the exact representation handed to reviewers, so their
// answers can cite chunk indices.
func CitableDocument(chunks []TextChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%d] %s", c.ChunkIndex, c.Text)
	}
	return b.String()
}
