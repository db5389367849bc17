package chunking

import (
	"math"
	"strings"

	"github.com/citetrace/citetrace/internal/core/domain"
	"github.com/citetrace/citetrace/internal/core/ports"
)

const headingFontSize = 14

// SentenceIndexer accumulates positioned fragments into sentence-level chunks
// with stable indices and contiguous character ranges.
type SentenceIndexer struct{}

func NewSentenceIndexer() *SentenceIndexer {
	return &SentenceIndexer{}
}

// IndexPage converts one page of fragments into chunks. nextIndex and
// charOffset are the running counters carried over from prior pages; the
// caller advances them from the returned chunks.
func (s *SentenceIndexer) IndexPage(page ports.Page, nextIndex, charOffset int) []domain.TextChunk {
	var chunks []domain.TextChunk
	var buffer []domain.TextFragment

	flush := func() {
		chunk, ok := buildChunk(buffer, page, nextIndex, charOffset)
		buffer = buffer[:0]
		if !ok {
			return
		}
		chunks = append(chunks, chunk)
		nextIndex++
		charOffset = chunk.CharEnd
	}

	for _, frag := range page.Fragments {
		buffer = append(buffer, frag)
		if endsSentence(frag.Text) {
			flush()
		}
	}
	flush()

	return chunks
}

// endsSentence reports whether the fragment text terminates a sentence:
// a '.', '!' or '?' optionally followed by whitespace. Whitespace-only
// fragments never end a sentence.
func endsSentence(text string) bool {
	trimmed := strings.TrimRight(text, " \t\r\n")
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	default:
		return false
	}
}

func buildChunk(buffer []domain.TextFragment, page ports.Page, index, charStart int) (domain.TextChunk, bool) {
	var sb strings.Builder
	for _, frag := range buffer {
		sb.WriteString(frag.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return domain.TextChunk{}, false
	}

	first := firstVisible(buffer)
	fontName := strings.ToLower(first.FontName)

	return domain.TextChunk{
		ChunkIndex: index,
		Text:       text,
		PageNum:    page.PageNum,
		BBox:       envelope(buffer, page.Height),
		FontName:   first.FontName,
		FontSize:   first.FontSize,
		IsHeading:  first.FontSize > headingFontSize || strings.Contains(fontName, "heading"),
		IsBold:     strings.Contains(fontName, "bold"),
		Confidence: 1.0,
		CharStart:  charStart,
		CharEnd:    charStart + len([]rune(text)),
	}, true
}

// firstVisible picks the typographic source of the chunk: the first fragment
// carrying any non-whitespace text.
func firstVisible(buffer []domain.TextFragment) domain.TextFragment {
	for _, frag := range buffer {
		if strings.TrimSpace(frag.Text) != "" {
			return frag
		}
	}
	return buffer[0]
}

// envelope computes the min/max bounding box of the buffered fragments,
// flipping the Y axis to top-down using the page height. Malformed geometry
// degrades to a zero-size box instead of failing the page.
func envelope(buffer []domain.TextFragment, pageHeight float64) domain.BBox {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	valid := false
	for _, frag := range buffer {
		if !finite(frag.X) || !finite(frag.Y) {
			continue
		}
		w, h := frag.Width, frag.Height
		if !finite(w) || w < 0 {
			w = 0
		}
		if !finite(h) || h < 0 {
			h = 0
		}

		// Flip bottom-left PDF coordinates to top-down page space.
		top := pageHeight - frag.Y - h
		minX = math.Min(minX, frag.X)
		maxX = math.Max(maxX, frag.X+w)
		minY = math.Min(minY, top)
		maxY = math.Max(maxY, top+h)
		valid = true
	}
	if !valid {
		return domain.BBox{}
	}

	return domain.BBox{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IndexDocument runs the indexer over all pages in page order, threading the
// chunk index and character offset so both stay globally monotonic.
func IndexDocument(indexer ports.ChunkIndexer, pages []ports.Page) []domain.TextChunk {
	var all []domain.TextChunk
	nextIndex, charOffset := 0, 0
	for _, page := range pages {
		chunks := indexer.IndexPage(page, nextIndex, charOffset)
		if len(chunks) > 0 {
			last := chunks[len(chunks)-1]
			nextIndex = last.ChunkIndex + 1
			charOffset = last.CharEnd
		}
		all = append(all, chunks...)
	}
	return all
}
