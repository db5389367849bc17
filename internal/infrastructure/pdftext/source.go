package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/ledongthuc/pdf"

	"github.com/citetrace/citetrace/internal/core/domain"
	"github.com/citetrace/citetrace/internal/core/ports"
)

// letterHeight is the US Letter page height in points, used when a page
// carries no resolvable MediaBox.
const letterHeight = 792.0

// wordGapFactor scales the font size to decide whether two glyph runs on the
// same line are separated by a word break.
const wordGapFactor = 0.3

// Source renders stored PDF documents into positioned text fragments, one
// fragment per text line in reading order.
type Source struct {
	storage ports.ObjectStorage
}

func NewSource(storage ports.ObjectStorage) *Source {
	return &Source{storage: storage}
}

func (s *Source) Pages(ctx context.Context, doc *domain.Document) ([]ports.Page, error) {
	reader, err := s.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse pdf", err)
	}

	pages := make([]ports.Page, 0, r.NumPage())
	for num := 1; num <= r.NumPage(); num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(num)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, ports.Page{
			PageNum:   num,
			Height:    pageHeight(page),
			Fragments: lineFragments(page.Content().Text),
		})
	}
	return pages, nil
}

// pageHeight resolves the page MediaBox, walking up the page tree for
// inherited boxes.
func pageHeight(page pdf.Page) float64 {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.IsNull() || box.Len() < 4 {
			continue
		}
		h := box.Index(3).Float64() - box.Index(1).Float64()
		if h > 0 {
			return h
		}
	}
	return letterHeight
}

// lineFragments merges glyph runs into one fragment per visual line. Runs on
// the same baseline are joined left to right, with a space inserted wherever
// the horizontal gap exceeds the word-break threshold.
func lineFragments(texts []pdf.Text) []domain.TextFragment {
	if len(texts) == 0 {
		return nil
	}
	runs := append([]pdf.Text(nil), texts...)
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Y != runs[j].Y {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})

	var fragments []domain.TextFragment
	var line bytes.Buffer
	var cur domain.TextFragment
	var lastEnd float64

	flush := func() {
		if line.Len() == 0 {
			return
		}
		cur.Text = line.String()
		cur.Width = lastEnd - cur.X
		fragments = append(fragments, cur)
		line.Reset()
	}

	for _, run := range runs {
		if line.Len() == 0 || run.Y != cur.Y {
			flush()
			cur = domain.TextFragment{
				X:        run.X,
				Y:        run.Y,
				Height:   run.FontSize,
				FontName: run.Font,
				FontSize: run.FontSize,
			}
		} else if gap := run.X - lastEnd; gap > wordGapFactor*cur.FontSize {
			line.WriteByte(' ')
		}
		line.WriteString(run.S)
		lastEnd = run.X + run.W
	}
	flush()
	return fragments
}
