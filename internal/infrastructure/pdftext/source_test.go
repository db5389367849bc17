package pdftext

import (
	"testing"

	"github.com/ledongthuc/pdf"
)

func run(s string, x, y, w float64) pdf.Text {
	return pdf.Text{Font: "Times", FontSize: 10, S: s, X: x, Y: y, W: w}
}

func TestLineFragmentsMergesRunsPerLine(t *testing.T) {
	fragments := lineFragments([]pdf.Text{
		run("Hello", 10, 700, 25),
		run("world.", 40, 700, 30),
		run("Second", 10, 686, 35),
		run("line.", 50, 686, 22),
	})
	if len(fragments) != 2 {
		t.Fatalf("expected 2 line fragments, got %d: %+v", len(fragments), fragments)
	}
	if fragments[0].Text != "Hello world." {
		t.Fatalf("unexpected first line %q", fragments[0].Text)
	}
	if fragments[1].Text != "Second line." {
		t.Fatalf("unexpected second line %q", fragments[1].Text)
	}
	if fragments[0].Y != 700 || fragments[1].Y != 686 {
		t.Fatalf("lines out of reading order: %+v", fragments)
	}
}

func TestLineFragmentsJoinsAdjacentRunsWithoutSpace(t *testing.T) {
	fragments := lineFragments([]pdf.Text{
		run("hyphen", 10, 500, 30),
		run("ated", 40, 500, 20),
	})
	if len(fragments) != 1 || fragments[0].Text != "hyphenated" {
		t.Fatalf("expected glued runs, got %+v", fragments)
	}
}

func TestLineFragmentsSortsOutOfOrderRuns(t *testing.T) {
	fragments := lineFragments([]pdf.Text{
		run("tail", 40, 300, 20),
		run("head", 10, 320, 22),
	})
	if len(fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %+v", fragments)
	}
	if fragments[0].Text != "head" || fragments[1].Text != "tail" {
		t.Fatalf("expected top-down order, got %+v", fragments)
	}
}

func TestLineFragmentsGeometry(t *testing.T) {
	fragments := lineFragments([]pdf.Text{
		run("a", 10, 100, 5),
		run("b", 20, 100, 5),
	})
	if len(fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %+v", fragments)
	}
	f := fragments[0]
	if f.X != 10 || f.Width != 15 || f.Height != 10 || f.FontSize != 10 {
		t.Fatalf("unexpected geometry: %+v", f)
	}
}

func TestLineFragmentsEmptyInput(t *testing.T) {
	if got := lineFragments(nil); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}
