package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/citetrace/citetrace/internal/core/domain"
)

func TestChunkReplaceAllIsTransactional(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChunkRepository(db)

	chunks := []domain.TextChunk{
		{ChunkIndex: 0, Text: "First sentence.", PageNum: 1, CharStart: 0, CharEnd: 15},
		{ChunkIndex: 1, Text: "Second sentence.", PageNum: 1, CharStart: 15, CharEnd: 31},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM document_chunks").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	for _, chunk := range chunks {
		mock.ExpectExec("INSERT INTO document_chunks").
			WithArgs("doc-1", chunk.ChunkIndex, chunk.Text, chunk.PageNum, sqlmock.AnyArg(),
				chunk.FontName, chunk.FontSize, chunk.IsHeading, chunk.IsBold,
				chunk.Confidence, chunk.CharStart, chunk.CharEnd).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	if err := repo.ReplaceAll(context.Background(), "doc-1", chunks); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	expectMet(t, mock)
}

func TestChunkReplaceAllRollsBackOnInsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChunkRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM document_chunks").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO document_chunks").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.ReplaceAll(context.Background(), "doc-1", []domain.TextChunk{{ChunkIndex: 0, Text: "x"}})
	if err == nil {
		t.Fatalf("expected error")
	}
	expectMet(t, mock)
}

func TestChunkListByDocumentOrdersByIndex(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChunkRepository(db)

	bbox, _ := json.Marshal(domain.BBox{X: 10, Y: 20, Width: 100, Height: 12})
	rows := sqlmock.NewRows([]string{
		"chunk_index", "text", "page_num", "bbox", "font_name", "font_size",
		"is_heading", "is_bold", "confidence", "char_start", "char_end",
	}).
		AddRow(0, "First sentence.", 1, bbox, "Times", 10.0, false, false, 1.0, 0, 15).
		AddRow(1, "Second sentence.", 2, bbox, "Times", 10.0, false, false, 1.0, 15, 31)

	mock.ExpectQuery("SELECT chunk_index, text, page_num").
		WithArgs("doc-1").
		WillReturnRows(rows)

	chunks, err := repo.ListByDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("ListByDocument() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ChunkIndex != 0 || chunks[1].ChunkIndex != 1 {
		t.Fatalf("unexpected order: %+v", chunks)
	}
	if chunks[0].BBox.Width != 100 {
		t.Fatalf("bbox not decoded: %+v", chunks[0].BBox)
	}
	expectMet(t, mock)
}
