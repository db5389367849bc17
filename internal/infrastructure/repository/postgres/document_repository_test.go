package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/citetrace/citetrace/internal/core/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentGetByIDReturnsDomainNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)

	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestDocumentGetByIDScansRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "filename", "mime_type", "storage_path", "page_count", "chunk_count",
		"status", "error_message", "created_at", "updated_at",
	}).AddRow("doc-1", "paper.pdf", "application/pdf", "documents/doc-1/paper.pdf", 12, 340, "ready", "", now, now)

	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.Status != domain.StatusReady || doc.PageCount != 12 || doc.ChunkCount != 340 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	expectMet(t, mock)
}

func TestDocumentUpdateStatusReturnsNotFoundWhenNoRowsAffected(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusProcessing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, "")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestDocumentSetProcessedUpdatesCounts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", 12, 340, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetProcessed(context.Background(), "doc-1", 12, 340); err != nil {
		t.Fatalf("SetProcessed() error = %v", err)
	}
	expectMet(t, mock)
}

func TestDocumentCreateInsertsRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:          "doc-1",
		Filename:    "paper.pdf",
		MimeType:    "application/pdf",
		StoragePath: "documents/doc-1/paper.pdf",
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs("doc-1", "paper.pdf", "application/pdf", "documents/doc-1/paper.pdf", 0, 0, string(domain.StatusUploaded), "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	expectMet(t, mock)
}
