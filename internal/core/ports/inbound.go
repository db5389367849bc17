package ports

import (
	"context"
	"io"

	"github.com/citetrace/citetrace/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous page indexing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document metadata and chunks.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListChunks(ctx context.Context, documentID string) ([]domain.TextChunk, error)
}

// ConsensusRunner runs one multi-reviewer extraction over a document.
type ConsensusRunner interface {
	Run(ctx context.Context, documentID string, fields []FieldSpec) (*domain.ConsensusRun, error)
}

// CitationValidator validates stored citations against their extracted values.
type CitationValidator interface {
	ValidateDocument(ctx context.Context, documentID string) (*domain.ValidationSummary, error)
	ValidateExtractions(ctx context.Context, extractionIDs []string) (*domain.ValidationSummary, error)
}
