package usecase

import (
	"context"
	"fmt"

	"github.com/citetrace/citetrace/internal/core/domain"
	"github.com/citetrace/citetrace/internal/core/ports"
)

// ReadDocumentUseCase is the read model behind the document endpoints.
type ReadDocumentUseCase struct {
	docs   ports.DocumentRepository
	chunks ports.ChunkRepository
}

func NewReadDocumentUseCase(docs ports.DocumentRepository, chunks ports.ChunkRepository) *ReadDocumentUseCase {
	return &ReadDocumentUseCase{docs: docs, chunks: chunks}
}

func (uc *ReadDocumentUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return uc.docs.GetByID(ctx, id)
}

func (uc *ReadDocumentUseCase) ListChunks(ctx context.Context, documentID string) ([]domain.TextChunk, error) {
	if _, err := uc.docs.GetByID(ctx, documentID); err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	return uc.chunks.ListByDocument(ctx, documentID)
}
