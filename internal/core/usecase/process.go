package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/citetrace/citetrace/internal/core/domain"
	"github.com/citetrace/citetrace/internal/core/ports"
)

// ProcessDocumentUseCase turns a stored document into its indexed chunk set.
// Pages are indexed strictly in page order so chunk indices and character
// offsets stay globally monotonic; the whole chunk set is replaced on
// re-processing, never patched.
type ProcessDocumentUseCase struct {
	repo    ports.DocumentRepository
	chunks  ports.ChunkRepository
	pages   ports.PageSource
	indexer ports.ChunkIndexer
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	chunks ports.ChunkRepository,
	pages ports.PageSource,
	indexer ports.ChunkIndexer,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:    repo,
		chunks:  chunks,
		pages:   pages,
		indexer: indexer,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	pageCount, chunkCount, err := uc.indexPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SetProcessed(ctx, documentID, pageCount, chunkCount); err != nil {
		return fmt.Errorf("record processed counts: %w", err)
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	return nil
}

func (uc *ProcessDocumentUseCase) indexPipeline(ctx context.Context, documentID string) (int, int, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch document by id: %w", err)
	}

	pages, err := uc.pages.Pages(ctx, doc)
	if err != nil {
		return 0, 0, fmt.Errorf("read document pages: %w", err)
	}
	if len(pages) == 0 {
		return 0, 0, domain.WrapError(domain.ErrInvalidInput, "read document pages", errors.New("document has no pages"))
	}

	chunks := uc.indexPages(pages)

	if err := uc.chunks.ReplaceAll(ctx, doc.ID, chunks); err != nil {
		return 0, 0, fmt.Errorf("replace chunk set: %w", err)
	}

	return len(pages), len(chunks), nil
}

// indexPages threads the running chunk index and character offset across
// pages; this is the one piece of state that must stay sequential.
func (uc *ProcessDocumentUseCase) indexPages(pages []ports.Page) []domain.TextChunk {
	var all []domain.TextChunk
	nextIndex, charOffset := 0, 0
	for _, page := range pages {
		chunks := uc.indexer.IndexPage(page, nextIndex, charOffset)
		if len(chunks) > 0 {
			last := chunks[len(chunks)-1]
			nextIndex = last.ChunkIndex + 1
			charOffset = last.CharEnd
		}
		all = append(all, chunks...)
	}
	return all
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
