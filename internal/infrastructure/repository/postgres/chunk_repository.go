package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/citetrace/citetrace/internal/core/domain"
)

type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// ReplaceAll swaps the whole chunk set of a document in one transaction, so
// readers never observe a partially indexed document.
func (r *ChunkRepository) ReplaceAll(ctx context.Context, documentID string, chunks []domain.TextChunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	const insert = `
INSERT INTO document_chunks (
	document_id, chunk_index, text, page_num, bbox, font_name, font_size, is_heading, is_bold, confidence, char_start, char_end
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`
	for _, chunk := range chunks {
		bboxJSON, err := json.Marshal(chunk.BBox)
		if err != nil {
			return fmt.Errorf("marshal bbox: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert,
			documentID, chunk.ChunkIndex, chunk.Text, chunk.PageNum, bboxJSON,
			chunk.FontName, chunk.FontSize, chunk.IsHeading, chunk.IsBold,
			chunk.Confidence, chunk.CharStart, chunk.CharEnd,
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.TextChunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT chunk_index, text, page_num, bbox, font_name, font_size, is_heading, is_bold, confidence, char_start, char_end
FROM document_chunks
WHERE document_id = $1
ORDER BY chunk_index
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.TextChunk, 0)
	for rows.Next() {
		var chunk domain.TextChunk
		var bboxRaw []byte
		if err := rows.Scan(
			&chunk.ChunkIndex, &chunk.Text, &chunk.PageNum, &bboxRaw,
			&chunk.FontName, &chunk.FontSize, &chunk.IsHeading, &chunk.IsBold,
			&chunk.Confidence, &chunk.CharStart, &chunk.CharEnd,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if err := json.Unmarshal(bboxRaw, &chunk.BBox); err != nil {
			return nil, fmt.Errorf("unmarshal bbox: %w", err)
		}
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}
