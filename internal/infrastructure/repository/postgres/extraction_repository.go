package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/citetrace/citetrace/internal/core/domain"
)

type ExtractionRepository struct {
	db *sql.DB
}

func NewExtractionRepository(db *sql.DB) *ExtractionRepository {
	return &ExtractionRepository{db: db}
}

// Upsert replaces the extraction for (document, field, method) so a consensus
// re-run overwrites its previous answer instead of accumulating rows.
func (r *ExtractionRepository) Upsert(ctx context.Context, ext *domain.Extraction) error {
	citationJSON, err := marshalCitation(ext.SourceCitation)
	if err != nil {
		return err
	}

	row := r.db.QueryRowContext(ctx, `
INSERT INTO extractions (
	id, document_id, field_name, text, page, method, source_citations, confidence_score, validation_status, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (document_id, field_name, method) DO UPDATE SET
	text = EXCLUDED.text,
	page = EXCLUDED.page,
	source_citations = EXCLUDED.source_citations,
	confidence_score = EXCLUDED.confidence_score,
	validation_status = EXCLUDED.validation_status,
	updated_at = EXCLUDED.updated_at
RETURNING id
`,
		ext.ID, ext.DocumentID, ext.FieldName, ext.Text, ext.Page, ext.Method,
		citationJSON, ext.ConfidenceScore, string(ext.ValidationStatus), ext.CreatedAt, ext.UpdatedAt,
	)
	if err := row.Scan(&ext.ID); err != nil {
		return fmt.Errorf("upsert extraction: %w", err)
	}
	return nil
}

func (r *ExtractionRepository) GetByID(ctx context.Context, id string) (*domain.Extraction, error) {
	row := r.db.QueryRowContext(ctx, selectExtraction+`WHERE id = $1`, id)
	ext, err := scanExtraction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrExtractionNotFound, "get extraction", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return ext, nil
}

func (r *ExtractionRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.Extraction, error) {
	rows, err := r.db.QueryContext(ctx, selectExtraction+`WHERE document_id = $1 ORDER BY field_name`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	return collectExtractions(rows)
}

func (r *ExtractionRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Extraction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, selectExtraction+`WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list extractions by ids: %w", err)
	}
	return collectExtractions(rows)
}

func (r *ExtractionRepository) SaveValidation(
	ctx context.Context,
	id string,
	citation domain.SourceCitation,
	score float64,
	status domain.ValidationStatus,
) error {
	citationJSON, err := marshalCitation(&citation)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE extractions
SET source_citations = $2, confidence_score = $3, validation_status = $4, updated_at = $5
WHERE id = $1
`, id, citationJSON, score, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save validation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save validation rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrExtractionNotFound, "save validation", fmt.Errorf("id %s", id))
	}
	return nil
}

const selectExtraction = `
SELECT id, document_id, field_name, text, page, method, source_citations, confidence_score, validation_status, created_at, updated_at
FROM extractions
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExtraction(row rowScanner) (*domain.Extraction, error) {
	var ext domain.Extraction
	var citationRaw []byte
	var status string

	err := row.Scan(
		&ext.ID, &ext.DocumentID, &ext.FieldName, &ext.Text, &ext.Page, &ext.Method,
		&citationRaw, &ext.ConfidenceScore, &status, &ext.CreatedAt, &ext.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan extraction: %w", err)
	}

	if len(citationRaw) > 0 {
		var citation domain.SourceCitation
		if err := json.Unmarshal(citationRaw, &citation); err != nil {
			return nil, fmt.Errorf("unmarshal source citations: %w", err)
		}
		ext.SourceCitation = &citation
	}
	ext.ValidationStatus = domain.ValidationStatus(status)
	return &ext, nil
}

func collectExtractions(rows *sql.Rows) ([]domain.Extraction, error) {
	defer rows.Close()

	out := make([]domain.Extraction, 0)
	for rows.Next() {
		ext, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ext)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extractions: %w", err)
	}
	return out, nil
}

func marshalCitation(citation *domain.SourceCitation) ([]byte, error) {
	if citation == nil {
		return nil, nil
	}
	raw, err := json.Marshal(citation)
	if err != nil {
		return nil, fmt.Errorf("marshal source citations: %w", err)
	}
	return raw, nil
}
