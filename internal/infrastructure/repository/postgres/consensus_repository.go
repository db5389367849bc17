package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/citetrace/citetrace/internal/core/domain"
)

type ConsensusRepository struct {
	db *sql.DB
}

func NewConsensusRepository(db *sql.DB) *ConsensusRepository {
	return &ConsensusRepository{db: db}
}

// SaveRecord stores the reduced answer for one field. The full record is kept
// as JSONB; conflict flags are lifted into columns for querying.
func (r *ConsensusRepository) SaveRecord(ctx context.Context, extractionID, documentID string, record domain.ConsensusRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal consensus record: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO consensus_records (
	extraction_id, document_id, field_name, record, has_conflict, requires_human_review, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (extraction_id, field_name) DO UPDATE SET
	document_id = EXCLUDED.document_id,
	record = EXCLUDED.record,
	has_conflict = EXCLUDED.has_conflict,
	requires_human_review = EXCLUDED.requires_human_review,
	created_at = EXCLUDED.created_at
`, extractionID, documentID, record.FieldName, recordJSON, record.HasConflict, record.RequiresHumanReview, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save consensus record: %w", err)
	}
	return nil
}

func (r *ConsensusRepository) ListConflicts(ctx context.Context, documentID string) ([]domain.ConflictRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT record
FROM consensus_records
WHERE document_id = $1 AND has_conflict = TRUE
ORDER BY field_name
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ConflictRecord, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan consensus record: %w", err)
		}
		var record domain.ConsensusRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("unmarshal consensus record: %w", err)
		}
		if conflict, ok := record.Conflict(); ok {
			out = append(out, conflict)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conflicts: %w", err)
	}
	return out, nil
}
