package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/citetrace/citetrace/internal/core/domain"
)

func TestConsensusSaveRecordLiftsConflictFlags(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConsensusRepository(db)

	record := domain.ConsensusRecord{
		FieldName:           "sample_size",
		Value:               domain.StringValue("120"),
		AgreementLevel:      50,
		HasConflict:         true,
		RequiresHumanReview: true,
		ConflictTypes:       []domain.ConflictType{domain.ConflictSplitVote},
	}

	mock.ExpectExec("INSERT INTO consensus_records").
		WithArgs("ext-1", "doc-1", "sample_size", sqlmock.AnyArg(), true, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveRecord(context.Background(), "ext-1", "doc-1", record); err != nil {
		t.Fatalf("SaveRecord() error = %v", err)
	}
	expectMet(t, mock)
}

func TestConsensusListConflictsDerivesConflictView(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConsensusRepository(db)

	record := domain.ConsensusRecord{
		FieldName:      "sample_size",
		Value:          domain.StringValue("120"),
		AgreementLevel: 33.3,
		HasConflict:    true,
		ConflictTypes:  []domain.ConflictType{domain.ConflictValueDisagreement, domain.ConflictSplitVote},
		AllValues: []domain.FieldValue{
			domain.StringValue("120"), domain.StringValue("200"), domain.StringValue("90"),
		},
	}
	raw, _ := json.Marshal(record)

	mock.ExpectQuery("SELECT record").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow(raw))

	conflicts, err := repo.ListConflicts(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("ListConflicts() error = %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	conflict := conflicts[0]
	if conflict.Severity != domain.SeverityHigh || !conflict.RequiresHumanReview {
		t.Fatalf("unexpected conflict view: %+v", conflict)
	}
	if len(conflict.Values) != 3 {
		t.Fatalf("expected all values carried over: %+v", conflict.Values)
	}
	expectMet(t, mock)
}

func TestConsensusListConflictsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConsensusRepository(db)

	mock.ExpectQuery("SELECT record").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"record"}))

	conflicts, err := repo.ListConflicts(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("ListConflicts() error = %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %+v", conflicts)
	}
	expectMet(t, mock)
}
