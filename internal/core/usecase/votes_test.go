package usecase

import (
	"testing"

	"github.com/citetrace/citetrace/internal/core/domain"
)

func review(id string, confidence float64, values map[string]domain.FieldValue) domain.ReviewResult {
	return domain.ReviewResult{ReviewerID: id, Data: values, Confidence: confidence}
}

func stringReviews(field string, confidence float64, answers ...string) []domain.ReviewResult {
	out := make([]domain.ReviewResult, 0, len(answers))
	for i, a := range answers {
		out = append(out, review(string(rune('a'+i)), confidence, map[string]domain.FieldValue{field: domain.StringValue(a)}))
	}
	return out
}

var testThresholds = agreementThresholds{Even: 0.75, Odd: 0.66}

func TestReduceFieldMajorityWins(t *testing.T) {
	record := reduceField("sample_size", stringReviews("sample_size", 90, "A", "A", "B"), testThresholds)

	if !record.Value.Equal(domain.StringValue("A")) {
		t.Fatalf("expected consensus A, got %+v", record.Value)
	}
	if record.AgreeingCount != 2 || record.TotalCount != 3 {
		t.Fatalf("expected 2/3 agreement, got %d/%d", record.AgreeingCount, record.TotalCount)
	}
	if record.AgreementLevel < 66.6 || record.AgreementLevel > 66.7 {
		t.Fatalf("expected agreement ~66.7, got %v", record.AgreementLevel)
	}
	if record.ReviewerParity != domain.ParityOdd || record.Threshold != 0.66 {
		t.Fatalf("expected odd parity with odd threshold, got %s/%v", record.ReviewerParity, record.Threshold)
	}
}

func TestReduceFieldTwoReviewerDisagreementAlwaysFlagged(t *testing.T) {
	// Permissive thresholds must not rescue a 2-way split.
	record := reduceField("title", stringReviews("title", 90, "A", "B"), agreementThresholds{Even: 0.1, Odd: 0.1})

	if !record.RequiresHumanReview {
		t.Fatalf("expected human review for two disagreeing reviewers")
	}
	if record.ConflictReason == "" {
		t.Fatalf("expected explicit conflict reason")
	}
	if !record.HasConflict {
		t.Fatalf("expected conflict flag")
	}
}

func TestReduceFieldNoValues(t *testing.T) {
	reviews := []domain.ReviewResult{
		review("a", 80, map[string]domain.FieldValue{"other": domain.StringValue("x")}),
		review("b", 70, map[string]domain.FieldValue{"doi": domain.NullValue()}),
		{ReviewerID: "c", Err: "timeout"},
	}
	record := reduceField("doi", reviews, testThresholds)

	if !record.Value.IsNull() {
		t.Fatalf("expected null consensus, got %+v", record.Value)
	}
	if record.AgreementLevel != 0 || record.TotalCount != 0 {
		t.Fatalf("expected zero agreement over zero values, got %+v", record)
	}
	if record.HasConflict || record.RequiresHumanReview {
		t.Fatalf("nothing to disagree about: %+v", record)
	}
}

func TestReduceFieldAbstentionsExcludedFromDenominator(t *testing.T) {
	reviews := []domain.ReviewResult{
		review("a", 90, map[string]domain.FieldValue{"journal": domain.StringValue("Nature")}),
		review("b", 90, map[string]domain.FieldValue{"journal": domain.NullValue()}),
		review("c", 90, map[string]domain.FieldValue{"journal": domain.StringValue("Nature")}),
	}
	record := reduceField("journal", reviews, testThresholds)

	if record.TotalCount != 2 {
		t.Fatalf("expected abstention excluded, total 2, got %d", record.TotalCount)
	}
	if record.AgreementLevel != 100 {
		t.Fatalf("expected 100%% agreement among answering reviewers, got %v", record.AgreementLevel)
	}
}

func TestReduceFieldTieKeepsFirstInPriorityOrder(t *testing.T) {
	record := reduceField("year", stringReviews("year", 80, "B", "A", "B", "A"), testThresholds)

	if !record.Value.Equal(domain.StringValue("B")) {
		t.Fatalf("expected tie to resolve to first-seen value B, got %+v", record.Value)
	}
}

func TestReduceFieldValueDisagreement(t *testing.T) {
	record := reduceField("authors", stringReviews("authors", 80, "A", "B", "C", "D"), testThresholds)

	if !record.HasConflict {
		t.Fatalf("expected conflict with 4 distinct values")
	}
	if !hasConflictType(record.ConflictTypes, domain.ConflictValueDisagreement) {
		t.Fatalf("expected value_disagreement, got %v", record.ConflictTypes)
	}

	conflict, ok := record.Conflict()
	if !ok {
		t.Fatalf("expected derived conflict record")
	}
	if conflict.Severity == domain.SeverityLow {
		t.Fatalf("expected severity at least medium, got %s", conflict.Severity)
	}
	if len(conflict.Values) != 4 {
		t.Fatalf("expected 4 distinct values recorded, got %d", len(conflict.Values))
	}
}

func TestReduceFieldConfidenceVarianceEscalatesToHigh(t *testing.T) {
	reviews := []domain.ReviewResult{
		review("a", 95, map[string]domain.FieldValue{"n": domain.StringValue("A")}),
		review("b", 20, map[string]domain.FieldValue{"n": domain.StringValue("A")}),
		review("c", 95, map[string]domain.FieldValue{"n": domain.StringValue("B")}),
	}
	record := reduceField("n", reviews, testThresholds)

	if !hasConflictType(record.ConflictTypes, domain.ConflictConfidenceVariance) {
		t.Fatalf("expected confidence_variance, got %v", record.ConflictTypes)
	}
	conflict, _ := record.Conflict()
	if conflict.Severity != domain.SeverityHigh {
		t.Fatalf("expected high severity, got %s", conflict.Severity)
	}
	if !conflict.RequiresHumanReview {
		t.Fatalf("conflict record must mirror high severity into human review")
	}
}

func TestReduceFieldSplitVoteEscalatesToHigh(t *testing.T) {
	record := reduceField("f", stringReviews("f", 80, "A", "B", "C"), testThresholds)

	if !hasConflictType(record.ConflictTypes, domain.ConflictSplitVote) {
		t.Fatalf("expected split_vote below 60%% agreement, got %v", record.ConflictTypes)
	}
	conflict, _ := record.Conflict()
	if conflict.Severity != domain.SeverityHigh {
		t.Fatalf("expected high severity, got %s", conflict.Severity)
	}
}

func TestDeriveConflictNoneWithoutConflict(t *testing.T) {
	record := reduceField("f", stringReviews("f", 90, "A", "A", "A"), testThresholds)
	if record.HasConflict {
		t.Fatalf("unanimous field must not conflict: %+v", record)
	}
	if _, ok := record.Conflict(); ok {
		t.Fatalf("expected no derived conflict")
	}
}

func TestPopulationVariance(t *testing.T) {
	if v := populationVariance(nil); v != 0 {
		t.Fatalf("expected 0 for empty input, got %v", v)
	}
	if v := populationVariance([]float64{50, 50, 50}); v != 0 {
		t.Fatalf("expected 0 for constant input, got %v", v)
	}
	// {90, 30}: mean 60, deviations ±30, population variance 900.
	if v := populationVariance([]float64{90, 30}); v != 900 {
		t.Fatalf("expected 900, got %v", v)
	}
}

func hasConflictType(types []domain.ConflictType, want domain.ConflictType) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
