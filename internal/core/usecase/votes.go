package usecase

import (
	"fmt"

	"github.com/citetrace/citetrace/internal/core/domain"
)

// agreementThresholds are the parity-aware cutoffs. Even reviewer counts get
// their own threshold because ties cannot be broken cleanly with an even
// split; both values come from configuration, not constants.
type agreementThresholds struct {
	Even float64
	Odd  float64
}

func (t agreementThresholds) forCount(n int) (float64, domain.ReviewerParity) {
	if n%2 == 0 {
		return t.Even, domain.ParityEven
	}
	return t.Odd, domain.ParityOdd
}

type fieldVote struct {
	value      domain.FieldValue
	reviewerID string
	confidence float64
}

// reduceField collapses the per-reviewer answers for one field into a single
// consensus record. reviews must already be sorted in reviewer-priority order:
// vote-count ties resolve to the value seen first in that order, which keeps
// re-runs reproducible.
func reduceField(fieldName string, reviews []domain.ReviewResult, thresholds agreementThresholds) domain.ConsensusRecord {
	var votes []fieldVote
	for _, r := range reviews {
		if r.Failed() {
			continue
		}
		v, ok := r.Data[fieldName]
		if !ok || v.IsNull() {
			continue
		}
		votes = append(votes, fieldVote{value: v, reviewerID: r.ReviewerID, confidence: r.Confidence})
	}

	record := domain.ConsensusRecord{
		FieldName: fieldName,
		Value:     domain.NullValue(),
	}
	if len(votes) == 0 {
		// Nothing to disagree about: unresolved, not conflicted.
		record.Threshold, record.ReviewerParity = thresholds.forCount(0)
		return record
	}

	distinct, winner := tallyVotes(votes)
	total := len(votes)

	record.Value = winner.value
	record.AgreeingCount = winner.count
	record.TotalCount = total
	record.AgreementLevel = float64(winner.count) / float64(total) * 100
	record.AllValues = distinct
	record.Confidences = make([]float64, 0, total)
	for _, v := range votes {
		record.Confidences = append(record.Confidences, v.confidence)
	}

	threshold, parity := thresholds.forCount(total)
	record.Threshold = threshold
	record.ReviewerParity = parity

	agreementRatio := float64(winner.count) / float64(total)
	record.RequiresHumanReview = agreementRatio < threshold

	// Two reviewers who disagree can never produce statistical confidence,
	// whatever the configured threshold says.
	if total == 2 && winner.count < 2 {
		record.RequiresHumanReview = true
		record.ConflictReason = "two reviewers disagree with no majority possible"
	}

	record.HasConflict = record.AgreementLevel < 80 ||
		len(distinct) > 2 ||
		record.RequiresHumanReview

	if record.HasConflict {
		record.ConflictTypes = classifyConflict(record)
		if record.ConflictReason == "" {
			record.ConflictReason = fmt.Sprintf(
				"%d of %d reviewers agree on %q (%.1f%% agreement, %d distinct values)",
				winner.count, total, winner.value.String(), record.AgreementLevel, len(distinct),
			)
		}
	}

	return record
}

type voteCount struct {
	value domain.FieldValue
	count int
}

// tallyVotes counts occurrences of each structurally distinct value. The
// winner is the highest count; ties keep the value encountered first.
func tallyVotes(votes []fieldVote) ([]domain.FieldValue, voteCount) {
	var counts []voteCount
	for _, v := range votes {
		found := false
		for i := range counts {
			if counts[i].value.Equal(v.value) {
				counts[i].count++
				found = true
				break
			}
		}
		if !found {
			counts = append(counts, voteCount{value: v.value, count: 1})
		}
	}

	winner := counts[0]
	for _, c := range counts[1:] {
		if c.count > winner.count {
			winner = c
		}
	}

	distinct := make([]domain.FieldValue, 0, len(counts))
	for _, c := range counts {
		distinct = append(distinct, c.value)
	}
	return distinct, winner
}

// confidenceVarianceLimit is the population-variance cutoff on the 0-100
// confidence scale above which reviewer self-assessments are considered
// unstable (standard deviation > 20).
const confidenceVarianceLimit = 400

func classifyConflict(record domain.ConsensusRecord) []domain.ConflictType {
	var types []domain.ConflictType
	if len(record.AllValues) > 2 {
		types = append(types, domain.ConflictValueDisagreement)
	}
	if populationVariance(record.Confidences) > confidenceVarianceLimit {
		types = append(types, domain.ConflictConfidenceVariance)
	}
	if record.AgreementLevel < 60 {
		types = append(types, domain.ConflictSplitVote)
	}
	return types
}

func populationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var acc float64
	for _, v := range values {
		d := v - mean
		acc += d * d
	}
	return acc / float64(len(values))
}
