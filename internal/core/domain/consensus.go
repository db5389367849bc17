package domain

import "time"

// ReviewerConfig is one configured extractor identity. The pool is loaded from
// configuration and passed into each run; there is no process-wide registry.
type ReviewerConfig struct {
	ID          string  `yaml:"id" json:"id"`
	Model       string  `yaml:"model" json:"model"`
	Prompt      string  `yaml:"prompt" json:"prompt,omitempty"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	Priority    int     `yaml:"priority" json:"priority"`
	Enabled     bool    `yaml:"enabled" json:"enabled"`
}

// ReviewResult is one reviewer's answer for one extraction task. Err is set in
// place of Data/Confidence when the reviewer failed or timed out.
type ReviewResult struct {
	ReviewerID     string                `json:"reviewer_id"`
	Data           map[string]FieldValue `json:"data,omitempty"`
	Citations      map[string][]int      `json:"citations,omitempty"`
	Confidence     float64               `json:"confidence"`
	Reasoning      string                `json:"reasoning,omitempty"`
	SourceText     string                `json:"source_text,omitempty"`
	ProcessingTime time.Duration         `json:"processing_time_ms"`
	Err            string                `json:"error,omitempty"`
}

func (r ReviewResult) Failed() bool { return r.Err != "" }

type ReviewerParity string

const (
	ParityEven ReviewerParity = "even"
	ParityOdd  ReviewerParity = "odd"
)

type ConflictType string

const (
	ConflictValueDisagreement  ConflictType = "value_disagreement"
	ConflictConfidenceVariance ConflictType = "confidence_variance"
	ConflictSplitVote          ConflictType = "split_vote"
)

type ConflictSeverity string

const (
	SeverityLow    ConflictSeverity = "low"
	SeverityMedium ConflictSeverity = "medium"
	SeverityHigh   ConflictSeverity = "high"
)

// ConsensusRecord is the reduced answer for one field across all reviewers.
// Created fresh per run; a re-run replaces the stored row.
type ConsensusRecord struct {
	FieldName           string           `json:"field_name"`
	Value               FieldValue       `json:"value"`
	AgreementLevel      float64          `json:"agreement_level"`
	AgreeingCount       int              `json:"agreeing_count"`
	TotalCount          int              `json:"total_count"`
	HasConflict         bool             `json:"has_conflict"`
	ConflictTypes       []ConflictType   `json:"conflict_types,omitempty"`
	RequiresHumanReview bool             `json:"requires_human_review"`
	Threshold           float64          `json:"threshold"`
	ReviewerParity      ReviewerParity   `json:"reviewer_parity"`
	ConflictReason      string           `json:"conflict_reason,omitempty"`
	AllValues           []FieldValue     `json:"all_values,omitempty"`
	Confidences         []float64        `json:"confidences,omitempty"`
}

// Conflict builds the reviewer-facing conflict view over a conflicted
// record. Severity: low by default, medium on value disagreement, high on
// confidence variance or a split vote; RequiresHumanReview mirrors high.
func (r ConsensusRecord) Conflict() (ConflictRecord, bool) {
	if !r.HasConflict {
		return ConflictRecord{}, false
	}

	severity := SeverityLow
	for _, ct := range r.ConflictTypes {
		switch ct {
		case ConflictValueDisagreement:
			if severity == SeverityLow {
				severity = SeverityMedium
			}
		case ConflictConfidenceVariance, ConflictSplitVote:
			severity = SeverityHigh
		}
	}

	return ConflictRecord{
		FieldName:           r.FieldName,
		ConflictTypes:       r.ConflictTypes,
		Severity:            severity,
		AgreementLevel:      r.AgreementLevel,
		Values:              r.AllValues,
		RequiresHumanReview: severity == SeverityHigh,
	}, true
}

// ConflictRecord is the derived view over a conflicted ConsensusRecord.
// RequiresHumanReview here mirrors severity == high.
type ConflictRecord struct {
	FieldName           string           `json:"field_name"`
	ConflictTypes       []ConflictType   `json:"conflict_types"`
	Severity            ConflictSeverity `json:"severity"`
	AgreementLevel      float64          `json:"agreement_level"`
	Values              []FieldValue     `json:"values"`
	RequiresHumanReview bool             `json:"requires_human_review"`
}

// ConsensusRun is the full outcome of one extraction run over a document.
type ConsensusRun struct {
	DocumentID          string                     `json:"document_id"`
	Fields              map[string]ConsensusRecord `json:"fields"`
	Conflicts           []ConflictRecord           `json:"conflicts,omitempty"`
	Reviews             []ReviewResult             `json:"reviews"`
	SuccessfulReviewers int                        `json:"successful_reviewers"`
	TotalReviewers      int                        `json:"total_reviewers"`
}
