package domain

import "time"

type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchParaphrase MatchType = "paraphrase"
	MatchSemantic   MatchType = "semantic"
	MatchWeak       MatchType = "weak"
	MatchNone       MatchType = "no-match"
)

type ValidationStatus string

const (
	ValidationPending      ValidationStatus = "pending"
	ValidationQuestionable ValidationStatus = "questionable"
	ValidationValidated    ValidationStatus = "validated"
)

// ValidationResult is the recorded outcome of one citation validation.
type ValidationResult struct {
	IsValid   bool      `json:"isValid"`
	MatchType MatchType `json:"matchType"`
	Reasoning string    `json:"reasoning,omitempty"`
	Issues    []string  `json:"issues,omitempty"`
}

// SourceCitation is the claim that a set of chunk indices supports an
// extracted value. Confidence is on the 0-100 scale and is mutated only by
// the citation validator.
type SourceCitation struct {
	ChunkIndices     []int             `json:"chunk_indices"`
	Confidence       float64           `json:"confidence"`
	Validated        bool              `json:"validated"`
	ValidationResult *ValidationResult `json:"validation_result,omitempty"`
}

// Extraction is one persisted extracted field. ConfidenceScore is the 0-1
// scale used by the store; it is kept in sync with the citation's 0-100
// confidence, never independently stale.
type Extraction struct {
	ID               string           `json:"id"`
	DocumentID       string           `json:"document_id"`
	FieldName        string           `json:"field_name"`
	Text             string           `json:"text"`
	Page             int              `json:"page"`
	Method           string           `json:"method"`
	SourceCitation   *SourceCitation  `json:"source_citations"`
	ConfidenceScore  float64          `json:"confidence_score"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// SemanticMatch is the parsed response of the external semantic-match
// capability, validated once at the boundary.
type SemanticMatch struct {
	IsValid    bool      `json:"isValid"`
	Confidence float64   `json:"confidence"`
	MatchType  MatchType `json:"matchType"`
	Reasoning  string    `json:"reasoning"`
	Issues     []string  `json:"issues"`
}

// ValidationOutcome pairs an extraction with the validation applied to it.
type ValidationOutcome struct {
	ExtractionID string           `json:"extraction_id"`
	FieldName    string           `json:"field_name"`
	Status       ValidationStatus `json:"status"`
	Result       ValidationResult `json:"result"`
	Confidence   float64          `json:"confidence"`
}

/// ValidationSummary reconciles exactly: Valid + Questionable + Invalid == Total.
type ValidationSummary struct {
	Total        int                 `json:"total"`
	Valid        int                 `json:"valid"`
	Questionable int                 `json:"questionable"`
	Invalid      int                 `json:"invalid"`
	Results      []ValidationOutcome `json:"results"`
}
