package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/citetrace/citetrace/internal/core/domain"
	"github.com/citetrace/citetrace/internal/core/ports"
)

type ValidationConfig struct {
	MatcherTimeout time.Duration
	// CallsPerSecond paces the external semantic-match capability in batch
	// mode; zero disables pacing.
	CallsPerSecond float64
}

// ValidateCitationsUseCase checks that stored citations actually support the
// values they are attached to, by reconstructing the cited source text and
// delegating the semantic comparison to an external classifier.
type ValidateCitationsUseCase struct {
	docs        ports.DocumentRepository
	chunks      ports.ChunkRepository
	extractions ports.ExtractionRepository
	matcher     ports.SemanticMatcher
	limiter     *rate.Limiter
	cfg         ValidationConfig
}

func NewValidateCitationsUseCase(
	docs ports.DocumentRepository,
	chunks ports.ChunkRepository,
	extractions ports.ExtractionRepository,
	matcher ports.SemanticMatcher,
	cfg ValidationConfig,
) *ValidateCitationsUseCase {
	if cfg.MatcherTimeout <= 0 {
		cfg.MatcherTimeout = time.Minute
	}
	var limiter *rate.Limiter
	if cfg.CallsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.CallsPerSecond), 1)
	}
	return &ValidateCitationsUseCase{
		docs:        docs,
		chunks:      chunks,
		extractions: extractions,
		matcher:     matcher,
		limiter:     limiter,
		cfg:         cfg,
	}
}

// ValidateDocument validates every eligible extraction of one document.
func (uc *ValidateCitationsUseCase) ValidateDocument(ctx context.Context, documentID string) (*domain.ValidationSummary, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	extractions, err := uc.extractions.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	return uc.validateBatch(ctx, extractions)
}

// ValidateExtractions validates an explicit list of extraction ids.
func (uc *ValidateCitationsUseCase) ValidateExtractions(ctx context.Context, extractionIDs []string) (*domain.ValidationSummary, error) {
	if len(extractionIDs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate citations", errors.New("no extraction ids given"))
	}
	extractions, err := uc.extractions.ListByIDs(ctx, extractionIDs)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	return uc.validateBatch(ctx, extractions)
}

// validateBatch runs sequentially per extraction, ordered by extraction id,
// to bound the load on the external capability and keep summary accounting
// deterministic. One extraction's failure never aborts the batch.
func (uc *ValidateCitationsUseCase) validateBatch(ctx context.Context, extractions []domain.Extraction) (*domain.ValidationSummary, error) {
	eligible := make([]domain.Extraction, 0, len(extractions))
	for _, ext := range extractions {
		if ext.SourceCitation == nil || len(ext.SourceCitation.ChunkIndices) == 0 {
			continue
		}
		eligible = append(eligible, ext)
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })

	summary := &domain.ValidationSummary{Results: make([]domain.ValidationOutcome, 0, len(eligible))}
	citationMaps := make(map[string]domain.CitationMap)

	for _, ext := range eligible {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if uc.limiter != nil {
			if err := uc.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		cm, ok := citationMaps[ext.DocumentID]
		if !ok {
			chunks, err := uc.chunks.ListByDocument(ctx, ext.DocumentID)
			if err != nil {
				return nil, fmt.Errorf("list chunks for document %s: %w", ext.DocumentID, err)
			}
			cm = domain.BuildCitationMap(chunks)
			citationMaps[ext.DocumentID] = cm
		}

		outcome := uc.validateOne(ctx, ext, cm)
		summary.Results = append(summary.Results, outcome)
		switch {
		case outcome.Status == domain.ValidationValidated:
			summary.Valid++
		case outcome.Status == domain.ValidationQuestionable:
			summary.Questionable++
		default:
			summary.Invalid++
		}
		summary.Total++

		if err := uc.store(ctx, ext, outcome); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

// validateOne reconstructs the cited source text and asks the classifier
// whether the extracted value is supported. Capability failures and missing
// chunks degrade to a conservative no-match with the reason recorded.
func (uc *ValidateCitationsUseCase) validateOne(ctx context.Context, ext domain.Extraction, cm domain.CitationMap) domain.ValidationOutcome {
	sourceText, missing := reconstructSource(ext.SourceCitation.ChunkIndices, cm)
	if sourceText == "" {
		return noMatchOutcome(ext, fmt.Sprintf("cited chunks %v not found in document", missing))
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.cfg.MatcherTimeout)
	defer cancel()

	match, err := uc.matcher.Match(callCtx, ext.Text, sourceText, ext.FieldName)
	if err != nil {
		return noMatchOutcome(ext, fmt.Sprintf("semantic match failed: %v", err))
	}

	status := domain.ValidationPending
	switch {
	case match.IsValid:
		status = domain.ValidationValidated
	case match.Confidence > 50:
		status = domain.ValidationQuestionable
	}

	return domain.ValidationOutcome{
		ExtractionID: ext.ID,
		FieldName:    ext.FieldName,
		Status:       status,
		Confidence:   match.Confidence,
		Result: domain.ValidationResult{
			IsValid:   match.IsValid,
			MatchType: match.MatchType,
			Reasoning: match.Reasoning,
			Issues:    match.Issues,
		},
	}
}

// store writes the outcome back: the citation keeps the 0-100 confidence
// while the stored score uses the 0-1 scale; both are updated together.
func (uc *ValidateCitationsUseCase) store(ctx context.Context, ext domain.Extraction, outcome domain.ValidationOutcome) error {
	citation := *ext.SourceCitation
	citation.Confidence = outcome.Confidence
	citation.Validated = true
	result := outcome.Result
	citation.ValidationResult = &result

	if err := uc.extractions.SaveValidation(ctx, ext.ID, citation, outcome.Confidence/100, outcome.Status); err != nil {
		return fmt.Errorf("save validation for extraction %s: %w", ext.ID, err)
	}
	return nil
}

// reconstructSource concatenates cited chunks sorted by chunk index, keeping
// validation input deterministic and faithful to reading order regardless of
// citation-list order. Returns the indices that resolved to nothing.
func reconstructSource(indices []int, cm domain.CitationMap) (string, []int) {
	ordered := append([]int(nil), indices...)
	sort.Ints(ordered)

	var parts []string
	var missing []int
	for _, idx := range ordered {
		chunk, ok := cm[idx]
		if !ok {
			missing = append(missing, idx)
			continue
		}
		parts = append(parts, chunk.Text)
	}
	return strings.Join(parts, " "), missing
}

func noMatchOutcome(ext domain.Extraction, reason string) domain.ValidationOutcome {
	return domain.ValidationOutcome{
		ExtractionID: ext.ID,
		FieldName:    ext.FieldName,
		Status:       domain.ValidationPending,
		Confidence:   0,
		Result: domain.ValidationResult{
			IsValid:   false,
			MatchType: domain.MatchNone,
			Issues:    []string{reason},
		},
	}
}
