package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/citetrace/citetrace/internal/core/domain"
	"github.com/citetrace/citetrace/internal/core/ports"
)

type ConsensusConfig struct {
	EvenThreshold   float64
	OddThreshold    float64
	ReviewerTimeout time.Duration
}

// ConsensusUseCase runs the same extraction task against every enabled
// reviewer concurrently and reduces the answers to per-field consensus
// records with a conflict trail.
type ConsensusUseCase struct {
	docs        ports.DocumentRepository
	chunks      ports.ChunkRepository
	extractions ports.ExtractionRepository
	consensus   ports.ConsensusRepository
	extractor   ports.FieldExtractor
	reviewers   []domain.ReviewerConfig
	cfg         ConsensusConfig
}

func NewConsensusUseCase(
	docs ports.DocumentRepository,
	chunks ports.ChunkRepository,
	extractions ports.ExtractionRepository,
	consensus ports.ConsensusRepository,
	extractor ports.FieldExtractor,
	reviewers []domain.ReviewerConfig,
	cfg ConsensusConfig,
) *ConsensusUseCase {
	if cfg.ReviewerTimeout <= 0 {
		cfg.ReviewerTimeout = 2 * time.Minute
	}
	return &ConsensusUseCase{
		docs:        docs,
		chunks:      chunks,
		extractions: extractions,
		consensus:   consensus,
		extractor:   extractor,
		reviewers:   reviewers,
		cfg:         cfg,
	}
}

func (uc *ConsensusUseCase) Run(ctx context.Context, documentID string, fields []ports.FieldSpec) (*domain.ConsensusRun, error) {
	if len(fields) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "run consensus", errors.New("no fields requested"))
	}

	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}

	chunks, err := uc.chunks.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list document chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "run consensus", errors.New("document has no indexed chunks"))
	}

	pool := enabledByPriority(uc.reviewers)
	if len(pool) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "run consensus", errors.New("no enabled reviewers configured"))
	}

	citable := domain.CitableDocument(chunks)
	reviews, err := uc.fanOut(ctx, pool, fields, citable)
	if err != nil {
		return nil, err
	}

	run := uc.reduce(doc.ID, fields, reviews)

	if err := uc.persist(ctx, doc.ID, fields, chunks, reviews, run); err != nil {
		return nil, err
	}
	return run, nil
}

// fanOut invokes every reviewer concurrently; each goroutine writes only its
// own result slot and failures become error results instead of aborting the
// run. All calls settle before any consensus is computed; if the caller
// cancels, settled results are discarded rather than merged.
func (uc *ConsensusUseCase) fanOut(
	ctx context.Context,
	pool []domain.ReviewerConfig,
	fields []ports.FieldSpec,
	citable string,
) ([]domain.ReviewResult, error) {
	results := make([]domain.ReviewResult, len(pool))

	g, gctx := errgroup.WithContext(ctx)
	for i, reviewer := range pool {
		i, reviewer := i, reviewer
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, uc.cfg.ReviewerTimeout)
			defer cancel()

			start := time.Now()
			result, err := uc.extractor.ExtractFields(callCtx, reviewer, fields, citable)
			elapsed := time.Since(start)

			if err != nil {
				results[i] = domain.ReviewResult{
					ReviewerID:     reviewer.ID,
					Err:            err.Error(),
					ProcessingTime: elapsed,
				}
				return nil
			}
			result.ReviewerID = reviewer.ID
			result.ProcessingTime = elapsed
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (uc *ConsensusUseCase) reduce(documentID string, fields []ports.FieldSpec, reviews []domain.ReviewResult) *domain.ConsensusRun {
	thresholds := agreementThresholds{Even: uc.cfg.EvenThreshold, Odd: uc.cfg.OddThreshold}

	run := &domain.ConsensusRun{
		DocumentID:     documentID,
		Fields:         make(map[string]domain.ConsensusRecord, len(fields)),
		Reviews:        reviews,
		TotalReviewers: len(reviews),
	}
	for _, r := range reviews {
		if !r.Failed() {
			run.SuccessfulReviewers++
		}
	}

	for _, field := range fields {
		record := reduceField(field.Name, reviews, thresholds)
		run.Fields[field.Name] = record
		if conflict, ok := record.Conflict(); ok {
			run.Conflicts = append(run.Conflicts, conflict)
		}
	}
	sort.Slice(run.Conflicts, func(i, j int) bool {
		return run.Conflicts[i].FieldName < run.Conflicts[j].FieldName
	})
	return run
}

func (uc *ConsensusUseCase) persist(
	ctx context.Context,
	documentID string,
	fields []ports.FieldSpec,
	chunks []domain.TextChunk,
	reviews []domain.ReviewResult,
	run *domain.ConsensusRun,
) error {
	pageByIndex := make(map[int]int, len(chunks))
	for _, c := range chunks {
		pageByIndex[c.ChunkIndex] = c.PageNum
	}
	now := time.Now().UTC()

	for _, field := range fields {
		record := run.Fields[field.Name]
		citation, confidence := winningSupport(field.Name, record, reviews)

		page := 0
		if len(citation.ChunkIndices) > 0 {
			page = pageByIndex[citation.ChunkIndices[0]]
		}

		ext := &domain.Extraction{
			ID:               uuid.NewString(),
			DocumentID:       documentID,
			FieldName:        field.Name,
			Text:             record.Value.String(),
			Page:             page,
			Method:           "consensus",
			SourceCitation:   &citation,
			ConfidenceScore:  confidence / 100,
			ValidationStatus: domain.ValidationPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := uc.extractions.Upsert(ctx, ext); err != nil {
			return fmt.Errorf("upsert extraction for field %s: %w", field.Name, err)
		}
		if err := uc.consensus.SaveRecord(ctx, ext.ID, documentID, record); err != nil {
			return fmt.Errorf("save consensus record for field %s: %w", field.Name, err)
		}
	}
	return nil
}

// winningSupport returns the citation claimed by the first reviewer (in
// priority order) that voted for the consensus value, and the mean confidence
// of all agreeing reviewers on the 0-100 scale.
func winningSupport(fieldName string, record domain.ConsensusRecord, reviews []domain.ReviewResult) (domain.SourceCitation, float64) {
	citation := domain.SourceCitation{ChunkIndices: []int{}}
	if record.Value.IsNull() {
		return citation, 0
	}

	var confidenceSum float64
	agreeing := 0
	for _, r := range reviews {
		if r.Failed() {
			continue
		}
		v, ok := r.Data[fieldName]
		if !ok || !v.Equal(record.Value) {
			continue
		}
		if len(citation.ChunkIndices) == 0 && len(r.Citations[fieldName]) > 0 {
			citation.ChunkIndices = append([]int(nil), r.Citations[fieldName]...)
		}
		confidenceSum += r.Confidence
		agreeing++
	}
	if agreeing == 0 {
		return citation, 0
	}

	mean := confidenceSum / float64(agreeing)
	citation.Confidence = mean
	return citation, mean
}

// enabledByPriority filters disabled reviewers and fixes the scan order:
// ascending priority, then reviewer id. Determinism here is what makes
// vote-count tie-breaking reproducible.
func enabledByPriority(reviewers []domain.ReviewerConfig) []domain.ReviewerConfig {
	pool := make([]domain.ReviewerConfig, 0, len(reviewers))
	for _, r := range reviewers {
		if r.Enabled {
			pool = append(pool, r)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Priority != pool[j].Priority {
			return pool[i].Priority < pool[j].Priority
		}
		return pool[i].ID < pool[j].ID
	})
	return pool
}
