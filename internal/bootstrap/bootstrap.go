package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/citetrace/citetrace/internal/config"
	"github.com/citetrace/citetrace/internal/core/domain"
	"github.com/citetrace/citetrace/internal/core/ports"
	"github.com/citetrace/citetrace/internal/core/usecase"
	"github.com/citetrace/citetrace/internal/infrastructure/chunking"
	"github.com/citetrace/citetrace/internal/infrastructure/llm/ollama"
	"github.com/citetrace/citetrace/internal/infrastructure/pdftext"
	"github.com/citetrace/citetrace/internal/infrastructure/queue/nats"
	"github.com/citetrace/citetrace/internal/infrastructure/repository/postgres"
	"github.com/citetrace/citetrace/internal/infrastructure/resilience"
	"github.com/citetrace/citetrace/internal/infrastructure/storage/localfs"
)

type App struct {
	Config    config.Config
	Reviewers []domain.ReviewerConfig

	Queue         ports.MessageQueue
	Documents     ports.DocumentRepository
	ConsensusRepo ports.ConsensusRepository

	IngestUC   ports.DocumentIngestor
	ProcessUC  ports.DocumentProcessor
	ReadUC     ports.DocumentReader
	RunUC      ports.ConsensusRunner
	ValidateUC ports.CitationValidator

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	documents := postgres.NewDocumentRepository(db)
	if err := documents.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	chunks := postgres.NewChunkRepository(db)
	extractions := postgres.NewExtractionRepository(db)
	consensus := postgres.NewConsensusRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	reviewers, err := config.LoadReviewers(cfg.ReviewersPath)
	if err != nil {
		return nil, fmt.Errorf("load reviewer pool: %w", err)
	}

	exec := resilience.NewExecutor(resilience.DefaultConfig())
	client := ollama.New(cfg.OllamaURL, exec)
	extractor := ollama.NewExtractor(client)
	matcher := ollama.NewMatcher(client, cfg.ValidationModel)

	pages := pdftext.NewSource(storage)
	indexer := chunking.NewSentenceIndexer()

	ingestUC := usecase.NewIngestDocumentUseCase(documents, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(documents, chunks, pages, indexer)
	readUC := usecase.NewReadDocumentUseCase(documents, chunks)
	runUC := usecase.NewConsensusUseCase(documents, chunks, extractions, consensus, extractor, reviewers, usecase.ConsensusConfig{
		EvenThreshold:   cfg.ConsensusEvenThreshold,
		OddThreshold:    cfg.ConsensusOddThreshold,
		ReviewerTimeout: time.Duration(cfg.ReviewerTimeoutSec) * time.Second,
	})
	validateUC := usecase.NewValidateCitationsUseCase(documents, chunks, extractions, matcher, usecase.ValidationConfig{
		MatcherTimeout: time.Duration(cfg.MatcherTimeoutSec) * time.Second,
		CallsPerSecond: cfg.ValidationCallsPerSecond,
	})

	return &App{
		Config:    cfg,
		Reviewers: reviewers,

		Queue:         queue,
		Documents:     documents,
		ConsensusRepo: consensus,

		IngestUC:   ingestUC,
		ProcessUC:  processUC,
		ReadUC:     readUC,
		RunUC:      runUC,
		ValidateUC: validateUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
