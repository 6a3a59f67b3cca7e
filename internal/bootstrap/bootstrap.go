package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/akozhevnikov/rule-assistant/internal/config"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
	"github.com/akozhevnikov/rule-assistant/internal/core/usecase"
	"github.com/akozhevnikov/rule-assistant/internal/infrastructure/chunking"
	"github.com/akozhevnikov/rule-assistant/internal/infrastructure/extractor"
	"github.com/akozhevnikov/rule-assistant/internal/infrastructure/llm/openaicompat"
	"github.com/akozhevnikov/rule-assistant/internal/infrastructure/metadata/targetprocess"
	"github.com/akozhevnikov/rule-assistant/internal/infrastructure/queue/nats"
	"github.com/akozhevnikov/rule-assistant/internal/infrastructure/repository/postgres"
	"github.com/akozhevnikov/rule-assistant/internal/infrastructure/resilience"
	"github.com/akozhevnikov/rule-assistant/internal/infrastructure/storage/localfs"
	"github.com/akozhevnikov/rule-assistant/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue      ports.MessageQueue
	Documents  ports.DocumentReader
	Assistant  ports.RuleAssistant
	Searcher   ports.DocumentSearcher
	IngestUC   ports.DocumentIngestor
	IndexingUC ports.DocumentProcessor

	closeFn func()
}

// Options carry the pieces that differ between binaries, currently just the
// pipeline observer the api process uses for metrics.
type Options struct {
	Observer usecase.PipelineObserver
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts Options) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llmClient := openaicompat.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMGenModel, cfg.LLMEmbedModel, executor)
	embedder := openaicompat.NewEmbedder(llmClient)
	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, embedder)

	profile, err := config.LoadRetrievalProfile(cfg.RetrievalProfile)
	if err != nil {
		return nil, fmt.Errorf("load retrieval profile: %w", err)
	}
	if cfg.DefaultEntityFocus != "" {
		profile.DefaultEntity = cfg.DefaultEntityFocus
	}

	var metadataProvider ports.EntityMetadataProvider
	if cfg.TPDomain != "" && cfg.TPToken != "" {
		metadataProvider = targetprocess.New(cfg.TPDomain, cfg.TPToken, log)
	}

	planner := usecase.NewPlanner(llmClient, profile, log)
	retriever := usecase.NewRetriever(vectorDB, profile, log)
	synthesizer := usecase.NewSynthesizer(log)
	generator := usecase.NewGenerator(llmClient, log)
	validator := usecase.NewValidator(log)
	refiner := usecase.NewRefiner(llmClient, cfg.RefineMaxAttempts, log)
	singlePass := usecase.NewSinglePass(vectorDB, llmClient, cfg.MaxResults, cfg.MaxDistance, log)

	orchestrator := usecase.NewOrchestrator(
		planner, retriever, synthesizer, generator, validator, refiner, singlePass,
		metadataProvider,
		usecase.OrchestratorOptions{
			StageTimeout: time.Duration(cfg.StageTimeoutSecs) * time.Second,
			MaxResults:   cfg.MaxResults,
			Observer:     opts.Observer,
		},
		log,
	)

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extract := extractor.NewDispatcher(storage)

	ingestUC := usecase.NewIngestor(repo, storage, queue, log)
	indexingUC := usecase.NewIndexer(repo, extract, chunker, embedder, vectorDB, log)

	return &App{
		Config: cfg,
		Queue:  queue,

		Documents:  ingestUC,
		Assistant:  orchestrator,
		Searcher:   singlePass,
		IngestUC:   ingestUC,
		IndexingUC: indexingUC,

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
