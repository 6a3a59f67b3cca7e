package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
)

// Pipeline stage names, used in logs and observer callbacks.
const (
	StagePlanning   = "planning"
	StageRetrieval  = "retrieval"
	StageSynthesis  = "synthesis"
	StageGeneration = "generation"
	StageValidation = "validation"
	StageRefinement = "refinement"
)

// PipelineObserver receives stage and request outcomes. The metrics layer
// implements it; a nil observer disables reporting.
type PipelineObserver interface {
	StageCompleted(stage string, seconds float64, success bool)
	RequestCompleted(mode string, seconds float64, success bool)
}

type nopObserver struct{}

func (nopObserver) StageCompleted(string, float64, bool)   {}
func (nopObserver) RequestCompleted(string, float64, bool) {}

// Orchestrator drives the agentic pipeline and guarantees an answer: any
// stage failure downgrades the request to the single-pass path, and only a
// single-pass failure yields an unsuccessful result.
type Orchestrator struct {
	planner     *Planner
	retriever   *Retriever
	synthesizer *Synthesizer
	generator   *Generator
	validator   *Validator
	refiner     *Refiner
	singlePass  *SinglePass
	metadata    ports.EntityMetadataProvider

	stageTimeout time.Duration
	maxResults   int
	observer     PipelineObserver
	log          *slog.Logger
	now          func() time.Time
}

type OrchestratorOptions struct {
	StageTimeout time.Duration
	MaxResults   int
	Observer     PipelineObserver
}

func NewOrchestrator(
	planner *Planner,
	retriever *Retriever,
	synthesizer *Synthesizer,
	generator *Generator,
	validator *Validator,
	refiner *Refiner,
	singlePass *SinglePass,
	metadata ports.EntityMetadataProvider,
	opts OrchestratorOptions,
	log *slog.Logger,
) *Orchestrator {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = 60 * time.Second
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = domain.PrimaryContextCap
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		planner:      planner,
		retriever:    retriever,
		synthesizer:  synthesizer,
		generator:    generator,
		validator:    validator,
		refiner:      refiner,
		singlePass:   singlePass,
		metadata:     metadata,
		stageTimeout: opts.StageTimeout,
		maxResults:   opts.MaxResults,
		observer:     opts.Observer,
		log:          log,
		now:          time.Now,
	}
}

// Process runs the agentic pipeline for req and falls back to single-pass on
// any stage failure. The returned error is reserved for contract misuse.
func (o *Orchestrator) Process(ctx context.Context, req domain.ProcessRequest) (*domain.ProcessingResult, error) {
	if req.Request == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process request", fmt.Errorf("empty request"))
	}
	if req.Kind == "" {
		req.Kind = domain.KindGeneral
	}
	if !req.Kind.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process request", fmt.Errorf("unknown request kind %q", req.Kind))
	}

	started := o.now()
	result, stageErr := o.runAgentic(ctx, req, started)
	if stageErr != nil {
		o.log.Warn("agentic_pipeline_failed", "error", stageErr)
		result = o.runSinglePass(ctx, req, started)
	}

	o.observer.RequestCompleted(result.Metadata.ProcessingMode, result.Metadata.ElapsedSeconds, result.Success)
	return result, nil
}

func (o *Orchestrator) runAgentic(ctx context.Context, req domain.ProcessRequest, started time.Time) (*domain.ProcessingResult, error) {
	maxResults := req.Options.MaxResults
	if maxResults <= 0 {
		maxResults = o.maxResults
	}

	// Planning cannot fail; errors collapse into the fallback plan inside.
	plan := runStage(ctx, o, StagePlanning, func(sctx context.Context) domain.QueryPlan {
		return o.planner.Plan(sctx, req.Request, req.Options.DomainContext)
	})

	results := runStage(ctx, o, StageRetrieval, func(sctx context.Context) map[string][]domain.RetrievedItem {
		return o.retriever.Retrieve(sctx, plan, req.Request, maxResults)
	})
	totalDocs := 0
	categories := make([]string, 0, len(results))
	for _, category := range domain.RetrievalCategories {
		items, ok := results[category]
		if !ok {
			continue
		}
		categories = append(categories, category)
		totalDocs += len(items)
	}

	// An empty index is not a failure; generation proceeds over an empty
	// bundle and answers from the prompt alone.
	bundle := runStage(ctx, o, StageSynthesis, func(context.Context) domain.ContextBundle {
		return o.synthesizer.Synthesize(results, plan, req.Request)
	})

	meta := o.fetchEntityMetadata(ctx, req, plan)

	var candidate string
	var genErr error
	runStage(ctx, o, StageGeneration, func(sctx context.Context) struct{} {
		candidate, genErr = o.generator.Generate(sctx, req, bundle.Primary, plan, meta)
		return struct{}{}
	})
	if genErr != nil {
		return nil, fmt.Errorf("generation stage: %w", genErr)
	}

	pooled := bundle.Primary
	report := runStage(ctx, o, StageValidation, func(context.Context) domain.ValidationReport {
		return o.validator.Validate(candidate, pooled, plan, meta)
	})

	refinementApplied := false
	if !report.IsValid {
		runStage(ctx, o, StageRefinement, func(sctx context.Context) struct{} {
			refined, applied := o.refiner.Refine(sctx, candidate, report, pooled)
			if applied {
				// Single re-validation of the replacement; remaining issues
				// are reported, not retried.
				candidate = refined
				report = o.validator.Validate(candidate, pooled, plan, meta)
			}
			refinementApplied = applied
			return struct{}{}
		})
	}

	elapsed := o.now().Sub(started).Seconds()
	planCopy := plan
	reportCopy := report
	result := &domain.ProcessingResult{
		Success:     true,
		Response:    candidate,
		ContextDocs: bundle.Primary,
		Metadata: domain.ResultMetadata{
			ProcessingMode:      domain.ModeAgentic,
			QueryPlan:           &planCopy,
			RetrievalCategories: categories,
			Validation:          &reportCopy,
			RefinementApplied:   refinementApplied,
			RemainingIssues:     len(report.Issues),
			TotalDocsRetrieved:  totalDocs,
			NumContextDocs:      len(bundle.Primary),
			EntityMetadataUsed:  meta != nil,
			ElapsedSeconds:      elapsed,
			Timestamp:           o.now().UTC(),
		},
	}

	o.log.Info("request_processed",
		"mode", domain.ModeAgentic,
		"kind", req.Kind,
		"valid", report.IsValid,
		"refined", refinementApplied,
		"elapsed_seconds", elapsed,
	)
	return result, nil
}

func (o *Orchestrator) runSinglePass(ctx context.Context, req domain.ProcessRequest, started time.Time) *domain.ProcessingResult {
	answer, docs, err := o.singlePass.Run(ctx, req)
	elapsed := o.now().Sub(started).Seconds()

	result := &domain.ProcessingResult{
		Success:     err == nil,
		Response:    answer,
		ContextDocs: docs,
		Metadata: domain.ResultMetadata{
			ProcessingMode:     domain.ModeSinglePass,
			TotalDocsRetrieved: len(docs),
			NumContextDocs:     len(docs),
			ElapsedSeconds:     elapsed,
			Timestamp:          o.now().UTC(),
		},
	}
	if err != nil {
		result.Error = err.Error()
		o.log.Error("single_pass_failed", "error", err)
		return result
	}

	o.log.Info("request_processed",
		"mode", domain.ModeSinglePass,
		"kind", req.Kind,
		"elapsed_seconds", elapsed,
	)
	return result
}

// fetchEntityMetadata resolves live metadata for create requests. Failures
// only disable the metadata-backed checks, never the request.
func (o *Orchestrator) fetchEntityMetadata(ctx context.Context, req domain.ProcessRequest, plan domain.QueryPlan) *domain.EntityMetadata {
	if o.metadata == nil || req.Kind != domain.KindCreate || plan.EntityFocus == "" {
		return nil
	}
	mctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	meta, err := o.metadata.GetEntityMetadata(mctx, plan.EntityFocus)
	if err != nil {
		o.log.Warn("entity_metadata_unavailable", "entity", plan.EntityFocus, "error", err)
		return nil
	}
	return meta
}

// runStage bounds one stage with the orchestrator's timeout and reports its
// duration to the observer. Methods cannot be generic, hence the free
// function.
func runStage[T any](ctx context.Context, o *Orchestrator, stage string, fn func(context.Context) T) T {
	sctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	start := o.now()
	out := fn(sctx)
	o.observer.StageCompleted(stage, o.now().Sub(start).Seconds(), true)
	return out
}
