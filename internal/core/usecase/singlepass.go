package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
)

// guaranteedMinDocs is how many documents the single-pass retriever always
// returns when the index has any, even past the distance floor.
const guaranteedMinDocs = 3

// SinglePass is the degraded processing path: one retrieval round, one
// generation, no planning, no validation loop. It is the fallback the
// orchestrator routes to when any agentic stage fails, so it has to stay
// simple and succeed whenever the LLM is reachable at all.
type SinglePass struct {
	index       ports.VectorSearcher
	llm         ports.Completer
	maxResults  int
	maxDistance float64
	log         *slog.Logger
}

func NewSinglePass(index ports.VectorSearcher, llm ports.Completer, maxResults int, maxDistance float64, log *slog.Logger) *SinglePass {
	if maxResults <= 0 {
		maxResults = domain.PrimaryContextCap
	}
	if maxDistance <= 0 {
		maxDistance = 1.2
	}
	if log == nil {
		log = slog.Default()
	}
	return &SinglePass{index: index, llm: llm, maxResults: maxResults, maxDistance: maxDistance, log: log}
}

// Run retrieves context with the fixed query variants and generates the
// answer in one shot. Zero retrieved documents is not an error; the prompt
// says so and the model answers from what it has.
func (s *SinglePass) Run(ctx context.Context, req domain.ProcessRequest) (string, []domain.RetrievedItem, error) {
	floor := s.maxDistance
	if req.Options.SimilarityFloor > 0 {
		floor = req.Options.SimilarityFloor
	}
	docs := s.prioritySearch(ctx, req.Request, floor)

	prompt := buildGenerationPrompt(req, docs, nil, domain.QueryPlan{})
	answer, err := s.llm.Complete(ctx, generatorSystemPrompt, prompt, domain.GenerationParamsFor(domain.ComplexityMedium))
	if err != nil {
		return "", docs, fmt.Errorf("single-pass generation: %w", err)
	}
	return strings.TrimSpace(answer), docs, nil
}

// SearchDocuments exposes the priority search as a standalone operation for
// the search endpoint and the MCP search tool.
func (s *SinglePass) SearchDocuments(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.RetrievedItem, error) {
	if k <= 0 {
		k = s.maxResults
	}
	items, err := s.index.Search(ctx, query, k, filter)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return items, nil
}

// prioritySearch issues the fixed query variants, pools and deduplicates the
// hits, boosts by content relevance and applies the distance floor. When the
// floor leaves fewer than guaranteedMinDocs hits, the closest hits are
// returned regardless of distance.
func (s *SinglePass) prioritySearch(ctx context.Context, query string, maxDistance float64) []domain.RetrievedItem {
	variants := []string{
		query,
		query + " automation rule",
		query + " targetprocess",
		"javascript " + query,
	}

	pooled := make([]domain.RetrievedItem, 0, len(variants)*s.maxResults)
	for _, variant := range variants {
		items, err := s.index.Search(ctx, variant, s.maxResults, domain.SearchFilter{})
		if err != nil {
			s.log.Warn("single_pass_variant_failed", "query", variant, "error", err)
			continue
		}
		pooled = append(pooled, items...)
	}
	pooled = dedupeByContentPrefix(pooled)

	queryTokens := tokenSet(query)
	for i := range pooled {
		pooled[i].RelevanceScore = singlePassScore(pooled[i], queryTokens)
	}
	sort.SliceStable(pooled, func(i, j int) bool {
		return pooled[i].RelevanceScore > pooled[j].RelevanceScore
	})

	within := make([]domain.RetrievedItem, 0, len(pooled))
	for _, item := range pooled {
		if item.Distance <= maxDistance {
			within = append(within, item)
		}
	}
	if len(within) < guaranteedMinDocs && len(pooled) > len(within) {
		n := guaranteedMinDocs
		if n > len(pooled) {
			n = len(pooled)
		}
		within = pooled[:n]
	}
	if len(within) > s.maxResults {
		within = within[:s.maxResults]
	}

	s.log.Info("single_pass_retrieval_complete", "pooled", len(pooled), "selected", len(within))
	return within
}

// singlePassScore ranks by vector similarity first and nudges documents that
// look like working code examples ahead of prose.
func singlePassScore(item domain.RetrievedItem, queryTokens map[string]struct{}) float64 {
	distance := item.Distance
	if distance < 0 {
		distance = 1.0
	}
	score := (1.0 - distance) * 2

	content := strings.ToLower(item.Content)
	if strings.Contains(content, languageMarker) {
		score += 0.5
	}
	if strings.Contains(content, entityAccessToken) {
		score += 0.5
	}
	if len(item.Content) > 800 {
		score += 0.25
	}
	if strings.Contains(strings.ToLower(item.Metadata["file_name"]), "comprehensive") {
		score += 0.5
	}
	score += 0.25 * float64(overlapCount(queryTokens, tokenSet(content)))
	return score
}
