package usecase

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
)

// Tokens the scorer and validator recognize as code markers.
const (
	languageMarker    = "javascript"
	entityAccessToken = "args.current"
)

var categoryWeights = map[string]float64{
	domain.CategoryCodePatterns:   3,
	domain.CategoryEntityMetadata: 2,
	domain.CategoryBusinessLogic:  2,
	domain.CategoryErrorHandling:  1,
}

// Synthesizer pools retrieval results, scores them with a composite
// relevance function and partitions the ranked list into purpose-specific
// bundles. Pure and deterministic: identical inputs give identical output.
type Synthesizer struct {
	log *slog.Logger
}

func NewSynthesizer(log *slog.Logger) *Synthesizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synthesizer{log: log}
}

func (s *Synthesizer) Synthesize(results map[string][]domain.RetrievedItem, plan domain.QueryPlan, request string) domain.ContextBundle {
	pool := make([]domain.RetrievedItem, 0, 32)
	for _, category := range domain.RetrievalCategories {
		pool = append(pool, results[category]...)
	}

	queryTokens := tokenSet(request)
	entityFocus := strings.ToLower(plan.EntityFocus)
	for i := range pool {
		pool[i].RelevanceScore = relevanceScore(pool[i], queryTokens, entityFocus)
	}

	// Stable: equal scores keep their retrieval order.
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].RelevanceScore > pool[j].RelevanceScore
	})

	bundle := domain.ContextBundle{
		Primary:          capItems(pool, domain.PrimaryContextCap),
		CodeExamples:     filterItems(pool, domain.CodeExamplesCap, hasCodeMarker),
		EntityInfo:       filterItems(pool, domain.EntityInfoCap, taggedWith(domain.CategoryEntityMetadata)),
		BusinessPatterns: filterItems(pool, domain.BusinessPatternsCap, taggedWith(domain.CategoryBusinessLogic)),
	}

	s.log.Info("context_synthesis_complete",
		"pool", len(pool),
		"primary", len(bundle.Primary),
		"code_examples", len(bundle.CodeExamples),
	)
	return bundle
}

// relevanceScore is the additive composite from the retrieval design:
// keyword overlap, entity-focus bonus, code-pattern bonus, category weight
// and a similarity bonus that rewards low distance.
func relevanceScore(item domain.RetrievedItem, queryTokens map[string]struct{}, entityFocus string) float64 {
	content := strings.ToLower(item.Content)

	score := 0.5 * float64(overlapCount(queryTokens, tokenSet(content)))

	if entityFocus != "" && strings.Contains(content, entityFocus) {
		score += 2
	}
	if strings.Contains(content, languageMarker) && strings.Contains(content, entityAccessToken) {
		score += 3
	}
	score += categoryWeights[item.RetrievalCategory]

	// Negative distance marks an index hit that carried no distance at
	// all; treat it as maximally far rather than maximally close.
	distance := item.Distance
	if distance < 0 {
		distance = 1.0
	}
	score += (1.0 - distance) * 2

	return score
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

func overlapCount(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for token := range a {
		if _, ok := b[token]; ok {
			n++
		}
	}
	return n
}

func hasCodeMarker(item domain.RetrievedItem) bool {
	return strings.Contains(strings.ToLower(item.Content), languageMarker)
}

func taggedWith(category string) func(domain.RetrievedItem) bool {
	return func(item domain.RetrievedItem) bool {
		return item.RetrievalCategory == category
	}
}

func capItems(items []domain.RetrievedItem, cap int) []domain.RetrievedItem {
	if len(items) <= cap {
		return append([]domain.RetrievedItem(nil), items...)
	}
	return append([]domain.RetrievedItem(nil), items[:cap]...)
}

func filterItems(items []domain.RetrievedItem, cap int, keep func(domain.RetrievedItem) bool) []domain.RetrievedItem {
	out := make([]domain.RetrievedItem, 0, cap)
	for _, item := range items {
		if !keep(item) {
			continue
		}
		out = append(out, item)
		if len(out) == cap {
			break
		}
	}
	return out
}
