package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
)

// dedupPrefixLen is the normalized content prefix length used as the
// deduplication key within one merge pass.
const dedupPrefixLen = 100

// Retriever runs the per-category retrieval rounds of a plan. Query variants
// fan out concurrently against the vector index; results are merged and
// deduplicated single-threaded after the fan-out completes.
type Retriever struct {
	index   ports.VectorSearcher
	profile domain.RetrievalProfile
	log     *slog.Logger
}

func NewRetriever(index ports.VectorSearcher, profile domain.RetrievalProfile, log *slog.Logger) *Retriever {
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{index: index, profile: profile, log: log}
}

// Retrieve returns the deduplicated results of every enabled category,
// keyed by category name. A failing query variant contributes zero results;
// only a fully failing round is worth surfacing, and even that comes back
// as an empty map rather than an error.
func (r *Retriever) Retrieve(ctx context.Context, plan domain.QueryPlan, request string, maxResults int) map[string][]domain.RetrievedItem {
	if maxResults <= 0 {
		maxResults = domain.PrimaryContextCap
	}
	perVariant := maxResults / 4
	if perVariant < 1 {
		perVariant = 1
	}
	perCategory := maxResults / 2
	if perCategory < 1 {
		perCategory = 1
	}

	var mu sync.Mutex
	results := make(map[string][]domain.RetrievedItem)

	g, gctx := errgroup.WithContext(ctx)
	for _, category := range domain.RetrievalCategories {
		if !plan.CategoryEnabled(category) {
			continue
		}
		templates := r.profile.Categories[category]
		if len(templates) == 0 {
			continue
		}

		g.Go(func() error {
			raw := r.runCategory(gctx, category, templates, request, plan.EntityFocus, perVariant)
			items := dedupeByContentPrefix(raw)
			if len(items) > perCategory {
				items = items[:perCategory]
			}
			for i := range items {
				items[i].RetrievalCategory = category
			}

			mu.Lock()
			results[category] = items
			mu.Unlock()

			r.log.Info("retrieval_round_complete", "category", category, "docs", len(items))
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// runCategory issues every query variant of one category sequentially;
// categories themselves run in parallel. Variant errors are logged and
// skipped so one bad query cannot sink the round.
func (r *Retriever) runCategory(ctx context.Context, category string, templates []string, request, entity string, k int) []domain.RetrievedItem {
	out := make([]domain.RetrievedItem, 0, len(templates)*k)
	for _, template := range templates {
		query := domain.ExpandQueryTemplate(template, request, entity)
		if query == "" {
			continue
		}
		items, err := r.index.Search(ctx, query, k, domain.SearchFilter{})
		if err != nil {
			r.log.Warn("retrieval_variant_failed", "category", category, "query", query, "error", err)
			continue
		}
		out = append(out, items...)
	}
	return out
}

// dedupeByContentPrefix drops later items whose normalized content prefix
// matches an earlier one. First occurrence wins, order is preserved, and
// the operation is idempotent.
func dedupeByContentPrefix(items []domain.RetrievedItem) []domain.RetrievedItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.RetrievedItem, 0, len(items))
	for _, item := range items {
		key := contentPrefixKey(item.Content)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func contentPrefixKey(content string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	if len(normalized) > dedupPrefixLen {
		normalized = normalized[:dedupPrefixLen]
	}
	return normalized
}
