package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
)

func TestSinglePassIssuesFixedQueryVariants(t *testing.T) {
	index := &searchFake{items: []domain.RetrievedItem{{Content: "doc", Distance: 0.2}}}
	llm := &completerFake{responses: []string{"generated answer"}}
	sp := NewSinglePass(index, llm, 8, 1.2, nil)

	answer, docs, err := sp.Run(context.Background(), domain.ProcessRequest{
		Request: "escalate bugs",
		Kind:    domain.KindGeneral,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if answer != "generated answer" {
		t.Fatalf("answer = %q", answer)
	}
	if len(docs) == 0 {
		t.Fatalf("no documents returned")
	}

	if got := index.queryCount(); got != 4 {
		t.Fatalf("query count = %d, want 4", got)
	}
	index.mu.Lock()
	defer index.mu.Unlock()
	joined := strings.Join(index.queries, "\n")
	for _, want := range []string{
		"escalate bugs",
		"escalate bugs automation rule",
		"escalate bugs targetprocess",
		"javascript escalate bugs",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("variant %q not issued, got %v", want, index.queries)
		}
	}
}

func TestPrioritySearchDropsDistantHitsWhenEnoughRemain(t *testing.T) {
	index := &searchFake{items: []domain.RetrievedItem{
		{Content: "close one", Distance: 0.1},
		{Content: "close two", Distance: 0.2},
		{Content: "close three", Distance: 0.3},
		{Content: "far away", Distance: 2.0},
	}}
	sp := NewSinglePass(index, nil, 8, 1.2, nil)

	docs := sp.prioritySearch(context.Background(), "anything", 1.2)

	if len(docs) != 3 {
		t.Fatalf("selected %d documents, want 3", len(docs))
	}
	for _, doc := range docs {
		if doc.Distance > 1.2 {
			t.Fatalf("distant document survived the floor: %+v", doc)
		}
	}
}

func TestPrioritySearchGuaranteesMinimumDocuments(t *testing.T) {
	index := &searchFake{items: []domain.RetrievedItem{
		{Content: "far one", Distance: 1.5},
		{Content: "far two", Distance: 1.6},
		{Content: "far three", Distance: 1.7},
		{Content: "far four", Distance: 1.8},
	}}
	sp := NewSinglePass(index, nil, 8, 1.2, nil)

	docs := sp.prioritySearch(context.Background(), "anything", 1.2)

	if len(docs) != guaranteedMinDocs {
		t.Fatalf("selected %d documents, want %d", len(docs), guaranteedMinDocs)
	}
}

func TestRunHonoursPerRequestSimilarityFloor(t *testing.T) {
	index := &searchFake{items: []domain.RetrievedItem{
		{Content: "close one", Distance: 0.1},
		{Content: "close two", Distance: 0.2},
		{Content: "close three", Distance: 0.3},
		{Content: "mid range", Distance: 0.6},
	}}
	llm := &completerFake{responses: []string{"answer"}}
	sp := NewSinglePass(index, llm, 8, 1.2, nil)

	_, docs, err := sp.Run(context.Background(), domain.ProcessRequest{
		Request: "anything",
		Options: domain.ProcessOptions{SimilarityFloor: 0.5},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, doc := range docs {
		if doc.Distance > 0.5 {
			t.Fatalf("request floor ignored: %+v", doc)
		}
	}
}

func TestSinglePassScoreBoostsCodeHeavyDocuments(t *testing.T) {
	tokens := tokenSet("escalate bugs")
	prose := singlePassScore(domain.RetrievedItem{Content: "plain prose", Distance: 0.5}, tokens)
	code := singlePassScore(domain.RetrievedItem{
		Content:  "```javascript\nargs.current.EntityState\n```",
		Distance: 0.5,
	}, tokens)
	if code <= prose {
		t.Fatalf("code example scored %v, prose %v", code, prose)
	}

	plainFile := singlePassScore(domain.RetrievedItem{Content: "doc", Distance: 0.5, Metadata: map[string]string{"file_name": "notes.md"}}, tokens)
	curated := singlePassScore(domain.RetrievedItem{Content: "doc", Distance: 0.5, Metadata: map[string]string{"file_name": "comprehensive-rules.md"}}, tokens)
	if curated <= plainFile {
		t.Fatalf("curated file scored %v, plain %v", curated, plainFile)
	}
}

func TestSinglePassAnswersWithEmptyIndex(t *testing.T) {
	index := &searchFake{}
	llm := &completerFake{responses: []string{"answer without documentation"}}
	sp := NewSinglePass(index, llm, 8, 1.2, nil)

	answer, docs, err := sp.Run(context.Background(), domain.ProcessRequest{Request: "anything"})
	if err != nil {
		t.Fatalf("empty index must not fail the run: %v", err)
	}
	if answer != "answer without documentation" {
		t.Fatalf("answer = %q", answer)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %d", len(docs))
	}
	if !strings.Contains(llm.prompts[0], "No relevant documentation found") {
		t.Fatalf("prompt does not state the empty context: %q", llm.prompts[0])
	}
}

func TestSinglePassPropagatesGenerationFailure(t *testing.T) {
	index := &searchFake{items: []domain.RetrievedItem{{Content: "doc", Distance: 0.2}}}
	llm := &completerFake{errs: []error{errors.New("llm down")}}
	sp := NewSinglePass(index, llm, 8, 1.2, nil)

	_, docs, err := sp.Run(context.Background(), domain.ProcessRequest{Request: "anything"})
	if err == nil {
		t.Fatalf("expected generation error")
	}
	if len(docs) == 0 {
		t.Fatalf("retrieved documents should accompany the error")
	}
}

func TestSearchDocumentsDefaultsLimitAndWrapsErrors(t *testing.T) {
	index := &searchFake{items: []domain.RetrievedItem{{Content: "doc"}}}
	sp := NewSinglePass(index, nil, 8, 1.2, nil)

	items, err := sp.SearchDocuments(context.Background(), "query", 0, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}

	failing := NewSinglePass(&searchFake{err: errors.New("index down")}, nil, 8, 1.2, nil)
	if _, err := failing.SearchDocuments(context.Background(), "query", 5, domain.SearchFilter{}); err == nil {
		t.Fatalf("expected wrapped search error")
	}
}
