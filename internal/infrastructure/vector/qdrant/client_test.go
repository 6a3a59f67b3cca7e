package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
)

type embedderStub struct {
	vector []float32
}

func (e *embedderStub) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = e.vector
	}
	return out, nil
}

func (e *embedderStub) EmbedQuery(context.Context, string) ([]float32, error) {
	return e.vector, nil
}

func TestIndexChunksEnsuresCollectionOnce(t *testing.T) {
	var ensureCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "docs", &embedderStub{vector: []float32{0.1, 0.2}})
	doc := &domain.Document{ID: "doc-1", Filename: "a.md"}
	chunks := []string{"a", "b"}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := client.IndexChunks(context.Background(), doc, chunks, vectors); err != nil {
		t.Fatalf("first IndexChunks() error = %v", err)
	}
	if err := client.IndexChunks(context.Background(), doc, chunks, vectors); err != nil {
		t.Fatalf("second IndexChunks() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
}

func TestIndexChunksTreatsExistingCollectionAsEnsured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			w.WriteHeader(http.StatusConflict)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "docs", &embedderStub{vector: []float32{0.1}})
	doc := &domain.Document{ID: "doc-1", Filename: "a.md"}

	if err := client.IndexChunks(context.Background(), doc, []string{"a"}, [][]float32{{0.1}}); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/docs" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "docs", &embedderStub{vector: []float32{0.1}})
	doc := &domain.Document{ID: "doc-1", Filename: "a.md"}
	err := client.IndexChunks(context.Background(), doc, []string{"a"}, [][]float32{{0.1, 0.2}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestSearchMapsScoresAndPayload(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/docs/points/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.9,"payload":{"text":"chunk text","doc_id":"doc-1","title":"Rules","doc_type":"code_example","file_name":"a.md"}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "docs", &embedderStub{vector: []float32{0.1, 0.2}})

	items, err := client.Search(context.Background(), "query", 5, domain.SearchFilter{DocType: "code_example"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}

	item := items[0]
	if item.Content != "chunk text" {
		t.Fatalf("content = %q", item.Content)
	}
	if got := item.Distance; got < 0.099 || got > 0.101 {
		t.Fatalf("distance = %f, want 1 - score", got)
	}
	if item.Metadata["doc_id"] != "doc-1" || item.Metadata["doc_type"] != "code_example" {
		t.Fatalf("metadata = %v", item.Metadata)
	}

	if _, ok := gotBody["filter"]; !ok {
		t.Fatalf("doc_type filter not forwarded: %v", gotBody)
	}
	if limit, ok := gotBody["limit"].(float64); !ok || int(limit) != 5 {
		t.Fatalf("limit = %v", gotBody["limit"])
	}
}

func TestSearchOmitsFilterWithoutDocType(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "docs", &embedderStub{vector: []float32{0.1}})

	if _, err := client.Search(context.Background(), "query", 3, domain.SearchFilter{}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if _, ok := gotBody["filter"]; ok {
		t.Fatalf("unexpected filter in request: %v", gotBody)
	}
}
