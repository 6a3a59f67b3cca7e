package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
)

func TestCompleteSendsMessagesAndParams(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-123" {
			t.Errorf("authorization header = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  answer text \n"}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "key-123", "gpt-4o", "embed-model", nil)
	params := domain.GenerationParamsFor(domain.ComplexitySimple)

	answer, err := client.Complete(context.Background(), "system prompt", "user prompt", params)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if answer != "answer text" {
		t.Fatalf("answer not trimmed: %q", answer)
	}

	if payload["model"] != "gpt-4o" {
		t.Fatalf("model = %v", payload["model"])
	}
	messages, _ := payload["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %v", payload["messages"])
	}
	if temp, _ := payload["temperature"].(float64); temp != params.Temperature {
		t.Fatalf("temperature = %v, want %v", payload["temperature"], params.Temperature)
	}
	if maxTokens, _ := payload["max_tokens"].(float64); int(maxTokens) != params.MaxTokens {
		t.Fatalf("max_tokens = %v, want %d", payload["max_tokens"], params.MaxTokens)
	}
}

func TestCompleteMapsServerErrorsToTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "", "gen", "embed", nil)
	_, err := client.Complete(context.Background(), "s", "u", domain.GenerationParamsFor(domain.ComplexitySimple))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestCompleteMapsClientErrorsToCompletionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer server.Close()

	client := New(server.URL, "", "gen", "embed", nil)
	_, err := client.Complete(context.Background(), "s", "u", domain.GenerationParamsFor(domain.ComplexitySimple))
	if !domain.IsKind(err, domain.ErrCompletion) {
		t.Fatalf("expected completion error, got %v", err)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "", "gen", "embed", nil)
	_, err := client.Complete(context.Background(), "s", "u", domain.GenerationParamsFor(domain.ComplexitySimple))
	if !domain.IsKind(err, domain.ErrCompletion) {
		t.Fatalf("expected completion error, got %v", err)
	}
}

func TestEmbedOrdersVectorsByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0.3,0.4]},
			{"index":0,"embedding":[0.1,0.2]}
		]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "", "gen", "embed", nil))

	vectors, err := embedder.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("vectors = %d", len(vectors))
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.3 {
		t.Fatalf("vectors not ordered by index: %v", vectors)
	}
}

func TestEmbedRejectsMissingVectors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1]}]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "", "gen", "embed", nil))

	if _, err := embedder.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected error for missing embedding")
	}
}
