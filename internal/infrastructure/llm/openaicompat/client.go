package openaicompat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/infrastructure/resilience"
)

// Client talks to an OpenAI-compatible API (chat completions and
// embeddings). One Client is shared by the Completer and Embedder facades.
type Client struct {
	baseURL    string
	apiKey     string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete implements ports.Completer over the chat completions endpoint.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, params domain.GenerationParams) (string, error) {
	reqBody := map[string]any{
		"model": c.genModel,
		"messages": []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		"temperature": params.Temperature,
		"top_p":       params.TopP,
		"max_tokens":  params.MaxTokens,
	}

	var response struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	err := c.execute(ctx, "chat_completion", func(cctx context.Context) error {
		return c.postJSON(cctx, "/chat/completions", reqBody, &response, "chat_completion")
	})
	if err != nil {
		return "", wrapTemporaryIfNeeded("chat_completion", err)
	}
	if len(response.Choices) == 0 {
		return "", domain.WrapError(domain.ErrCompletion, "chat_completion", fmt.Errorf("no choices in response"))
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// Embedder adapts the same client to ports.Embedder.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	err := e.client.execute(ctx, "embed", func(cctx context.Context) error {
		return e.client.postJSON(cctx, "/embeddings", reqBody, &response, "embed")
	})
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed", err)
	}

	out := make([][]float32, len(texts))
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	for i, vec := range out {
		if vec == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyLLMError)
}
