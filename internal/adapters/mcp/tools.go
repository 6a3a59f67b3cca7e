package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
)

type generateRuleTool struct {
	assistant ports.RuleAssistant
}

func newGenerateRuleTool(assistant ports.RuleAssistant) *generateRuleTool {
	return &generateRuleTool{assistant: assistant}
}

func (t *generateRuleTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_rule",
		mcp.WithDescription("Generate a Targetprocess automation rule from a natural language description."),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description("Natural language description of the automation rule to create."),
		),
		mcp.WithString("entity_type",
			mcp.Description("Target entity type, e.g. UserStory, Bug, Feature. Inferred from the request when omitted."),
		),
	)
}

func (t *generateRuleTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return runProcess(ctx, t.assistant, request, domain.KindCreate)
}

type explainRuleTool struct {
	assistant ports.RuleAssistant
}

func newExplainRuleTool(assistant ports.RuleAssistant) *explainRuleTool {
	return &explainRuleTool{assistant: assistant}
}

func (t *explainRuleTool) Definition() mcp.Tool {
	return mcp.NewTool("explain_rule",
		mcp.WithDescription("Explain what an existing Targetprocess automation rule does."),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description("The rule definition or JavaScript to explain."),
		),
	)
}

func (t *explainRuleTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return runProcess(ctx, t.assistant, request, domain.KindExplain)
}

type improveRuleTool struct {
	assistant ports.RuleAssistant
}

func newImproveRuleTool(assistant ports.RuleAssistant) *improveRuleTool {
	return &improveRuleTool{assistant: assistant}
}

func (t *improveRuleTool) Definition() mcp.Tool {
	return mcp.NewTool("improve_rule",
		mcp.WithDescription("Analyze an existing Targetprocess automation rule and suggest improvements."),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description("The rule definition or JavaScript to improve."),
		),
	)
}

func (t *improveRuleTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return runProcess(ctx, t.assistant, request, domain.KindImprove)
}

func runProcess(ctx context.Context, assistant ports.RuleAssistant, request mcp.CallToolRequest, kind domain.RequestKind) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("request")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := domain.ProcessRequest{Request: text, Kind: kind}
	if entity := request.GetString("entity_type", ""); entity != "" {
		req.Options.DomainContext = map[string]string{"entityType": entity}
	}

	result, err := assistant.Process(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !result.Success {
		return mcp.NewToolResultError(fmt.Sprintf("processing failed: %s", result.Error)), nil
	}
	return mcp.NewToolResultText(result.Response), nil
}

type searchDocsTool struct {
	searcher ports.DocumentSearcher
}

func newSearchDocsTool(searcher ports.DocumentSearcher) *searchDocsTool {
	return &searchDocsTool{searcher: searcher}
}

func (t *searchDocsTool) Definition() mcp.Tool {
	return mcp.NewTool("search_docs",
		mcp.WithDescription("Search the automation rule documentation corpus."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results, default 5."),
		),
		mcp.WithString("doc_type",
			mcp.Description("Restrict to one document type: code_example, entity_metadata, business_logic or general."),
		),
	)
}

func (t *searchDocsTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := request.GetInt("limit", 5)

	items, err := t.searcher.SearchDocuments(ctx, query, limit, domain.SearchFilter{
		DocType: request.GetString("doc_type", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}
