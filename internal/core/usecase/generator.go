package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
)

const generatorSystemPrompt = "You are an expert in Targetprocess automation rules."

// Generator produces the candidate answer from the primary context bundle.
// Live entity metadata, when provided, constrains field and state naming.
type Generator struct {
	llm ports.Completer
	log *slog.Logger
}

func NewGenerator(llm ports.Completer, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{llm: llm, log: log}
}

// Generate builds the kind-specific prompt over the primary context and asks
// the LLM for the candidate. Sampling parameters come from the fixed table
// keyed by the plan's complexity class. meta may be nil.
func (g *Generator) Generate(ctx context.Context, req domain.ProcessRequest, primary []domain.RetrievedItem, plan domain.QueryPlan, meta *domain.EntityMetadata) (string, error) {
	params := domain.GenerationParamsFor(plan.Complexity)
	prompt := buildGenerationPrompt(req, primary, meta, plan)

	candidate, err := g.llm.Complete(ctx, generatorSystemPrompt, prompt, params)
	if err != nil {
		return "", fmt.Errorf("generate candidate: %w", err)
	}
	return strings.TrimSpace(candidate), nil
}

func buildGenerationPrompt(req domain.ProcessRequest, primary []domain.RetrievedItem, meta *domain.EntityMetadata, plan domain.QueryPlan) string {
	switch req.Kind {
	case domain.KindExplain:
		return buildExplainPrompt(req.Request, primary)
	case domain.KindImprove:
		return buildImprovePrompt(req.Request, primary)
	case domain.KindGeneral:
		return buildAnswerPrompt(req.Request, primary)
	default:
		return buildRulePrompt(req.Request, primary, meta, plan)
	}
}

func buildRulePrompt(request string, primary []domain.RetrievedItem, meta *domain.EntityMetadata, plan domain.QueryPlan) string {
	var b strings.Builder

	b.WriteString(`Your task is to create a working Targetprocess automation rule in a structured, concise format.

The generated JavaScript runs INSIDE a Targetprocess automation rule. The args object is provided automatically:
- args.Current: the current entity being processed
- args.Previous: the previous state of the entity
- args.ResourceId: ID of the current entity
- args.ResourceType: type of the current entity
- args.ChangedFields: array of fields that changed

`)

	if meta != nil {
		b.WriteString("LIVE TARGETPROCESS METADATA (use these exact field names and values):\n")
		fmt.Fprintf(&b, "- Entity Type: %s\n", meta.EntityType)
		fmt.Fprintf(&b, "- Standard Fields: %s\n", strings.Join(meta.StandardFields, ", "))
		fmt.Fprintf(&b, "- Custom Fields: %s\n", strings.Join(meta.CustomFields, ", "))
		fmt.Fprintf(&b, "- States: %s\n", strings.Join(meta.States, ", "))
		fmt.Fprintf(&b, "- Data Source: %s\n\n", meta.Source)
	}

	b.WriteString("WORKING EXAMPLES AND DOCUMENTATION (follow these exactly):\n")
	b.WriteString(formatContext(primary))

	fmt.Fprintf(&b, "\nUSER REQUEST: %s\n", request)
	fmt.Fprintf(&b, "TARGET ENTITY: %s\n", plan.EntityFocus)

	b.WriteString(`
RESPONSE FORMAT (follow exactly):

RULE NAME: [descriptive name]

WHEN:
  Entity: [UserStory|Bug|Feature|Task|Epic|...]
  Action: [Created|Updated|Deleted]
  Field Conditions: [field, condition, value]

THEN:
  Action Type: Execute JavaScript

` + "```javascript" + `
[complete JavaScript automation code based on the documentation examples]
` + "```" + `

DESCRIPTION: [what this rule does]

CRITICAL REQUIREMENTS:
- Follow the documentation patterns EXACTLY; do not invent syntax not present in the context
- Always reference args.Current, args.Previous etc.
- Return proper command objects, e.g. {command: "targetprocess:CreateResource", payload: {...}}, or null when no action is needed
- In JSON payloads use string concatenation with +, never template literals with backticks
- All JSON string values use double quotes
`)
	return b.String()
}

func buildExplainPrompt(rule string, primary []domain.RetrievedItem) string {
	return fmt.Sprintf(`Based on the provided documentation context, explain the following Targetprocess rule in detail.

CONTEXT DOCUMENTATION:
%s

RULE TO EXPLAIN:
%s

Provide:
1. What this rule does (purpose and functionality)
2. When it triggers (source/trigger conditions)
3. What conditions must be met
4. What actions it performs
5. Potential use cases and benefits
6. Limitations or considerations

Make the explanation clear for both technical and non-technical users.`, formatContext(primary), rule)
}

func buildImprovePrompt(rule string, primary []domain.RetrievedItem) string {
	return fmt.Sprintf(`Based on the provided documentation context, analyze the following Targetprocess rule and suggest improvements.

CONTEXT DOCUMENTATION:
%s

RULE TO IMPROVE:
%s

Provide:
1. Analysis of the current rule
2. Performance improvements
3. Enhanced error handling
4. Better filtering options
5. Additional functionality worth adding
6. The updated rule configuration

Focus on practical, implementable improvements.`, formatContext(primary), rule)
}

func buildAnswerPrompt(question string, primary []domain.RetrievedItem) string {
	return fmt.Sprintf(`Answer the question about Targetprocess automation rules strictly from the provided documentation.

CONTEXT DOCUMENTATION:
%s

USER QUESTION: %s

INSTRUCTIONS:
1. Base the answer only on information and patterns in the context
2. When showing code, copy the exact syntax from the documentation
3. Reference which document each part of the answer comes from
4. Do not invent or assume syntax not shown in the context`, formatContext(primary), question)
}

func formatContext(items []domain.RetrievedItem) string {
	if len(items) == 0 {
		return "No relevant documentation found.\n"
	}
	var b strings.Builder
	for i, item := range items {
		title := item.Metadata["title"]
		if title == "" {
			title = "Unknown"
		}
		fileName := item.Metadata["file_name"]
		if fileName == "" {
			fileName = "Unknown"
		}
		docType := item.Metadata["doc_type"]
		if docType == "" {
			docType = "general"
		}
		fmt.Fprintf(&b, "--- Document %d: %s ---\nFile: %s\nType: %s\nContent:\n%s\n\n", i+1, title, fileName, docType, item.Content)
	}
	return b.String()
}
