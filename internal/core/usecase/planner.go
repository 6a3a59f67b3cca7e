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

const plannerSystemPrompt = "You are a query planning agent. Always respond with valid JSON only."

// Planner turns a raw request into a QueryPlan via one LLM completion.
// Planning never fails: any LLM or parse error yields the fixed fallback
// plan.
type Planner struct {
	llm     ports.Completer
	profile domain.RetrievalProfile
	log     *slog.Logger
}

func NewPlanner(llm ports.Completer, profile domain.RetrievalProfile, log *slog.Logger) *Planner {
	if log == nil {
		log = slog.Default()
	}
	return &Planner{llm: llm, profile: profile, log: log}
}

func (p *Planner) Plan(ctx context.Context, request string, domainContext map[string]string) domain.QueryPlan {
	fallbackEntity := p.profile.ResolveEntityType(request, domainContext)

	raw, err := p.llm.Complete(ctx, plannerSystemPrompt, buildPlanningPrompt(request, domainContext), domain.GenerationParams{
		Temperature: 0.1,
		TopP:        0.8,
		MaxTokens:   800,
	})
	if err != nil {
		p.log.Warn("planning_completion_failed", "error", err)
		return domain.FallbackPlan(fallbackEntity)
	}

	plan, err := decodePlan(raw)
	if err != nil {
		p.log.Warn("planning_parse_failed", "error", err)
		return domain.FallbackPlan(fallbackEntity)
	}
	if plan.EntityFocus == "" {
		plan.EntityFocus = fallbackEntity
		if plan.EntityFocus == "" {
			plan.EntityFocus = p.profile.DefaultEntity
		}
	}

	p.log.Info("query_plan_created",
		"complexity", plan.Complexity,
		"entity_focus", plan.EntityFocus,
		"sub_tasks", len(plan.SubTasks),
	)
	return plan
}

func decodePlan(raw string) (domain.QueryPlan, error) {
	var plan domain.QueryPlan
	if err := decodeTolerantJSON(raw, &plan); err != nil {
		return domain.QueryPlan{}, err
	}

	plan.Complexity = domain.Complexity(strings.ToLower(strings.TrimSpace(string(plan.Complexity))))
	if !plan.Complexity.Valid() {
		return domain.QueryPlan{}, fmt.Errorf("invalid complexity %q", plan.Complexity)
	}
	if len(plan.SubTasks) == 0 {
		return domain.QueryPlan{}, fmt.Errorf("plan has no sub-tasks")
	}
	if plan.RetrievalStrategy == nil {
		return domain.QueryPlan{}, fmt.Errorf("plan has no retrieval strategy")
	}
	anyEnabled := false
	for _, category := range domain.RetrievalCategories {
		if plan.RetrievalStrategy[category] {
			anyEnabled = true
			break
		}
	}
	if !anyEnabled {
		return domain.QueryPlan{}, fmt.Errorf("plan enables no retrieval category")
	}

	for i := range plan.SubTasks {
		if plan.SubTasks[i].Priority < 1 || plan.SubTasks[i].Priority > 5 {
			plan.SubTasks[i].Priority = 3
		}
	}
	sort.SliceStable(plan.SubTasks, func(i, j int) bool {
		return plan.SubTasks[i].Priority < plan.SubTasks[j].Priority
	})
	plan.EntityFocus = strings.TrimSpace(plan.EntityFocus)
	return plan, nil
}

func buildPlanningPrompt(request string, domainContext map[string]string) string {
	contextLine := "No additional context provided"
	if len(domainContext) > 0 {
		parts := make([]string, 0, len(domainContext))
		for k, v := range domainContext {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		}
		sort.Strings(parts)
		contextLine = strings.Join(parts, ", ")
	}

	return fmt.Sprintf(`You are a query planning agent for Targetprocess automation rules. Analyze the user request and create a structured execution plan.

USER REQUEST: %s

CONTEXT: %s

Create a JSON response with the following structure:
{
    "complexity": "simple|medium|complex",
    "entity_focus": "primary entity type (UserStory, Bug, Feature, Task, etc.)",
    "sub_tasks": [
        {"task": "brief description", "search_focus": "what to search for", "priority": 1}
    ],
    "retrieval_strategy": {
        "code_patterns": true,
        "entity_metadata": true,
        "business_logic": true,
        "error_handling": false
    },
    "validation_requirements": ["field name validation", "syntax validation"]
}

ANALYSIS GUIDELINES:
- Simple: single entity, basic trigger/action (Create X when Y)
- Medium: multiple conditions, field mappings, state changes
- Complex: multiple entities, API calls, complex business logic, integrations
- Identify the PRIMARY entity that triggers the automation
- Break down into 2-4 logical sub-tasks with priority 1-5
- Determine which retrieval categories are needed
- List the validations that will be required

Respond with ONLY the JSON structure.`, request, contextLine)
}
