package domain

// Complexity classifies a request and selects generation parameters.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

func (c Complexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityMedium, ComplexityComplex:
		return true
	}
	return false
}

// Retrieval categories, in canonical order. The order fixes iteration
// everywhere categories are pooled or reported, keeping the pipeline
// deterministic.
const (
	CategoryCodePatterns   = "code_patterns"
	CategoryEntityMetadata = "entity_metadata"
	CategoryBusinessLogic  = "business_logic"
	CategoryErrorHandling  = "error_handling"
)

var RetrievalCategories = []string{
	CategoryCodePatterns,
	CategoryEntityMetadata,
	CategoryBusinessLogic,
	CategoryErrorHandling,
}

// SubTask is one planner-issued step with a retrieval focus. Priority runs
// 1 (highest) to 5.
type SubTask struct {
	Task        string `json:"task"`
	SearchFocus string `json:"search_focus"`
	Priority    int    `json:"priority"`
}

// QueryPlan is the planner's structured execution plan for one request.
type QueryPlan struct {
	Complexity             Complexity      `json:"complexity"`
	EntityFocus            string          `json:"entity_focus"`
	SubTasks               []SubTask       `json:"sub_tasks"`
	RetrievalStrategy      map[string]bool `json:"retrieval_strategy"`
	ValidationRequirements []string        `json:"validation_requirements"`
}

func (p QueryPlan) CategoryEnabled(category string) bool {
	return p.RetrievalStrategy[category]
}

// FallbackPlan is the fixed plan used whenever planning fails. It enables
// every retrieval category so degraded planning still retrieves broadly.
func FallbackPlan(entityFocus string) QueryPlan {
	if entityFocus == "" {
		entityFocus = "UserStory"
	}
	return QueryPlan{
		Complexity:  ComplexityMedium,
		EntityFocus: entityFocus,
		SubTasks: []SubTask{
			{Task: "find similar automation rules", SearchFocus: "automation rule examples", Priority: 1},
			{Task: "find entity field information", SearchFocus: "entity fields metadata", Priority: 2},
			{Task: "find relevant code patterns", SearchFocus: "javascript code patterns", Priority: 3},
		},
		RetrievalStrategy: map[string]bool{
			CategoryCodePatterns:   true,
			CategoryEntityMetadata: true,
			CategoryBusinessLogic:  true,
			CategoryErrorHandling:  true,
		},
		ValidationRequirements: []string{"syntax validation", "field name validation"},
	}
}
