package domain

// EntityState describes one workflow state of an entity type.
type EntityState struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsInitial bool   `json:"is_initial"`
	IsPlanned bool   `json:"is_planned"`
	IsFinal   bool   `json:"is_final"`
}

// EntityMetadata is the live field/state description of a Targetprocess
// entity type, used as an authoritative naming constraint during generation.
type EntityMetadata struct {
	EntityType     string        `json:"entity_type"`
	StandardFields []string      `json:"standard_fields"`
	CustomFields   []string      `json:"custom_fields"`
	States         []string      `json:"states"`
	ProcessStates  []EntityState `json:"process_states,omitempty"`
	Source         string        `json:"source"`
}

// GenerationParams are LLM sampling parameters selected per complexity class.
type GenerationParams struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// GenerationParamsFor returns the fixed sampling table entry for a
// complexity class. Unknown classes get the medium profile.
func GenerationParamsFor(c Complexity) GenerationParams {
	switch c {
	case ComplexitySimple:
		return GenerationParams{Temperature: 0.2, TopP: 0.7, MaxTokens: 800}
	case ComplexityComplex:
		return GenerationParams{Temperature: 0.7, TopP: 0.9, MaxTokens: 2500}
	default:
		return GenerationParams{Temperature: 0.5, TopP: 0.8, MaxTokens: 1500}
	}
}
