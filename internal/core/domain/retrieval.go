package domain

type SearchFilter struct {
	DocType string
}

// RetrievedItem is one vector-index hit. Distance is a similarity distance
// (lower = more similar); RelevanceScore is assigned later by the synthesizer.
type RetrievedItem struct {
	Content           string            `json:"content"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Distance          float64           `json:"distance"`
	RetrievalCategory string            `json:"retrieval_category,omitempty"`
	RelevanceScore    float64           `json:"relevance_score,omitempty"`
}

// ContextBundle partitions ranked retrieval results by purpose. Primary feeds
// generation; the rest feed validation and refinement.
type ContextBundle struct {
	Primary          []RetrievedItem `json:"primary"`
	CodeExamples     []RetrievedItem `json:"code_examples"`
	EntityInfo       []RetrievedItem `json:"entity_info"`
	BusinessPatterns []RetrievedItem `json:"business_patterns"`
}

const (
	PrimaryContextCap   = 8
	CodeExamplesCap     = 5
	EntityInfoCap       = 3
	BusinessPatternsCap = 3
)
