package domain

import "time"

// RequestKind selects the generation mode for a request.
type RequestKind string

const (
	KindGeneral RequestKind = "general"
	KindCreate  RequestKind = "create"
	KindExplain RequestKind = "explain"
	KindImprove RequestKind = "improve"
)

func (k RequestKind) Valid() bool {
	switch k {
	case KindGeneral, KindCreate, KindExplain, KindImprove:
		return true
	}
	return false
}

// ProcessOptions tune a single request. Zero values fall back to configured
// defaults.
type ProcessOptions struct {
	MaxResults      int               `json:"max_results,omitempty"`
	SimilarityFloor float64           `json:"similarity_floor,omitempty"`
	DomainContext   map[string]string `json:"domain_context,omitempty"`
}

type ProcessRequest struct {
	Request string         `json:"request"`
	Kind    RequestKind    `json:"kind"`
	Options ProcessOptions `json:"options"`
}

// Processing modes reported in result metadata.
const (
	ModeAgentic    = "agentic"
	ModeSinglePass = "single_pass"
)

// ResultMetadata carries per-request diagnostics alongside the response.
type ResultMetadata struct {
	ProcessingMode      string            `json:"processing_mode"`
	QueryPlan           *QueryPlan        `json:"query_plan,omitempty"`
	RetrievalCategories []string          `json:"retrieval_categories,omitempty"`
	Validation          *ValidationReport `json:"validation,omitempty"`
	RefinementApplied   bool              `json:"refinement_applied"`
	RemainingIssues     int               `json:"remaining_issues"`
	TotalDocsRetrieved  int               `json:"total_docs_retrieved"`
	NumContextDocs      int               `json:"num_context_docs"`
	EntityMetadataUsed  bool              `json:"entity_metadata_used"`
	ElapsedSeconds      float64           `json:"elapsed_seconds"`
	Timestamp           time.Time         `json:"timestamp"`
}

// ProcessingResult is the terminal artifact of a request. Success is false
// only when even the single-pass fallback failed, and Error is then non-empty.
type ProcessingResult struct {
	Success     bool            `json:"success"`
	Response    string          `json:"response"`
	ContextDocs []RetrievedItem `json:"context_docs"`
	Metadata    ResultMetadata  `json:"metadata"`
	Error       string          `json:"error,omitempty"`
}
