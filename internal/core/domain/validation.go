package domain

// Names of the validator's independent checks.
const (
	CheckSyntax        = "syntax"
	CheckPatterns      = "patterns"
	CheckBusinessLogic = "business_logic"
	CheckFields        = "fields"
)

// ValidationReport is the verdict of one validation pass. A refinement cycle
// produces a new report; reports are never mutated.
type ValidationReport struct {
	IsValid bool            `json:"is_valid"`
	Issues  []string        `json:"issues"`
	Checks  map[string]bool `json:"checks"`
}

// NewValidationReport derives the verdict from the issue list, keeping the
// IsValid <=> len(Issues)==0 invariant in one place.
func NewValidationReport(issues []string, checks map[string]bool) ValidationReport {
	if issues == nil {
		issues = []string{}
	}
	return ValidationReport{
		IsValid: len(issues) == 0,
		Issues:  issues,
		Checks:  checks,
	}
}
