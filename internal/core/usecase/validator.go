package usecase

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
)

var (
	apiPatternRe    = regexp.MustCompile(`(api\.\w+|utils\.\w+|tp\.\w+)`)
	currentFieldRe  = regexp.MustCompile(`args\.Current\.(\w+)`)
	jsCodeBlockRe   = regexp.MustCompile("(?s)```javascript(.*?)```")
	jsonPayloadLine = regexp.MustCompile(`"[^"]*"\s*:`)
)

// Validator runs the deterministic checks over a generated candidate. No
// LLM calls: every check is a pure function of the candidate, the pooled
// context and the plan.
type Validator struct {
	log *slog.Logger
}

func NewValidator(log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	return &Validator{log: log}
}

// Validate runs the syntax, pattern, business-logic and field checks and
// folds the outcomes into a single report. The report is valid exactly when
// no check produced an issue.
func (v *Validator) Validate(candidate string, contextItems []domain.RetrievedItem, plan domain.QueryPlan, meta *domain.EntityMetadata) domain.ValidationReport {
	checks := make(map[string]bool, 4)
	var issues []string

	if syntaxIssues := checkSyntax(candidate); len(syntaxIssues) > 0 {
		checks[domain.CheckSyntax] = false
		issues = append(issues, syntaxIssues...)
	} else {
		checks[domain.CheckSyntax] = true
	}

	if issue := checkPatterns(candidate, contextItems); issue != "" {
		checks[domain.CheckPatterns] = false
		issues = append(issues, issue)
	} else {
		checks[domain.CheckPatterns] = true
	}

	if issue := checkBusinessLogic(candidate, plan.EntityFocus); issue != "" {
		checks[domain.CheckBusinessLogic] = false
		issues = append(issues, issue)
	} else {
		checks[domain.CheckBusinessLogic] = true
	}

	if fieldIssues := checkFields(candidate, meta); len(fieldIssues) > 0 {
		checks[domain.CheckFields] = false
		issues = append(issues, fieldIssues...)
	} else {
		checks[domain.CheckFields] = true
	}

	report := domain.NewValidationReport(issues, checks)
	v.log.Info("validation_complete", "valid", report.IsValid, "issues", len(report.Issues))
	return report
}

// checkSyntax inspects the JavaScript portion of the candidate for the
// defects that break rule execution at runtime. The args and return checks
// only apply when the candidate claims to contain JavaScript; prose
// explanations pass through.
func checkSyntax(candidate string) []string {
	claimsCode := strings.Contains(strings.ToLower(candidate), "javascript")
	code := extractJavaScript(candidate)
	if code == "" {
		code = candidate
	}

	var issues []string
	for _, line := range strings.Split(code, "\n") {
		if strings.Contains(line, "`") && jsonPayloadLine.MatchString(line) {
			issues = append(issues, "template literal used inside a JSON payload; use string concatenation with +")
			break
		}
	}
	if claimsCode {
		if !strings.Contains(code, "args.") {
			issues = append(issues, "code does not reference the args object")
		}
		if !strings.Contains(code, "return") {
			issues = append(issues, "code has no return statement")
		}
	}
	return issues
}

// checkPatterns requires the candidate to use at least one API call pattern
// that the retrieved context actually documents. An empty pattern set in the
// context disables the check.
func checkPatterns(candidate string, contextItems []domain.RetrievedItem) string {
	known := make(map[string]struct{})
	for _, item := range contextItems {
		for _, match := range apiPatternRe.FindAllString(item.Content, -1) {
			known[match] = struct{}{}
		}
	}
	if len(known) == 0 {
		return ""
	}
	for _, match := range apiPatternRe.FindAllString(candidate, -1) {
		if _, ok := known[match]; ok {
			return ""
		}
	}
	return "candidate uses no API pattern documented in the retrieved context"
}

func checkBusinessLogic(candidate, entityFocus string) string {
	if entityFocus == "" {
		return ""
	}
	if !strings.Contains(strings.ToLower(candidate), strings.ToLower(entityFocus)) {
		return fmt.Sprintf("candidate does not reference the target entity %s", entityFocus)
	}
	return ""
}

// checkFields verifies every args.Current field access against the live
// entity metadata. Without metadata the accessed fields are only extracted,
// never flagged.
func checkFields(candidate string, meta *domain.EntityMetadata) []string {
	matches := currentFieldRe.FindAllStringSubmatch(candidate, -1)
	if len(matches) == 0 || meta == nil {
		return nil
	}

	valid := make(map[string]struct{}, len(meta.StandardFields)+len(meta.CustomFields))
	for _, f := range meta.StandardFields {
		valid[strings.ToLower(f)] = struct{}{}
	}
	for _, f := range meta.CustomFields {
		valid[strings.ToLower(f)] = struct{}{}
	}
	if len(valid) == 0 {
		return nil
	}

	var issues []string
	seen := make(map[string]struct{})
	for _, m := range matches {
		field := m[1]
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		if _, ok := valid[strings.ToLower(field)]; !ok {
			issues = append(issues, fmt.Sprintf("field %s is not a known field of %s", field, meta.EntityType))
		}
	}
	return issues
}

func extractJavaScript(candidate string) string {
	if m := jsCodeBlockRe.FindStringSubmatch(candidate); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
