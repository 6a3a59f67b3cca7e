package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
)

const (
	refinerSystemPrompt = "You fix Targetprocess automation rules. Return the corrected rule in the same format as the input."

	// refineExampleCap and refineExampleLen bound the example section of the
	// refinement prompt so repeated attempts stay within context limits.
	refineExampleCap = 3
	refineExampleLen = 800
)

// Refiner reruns generation with the validation issues folded into the
// prompt. The first successful completion replaces the candidate; the single
// re-validation of the replacement is the caller's responsibility. Only when
// every attempt fails outright is the pre-refinement candidate kept.
type Refiner struct {
	llm         ports.Completer
	maxAttempts int
	log         *slog.Logger
}

func NewRefiner(llm ports.Completer, maxAttempts int, log *slog.Logger) *Refiner {
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	if log == nil {
		log = slog.Default()
	}
	return &Refiner{llm: llm, maxAttempts: maxAttempts, log: log}
}

// Refine returns the refined candidate and whether a completion replaced the
// input. Attempts only retry completion failures and empty outputs.
func (r *Refiner) Refine(ctx context.Context, candidate string, report domain.ValidationReport, contextItems []domain.RetrievedItem) (string, bool) {
	prompt := buildRefinementPrompt(candidate, report.Issues, contextItems)

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		refined, err := r.llm.Complete(ctx, refinerSystemPrompt, prompt, domain.GenerationParamsFor(domain.ComplexityMedium))
		if err != nil {
			r.log.Warn("refinement_attempt_failed", "attempt", attempt, "error", err)
			continue
		}
		refined = strings.TrimSpace(refined)
		if refined == "" {
			continue
		}

		r.log.Info("refinement_complete", "attempt", attempt)
		return refined, true
	}

	return candidate, false
}

func buildRefinementPrompt(candidate string, issues []string, contextItems []domain.RetrievedItem) string {
	var b strings.Builder

	b.WriteString("The following Targetprocess automation rule failed validation.\n\nCURRENT RULE:\n")
	b.WriteString(candidate)

	b.WriteString("\n\nVALIDATION ISSUES:\n")
	for i, issue := range issues {
		fmt.Fprintf(&b, "%d. %s\n", i+1, issue)
	}

	if len(contextItems) > 0 {
		b.WriteString("\nREFERENCE EXAMPLES:\n")
		n := len(contextItems)
		if n > refineExampleCap {
			n = refineExampleCap
		}
		for i := 0; i < n; i++ {
			content := contextItems[i].Content
			if len(content) > refineExampleLen {
				content = content[:refineExampleLen]
			}
			fmt.Fprintf(&b, "--- Example %d ---\n%s\n\n", i+1, content)
		}
	}

	b.WriteString("\nFix every listed issue and return the complete corrected rule. Keep the same output format. Do not introduce syntax that is not present in the reference examples.")
	return b.String()
}
