package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
)

func invalidReport(issues ...string) domain.ValidationReport {
	return domain.NewValidationReport(issues, map[string]bool{domain.CheckSyntax: false})
}

func TestRefineReplacesCandidateOnFirstCompletion(t *testing.T) {
	llm := &completerFake{responses: []string{validCandidate}}
	refiner := NewRefiner(llm, 2, nil)

	refined, applied := refiner.Refine(
		context.Background(),
		"broken candidate",
		invalidReport("code has no return statement"),
		ruleContext,
	)

	if !applied {
		t.Fatalf("expected refinement to apply")
	}
	if refined != validCandidate {
		t.Fatalf("unexpected refined candidate: %q", refined)
	}
	if llm.calls != 1 {
		t.Fatalf("expected one attempt, got %d", llm.calls)
	}
}

func TestRefineKeepsOriginalWhenEveryAttemptFails(t *testing.T) {
	llm := &completerFake{
		errs:      []error{errors.New("llm hiccup"), nil},
		responses: []string{"", "   "},
	}
	refiner := NewRefiner(llm, 2, nil)

	original := "original broken candidate"
	refined, applied := refiner.Refine(
		context.Background(), original, invalidReport("code has no return statement"), ruleContext,
	)

	if applied {
		t.Fatalf("refinement should not report success")
	}
	if refined != original {
		t.Fatalf("pre-refinement candidate not preserved: %q", refined)
	}
	if llm.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", llm.calls)
	}
}

func TestRefineSkipsFailedCompletions(t *testing.T) {
	llm := &completerFake{
		errs:      []error{errors.New("llm hiccup"), nil},
		responses: []string{"", "fixed rule"},
	}
	refiner := NewRefiner(llm, 2, nil)

	refined, applied := refiner.Refine(
		context.Background(), "broken", invalidReport("issue"), ruleContext,
	)

	if !applied {
		t.Fatalf("expected second attempt to succeed")
	}
	if refined != "fixed rule" {
		t.Fatalf("unexpected refined candidate: %q", refined)
	}
	if llm.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", llm.calls)
	}
}

func TestRefineDoesNotValidateInternally(t *testing.T) {
	// A completion that would still fail validation is accepted as-is; the
	// caller owns the single re-validation.
	llm := &completerFake{responses: []string{"still missing a return statement"}}
	refiner := NewRefiner(llm, 2, nil)

	refined, applied := refiner.Refine(
		context.Background(), "broken", invalidReport("code has no return statement"), ruleContext,
	)

	if !applied || refined != "still missing a return statement" {
		t.Fatalf("partial fix discarded: applied=%v refined=%q", applied, refined)
	}
	if llm.calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", llm.calls)
	}
}

func TestRefinementPromptTruncatesExamples(t *testing.T) {
	long := strings.Repeat("x", 2000)
	items := []domain.RetrievedItem{
		{Content: long}, {Content: long}, {Content: long}, {Content: long}, {Content: long},
	}

	prompt := buildRefinementPrompt("candidate", []string{"issue one"}, items)

	if strings.Count(prompt, "--- Example") != refineExampleCap {
		t.Fatalf("example count = %d, want %d", strings.Count(prompt, "--- Example"), refineExampleCap)
	}
	if strings.Contains(prompt, strings.Repeat("x", refineExampleLen+1)) {
		t.Fatalf("example content not truncated to %d characters", refineExampleLen)
	}
	if !strings.Contains(prompt, "1. issue one") {
		t.Fatalf("issues not numbered in prompt")
	}
}
