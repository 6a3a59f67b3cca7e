package usecase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// LLMs routinely wrap JSON in prose or emit near-JSON (trailing commas,
// bare keys, doubled quotes). extractJSONObject plus repairJSONText recover
// the decodable object; callers fall back to a fixed default value when
// recovery fails, so malformed output never propagates.

var (
	trailingCommaRe  = regexp.MustCompile(`,(\s*[}\]])`)
	bareKeyRe        = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	doubledQuotesRe  = regexp.MustCompile(`""([^"]+)""`)
	codeFenceRe      = regexp.MustCompile("```(?:json)?")
	controlInStrings = strings.NewReplacer("\r", "", "\t", " ")
)

// extractJSONObject locates the first top-level brace-balanced object in
// raw, tolerating leading and trailing prose. Braces inside string literals
// are ignored.
func extractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced braces in JSON object")
}

// repairJSONText applies the light textual fixes for the common LLM JSON
// defects: trailing commas before closers, unquoted object keys, and
// duplicated quote characters.
func repairJSONText(text string) string {
	text = codeFenceRe.ReplaceAllString(text, "")
	text = controlInStrings.Replace(text)
	text = trailingCommaRe.ReplaceAllString(text, "$1")
	text = bareKeyRe.ReplaceAllString(text, `$1"$2":`)
	text = doubledQuotesRe.ReplaceAllString(text, `"$1"`)
	return strings.TrimSpace(text)
}

// decodeTolerantJSON extracts, repairs and unmarshals the first JSON object
// in raw into out. The raw text is tried verbatim first; repairs are only
// applied when the strict decode fails.
func decodeTolerantJSON(raw string, out any) error {
	object, err := extractJSONObject(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(object), out); err == nil {
		return nil
	}
	repaired := repairJSONText(object)
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("decode repaired JSON: %w", err)
	}
	return nil
}
