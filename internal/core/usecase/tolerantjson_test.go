package usecase

import "testing"

func TestDecodeTolerantJSONStrict(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	if err := decodeTolerantJSON(`{"name": "ok"}`, &out); err != nil {
		t.Fatalf("decodeTolerantJSON() error = %v", err)
	}
	if out.Name != "ok" {
		t.Fatalf("unexpected decode result: %+v", out)
	}
}

func TestDecodeTolerantJSONWithSurroundingProse(t *testing.T) {
	raw := "Here is the plan you asked for:\n```json\n{\"name\": \"plan\"}\n```\nLet me know if it helps."

	var out struct {
		Name string `json:"name"`
	}
	if err := decodeTolerantJSON(raw, &out); err != nil {
		t.Fatalf("decodeTolerantJSON() error = %v", err)
	}
	if out.Name != "plan" {
		t.Fatalf("unexpected decode result: %+v", out)
	}
}

func TestDecodeTolerantJSONRepairsCommonDefects(t *testing.T) {
	cases := map[string]string{
		"trailing comma": `{"name": "a", "items": [1, 2,],}`,
		"bare keys":      `{name: "a", items: [1, 2]}`,
		"doubled quotes": `{"name": ""a"", "items": [1, 2]}`,
	}
	for label, raw := range cases {
		var out struct {
			Name  string `json:"name"`
			Items []int  `json:"items"`
		}
		if err := decodeTolerantJSON(raw, &out); err != nil {
			t.Fatalf("%s: decodeTolerantJSON() error = %v", label, err)
		}
		if out.Name != "a" {
			t.Fatalf("%s: unexpected decode result: %+v", label, out)
		}
	}
}

func TestDecodeTolerantJSONIgnoresBracesInsideStrings(t *testing.T) {
	raw := `{"code": "if (x) { return {a: 1}; }", "n": 2} trailing prose {`

	var out struct {
		Code string `json:"code"`
		N    int    `json:"n"`
	}
	if err := decodeTolerantJSON(raw, &out); err != nil {
		t.Fatalf("decodeTolerantJSON() error = %v", err)
	}
	if out.N != 2 {
		t.Fatalf("unexpected decode result: %+v", out)
	}
}

func TestDecodeTolerantJSONFailsWithoutObject(t *testing.T) {
	var out map[string]any
	if err := decodeTolerantJSON("no json here at all", &out); err == nil {
		t.Fatalf("expected error for input without an object")
	}
	if err := decodeTolerantJSON(`{"unbalanced": true`, &out); err == nil {
		t.Fatalf("expected error for unbalanced braces")
	}
}
