package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Verdict is the structured classification result the model must return.
type Verdict struct {
	IsCorrect            bool     `json:"is_correct"`
	Confidence           float64  `json:"confidence_score"`
	Reasoning            string   `json:"reasoning"`
	AlternativeCodes     []string `json:"alternative_codes"`
	AlternativeReasoning string   `json:"alternative_reasoning"`
}

// fencePattern strips a surrounding ```json ... ``` block.
var fencePattern = regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json|JSON)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)

// cleanMarkdownFences removes markdown code fences from a model response.
func cleanMarkdownFences(s string) string {
	s = strings.TrimSpace(s)

	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// extractJSONObject finds the JSON object embedded in a response that may
// carry prose around it. Returns the substring from the first '{' to the
// last '}'.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// ParseVerdict parses a raw model response into a Verdict. Parsing is a
// strict two-outcome operation: either the response yields a complete,
// well-typed verdict, or the whole attempt is a SchemaError. A response
// that arrived but cannot be parsed is a failure, never a success.
func ParseVerdict(raw string) (*Verdict, error) {
	cleaned := cleanMarkdownFences(raw)

	jsonStr, ok := extractJSONObject(cleaned)
	if !ok {
		return nil, &SchemaError{Raw: raw, Err: fmt.Errorf("no JSON object found in response")}
	}

	// Pointer fields distinguish absent from zero-valued.
	var decoded struct {
		IsCorrect            *bool    `json:"is_correct"`
		Confidence           *float64 `json:"confidence_score"`
		Reasoning            *string  `json:"reasoning"`
		AlternativeCodes     []string `json:"alternative_codes"`
		AlternativeReasoning string   `json:"alternative_reasoning"`
	}

	if err := json.Unmarshal([]byte(jsonStr), &decoded); err != nil {
		return nil, &SchemaError{Raw: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	if decoded.IsCorrect == nil {
		return nil, &SchemaError{Raw: raw, Err: fmt.Errorf("missing required field is_correct")}
	}
	if decoded.Confidence == nil {
		return nil, &SchemaError{Raw: raw, Err: fmt.Errorf("missing required field confidence_score")}
	}
	if *decoded.Confidence < 0 || *decoded.Confidence > 1 {
		return nil, &SchemaError{Raw: raw, Err: fmt.Errorf("confidence_score %v outside [0,1]", *decoded.Confidence)}
	}
	if decoded.Reasoning == nil {
		return nil, &SchemaError{Raw: raw, Err: fmt.Errorf("missing required field reasoning")}
	}

	verdict := &Verdict{
		IsCorrect:            *decoded.IsCorrect,
		Confidence:           *decoded.Confidence,
		Reasoning:            *decoded.Reasoning,
		AlternativeCodes:     decoded.AlternativeCodes,
		AlternativeReasoning: decoded.AlternativeReasoning,
	}
	if verdict.AlternativeCodes == nil {
		verdict.AlternativeCodes = []string{}
	}

	return verdict, nil
}
