package llm

import (
	"errors"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantCorrect bool
		wantConf    float64
	}{
		{
			name:        "plain json",
			raw:         `{"is_correct": true, "confidence_score": 0.85, "reasoning": "fits the sub-class", "alternative_codes": [], "alternative_reasoning": ""}`,
			wantCorrect: true,
			wantConf:    0.85,
		},
		{
			name: "fenced json",
			raw: "```json\n" +
				`{"is_correct": false, "confidence_score": 0.4, "reasoning": "wrong division", "alternative_codes": ["46206"], "alternative_reasoning": "wholesale, not retail"}` +
				"\n```",
			wantCorrect: false,
			wantConf:    0.4,
		},
		{
			name:        "json surrounded by prose",
			raw:         `Here is my assessment: {"is_correct": true, "confidence_score": 1, "reasoning": "exact match", "alternative_codes": []} Let me know if you need more.`,
			wantCorrect: true,
			wantConf:    1,
		},
		{
			name:        "bare fence without language tag",
			raw:         "```\n{\"is_correct\": true, \"confidence_score\": 0.7, \"reasoning\": \"ok\", \"alternative_codes\": []}\n```",
			wantCorrect: true,
			wantConf:    0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := ParseVerdict(tt.raw)
			if err != nil {
				t.Fatalf("ParseVerdict() error = %v", err)
			}
			if verdict.IsCorrect != tt.wantCorrect {
				t.Errorf("IsCorrect = %v, want %v", verdict.IsCorrect, tt.wantCorrect)
			}
			if verdict.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", verdict.Confidence, tt.wantConf)
			}
			if verdict.AlternativeCodes == nil {
				t.Error("AlternativeCodes must never be nil")
			}
		})
	}
}

func TestParseVerdictSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty response", ""},
		{"no json at all", "I cannot classify this sample."},
		{"truncated json", `{"is_correct": true, "confidence_score":`},
		{"missing is_correct", `{"confidence_score": 0.9, "reasoning": "x", "alternative_codes": []}`},
		{"missing confidence", `{"is_correct": true, "reasoning": "x", "alternative_codes": []}`},
		{"missing reasoning", `{"is_correct": true, "confidence_score": 0.9, "alternative_codes": []}`},
		{"non-boolean verdict", `{"is_correct": "yes", "confidence_score": 0.9, "reasoning": "x", "alternative_codes": []}`},
		{"confidence above one", `{"is_correct": true, "confidence_score": 1.2, "reasoning": "x", "alternative_codes": []}`},
		{"confidence below zero", `{"is_correct": true, "confidence_score": -0.1, "reasoning": "x", "alternative_codes": []}`},
		{"confidence as string", `{"is_correct": true, "confidence_score": "high", "reasoning": "x", "alternative_codes": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVerdict(tt.raw)
			if err == nil {
				t.Fatal("ParseVerdict() = nil error, want SchemaError")
			}
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Errorf("error type = %T, want *SchemaError", err)
			}
			if KindOf(err) != KindSchemaInvalid {
				t.Errorf("KindOf() = %v, want %v", KindOf(err), KindSchemaInvalid)
			}
		})
	}
}
