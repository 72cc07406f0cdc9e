// Package results defines the durable result log: one self-describing JSON
// record per attempt, append-only, consumed by external analysis tooling.
package results

import (
	"time"
)

// Record captures the outcome of a single classification attempt. Each
// record is written as one JSONL line. The field names match the historical
// log schema so existing logs remain readable and resumable.
type Record struct {
	SampleID    string `json:"sample_id"`
	RunNumber   int    `json:"run_number"`
	ModelName   string `json:"model_name"`
	DatasetName string `json:"dataset_name,omitempty"`
	Timestamp   string `json:"timestamp"`
	ProcessSecs float64 `json:"processing_time_seconds"`
	Success     bool    `json:"success"`

	// Sample context carried along for downstream analysis.
	OriginalText string `json:"original_text,omitempty"`
	AssignedCode string `json:"assigned_kbli_code,omitempty"`
	Category     string `json:"category,omitempty"`

	// Verdict fields, present on success. Pointers so failure records
	// serialize them as null, matching the historical error records.
	IsCorrect            *bool    `json:"is_correct"`
	ConfidenceScore      *float64 `json:"confidence_score"`
	Reasoning            string   `json:"reasoning,omitempty"`
	AlternativeCodes     []string `json:"alternative_codes"`
	AlternativeReasoning string   `json:"alternative_reasoning,omitempty"`

	// Failure fields, present when Success is false.
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Key returns the work-unit identity of the record.
func (r *Record) Key() (sampleID string, run int) {
	return r.SampleID, r.RunNumber
}

// NewTimestamp formats the current time the way the log expects.
func NewTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}
