// Package dataset loads the sample CSVs the engine classifies. Samples are
// immutable, externally supplied, and identified by a stable unique ID.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sample is one coded job description to be verified against the codebook.
type Sample struct {
	ID        string // stable unique identifier
	Text      string // free-text job/activity description
	KBLICode  string // assigned classification code to verify
	Category  string // difficulty/category label, optional
	CreatedAt string // when the ID was assigned, optional
	Dataset   string // source file name
}

// LoadSamples reads a sample CSV with a header row. Required columns are
// "text" and "kbli_code"; "sample_id", "category" and "id_created_at" are
// optional. Rows without a sample_id get a positional "row_N" fallback so
// older datasets without assigned IDs still work.
func LoadSamples(path string) ([]Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header from %s: %w", path, err)
	}

	cols := columnIndex(header)
	if _, ok := cols["text"]; !ok {
		return nil, fmt.Errorf("dataset %s is missing required column %q", path, "text")
	}
	if _, ok := cols["kbli_code"]; !ok {
		return nil, fmt.Errorf("dataset %s is missing required column %q", path, "kbli_code")
	}

	datasetName := filepath.Base(path)
	var samples []Sample
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset row %d from %s: %w", row+1, path, err)
		}

		sample := Sample{
			ID:        field(record, cols, "sample_id"),
			Text:      field(record, cols, "text"),
			KBLICode:  field(record, cols, "kbli_code"),
			Category:  field(record, cols, "category"),
			CreatedAt: field(record, cols, "id_created_at"),
			Dataset:   datasetName,
		}
		if sample.ID == "" {
			sample.ID = fmt.Sprintf("row_%d", row)
		}

		samples = append(samples, sample)
		row++
	}

	return samples, nil
}

// IDs returns the sample IDs in dataset order.
func IDs(samples []Sample) []string {
	ids := make([]string, len(samples))
	for i, s := range samples {
		ids[i] = s.ID
	}
	return ids
}

// ByID indexes samples by their ID.
func ByID(samples []Sample) map[string]Sample {
	index := make(map[string]Sample, len(samples))
	for _, s := range samples {
		index[s.ID] = s
	}
	return index
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
