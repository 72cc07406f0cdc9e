package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// AssignIDs reads a sample CSV without stable identifiers and writes a copy
// with a UUID "sample_id" prepended to every row, plus "id_created_at" and
// "original_row_index" tracking columns appended. Returns the number of
// rows processed. The input file is never modified.
func AssignIDs(inputPath, outputPath string) (int, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open input dataset %s: %w", inputPath, err)
	}
	defer in.Close()

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read input dataset %s: %w", inputPath, err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("input dataset %s is empty", inputPath)
	}

	header := rows[0]
	for _, name := range header {
		if name == "sample_id" {
			return 0, fmt.Errorf("input dataset %s already has a sample_id column", inputPath)
		}
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create output dataset %s: %w", outputPath, err)
	}
	defer out.Close()

	writer := csv.NewWriter(out)
	createdAt := time.Now().Format(time.RFC3339)

	outHeader := append([]string{"sample_id"}, header...)
	outHeader = append(outHeader, "id_created_at", "original_row_index")
	if err := writer.Write(outHeader); err != nil {
		return 0, fmt.Errorf("failed to write output header: %w", err)
	}

	count := 0
	for i, row := range rows[1:] {
		outRow := append([]string{uuid.New().String()}, row...)
		outRow = append(outRow, createdAt, fmt.Sprintf("%d", i))
		if err := writer.Write(outRow); err != nil {
			return count, fmt.Errorf("failed to write row %d: %w", i, err)
		}
		count++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return count, fmt.Errorf("failed to flush output dataset %s: %w", outputPath, err)
	}

	return count, nil
}
