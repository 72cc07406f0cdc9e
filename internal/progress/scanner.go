// Package progress replays the result log to determine which work units are
// already satisfied, enabling interrupted passes to resume without redoing
// or losing completed work.
package progress

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/acses/curator/internal/plan"
	"github.com/acses/curator/internal/results"
)

// Index is the set of work units with at least one successful record.
// Units with only failure records remain incomplete and will be retried.
type Index map[plan.Unit]struct{}

// Completed reports whether the unit already has a success record.
func (ix Index) Completed(unit plan.Unit) bool {
	_, ok := ix[unit]
	return ok
}

// ScanResult is the outcome of replaying a result log.
type ScanResult struct {
	Records        []results.Record
	Index          Index
	MalformedLines int
}

// Successes counts records marked successful.
func (s *ScanResult) Successes() int {
	n := 0
	for i := range s.Records {
		if s.Records[i].Success {
			n++
		}
	}
	return n
}

// Failures counts records marked failed.
func (s *ScanResult) Failures() int {
	return len(s.Records) - s.Successes()
}

// Scan streams the JSONL log at path line by line. A missing file yields an
// empty result. Malformed lines are counted and logged but never abort the
// scan; only records with success=true mark their unit complete.
func Scan(path string, logger arbor.ILogger) (*ScanResult, error) {
	result := &ScanResult{Index: Index{}}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to open result log %s: %w", path, err)
	}
	defer file.Close()

	// ReadBytes instead of bufio.Scanner: a Scanner fails the whole scan
	// with ErrTooLong on an oversized line, and no single line may ever
	// abort the replay.
	reader := bufio.NewReader(file)
	lineNum := 0
	for {
		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, fmt.Errorf("failed to read result log %s: %w", path, readErr)
		}

		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			lineNum++
			var record results.Record
			if err := json.Unmarshal(line, &record); err != nil {
				result.MalformedLines++
				if logger != nil {
					logger.Warn().
						Int("line", lineNum).
						Err(err).
						Msg("Skipping malformed result log line")
				}
			} else {
				result.Records = append(result.Records, record)
				if record.Success {
					result.Index[plan.Unit{SampleID: record.SampleID, Run: record.RunNumber}] = struct{}{}
				}
			}
		}

		if readErr == io.EOF {
			break
		}
	}

	return result, nil
}

// Remaining filters the plan down to units without a success record,
// preserving the original plan order.
func Remaining(units []plan.Unit, index Index) []plan.Unit {
	remaining := make([]plan.Unit, 0, len(units))
	for _, unit := range units {
		if !index.Completed(unit) {
			remaining = append(remaining, unit)
		}
	}
	return remaining
}
