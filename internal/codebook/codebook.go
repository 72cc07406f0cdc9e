// Package codebook loads the hierarchical KBLI reference codebook and
// renders the hierarchy context block injected into prompts.
package codebook

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry is one leaf code with its full five-level hierarchy.
type Entry struct {
	Code1  string // section
	Title1 string
	Code2  string // division
	Title2 string
	Code3  string // group
	Title3 string
	Code4  string // class
	Title4 string
	Code5  string // sub-class (leaf)
	Title5 string
	Desc5  string
}

// Codebook indexes entries by their leaf code.
type Codebook struct {
	entries map[string]Entry
}

// Load reads the hierarchical codebook CSV. Expected columns: code_1..code_5,
// title_1..title_5 and desc_5, matched by header name.
func Load(path string) (*Codebook, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open codebook %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read codebook header from %s: %w", path, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"code_5", "title_5"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("codebook %s is missing required column %q", path, required)
		}
	}

	cb := &Codebook{entries: make(map[string]Entry)}
	get := func(record []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read codebook row from %s: %w", path, err)
		}

		entry := Entry{
			Code1:  get(record, "code_1"),
			Title1: get(record, "title_1"),
			Code2:  get(record, "code_2"),
			Title2: get(record, "title_2"),
			Code3:  get(record, "code_3"),
			Title3: get(record, "title_3"),
			Code4:  get(record, "code_4"),
			Title4: get(record, "title_4"),
			Code5:  get(record, "code_5"),
			Title5: get(record, "title_5"),
			Desc5:  get(record, "desc_5"),
		}
		if entry.Code5 == "" {
			continue
		}
		cb.entries[entry.Code5] = entry
	}

	return cb, nil
}

// Lookup returns the entry for a leaf code.
func (cb *Codebook) Lookup(code string) (Entry, bool) {
	entry, ok := cb.entries[code]
	return entry, ok
}

// Len returns the number of leaf codes.
func (cb *Codebook) Len() int {
	return len(cb.entries)
}

// FormatHierarchy renders the multi-line hierarchy context block for a
// prompt, one level per line, with the leaf description appended when
// available.
func (e Entry) FormatHierarchy() string {
	lines := []string{
		fmt.Sprintf("- Section %s: %s", e.Code1, e.Title1),
		fmt.Sprintf("- Division %s: %s", e.Code2, e.Title2),
		fmt.Sprintf("- Group %s: %s", e.Code3, e.Title3),
		fmt.Sprintf("- Class %s: %s", e.Code4, e.Title4),
		fmt.Sprintf("- Sub-Class %s: %s", e.Code5, e.Title5),
	}
	if strings.TrimSpace(e.Desc5) != "" {
		lines = append(lines, fmt.Sprintf("- Description: %s", e.Desc5))
	}
	return strings.Join(lines, "\n")
}
