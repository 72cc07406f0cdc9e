package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/acses/curator/internal/common"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	w.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestStatusCommandRunsOverride(t *testing.T) {
	dir := t.TempDir()

	datasetPath := filepath.Join(dir, "samples.csv")
	if err := os.WriteFile(datasetPath, []byte(
		"sample_id,text,kbli_code\nA,Warung kopi,56303\nB,Jasa laundry,96200\n"), 0644); err != nil {
		t.Fatal(err)
	}

	logPath := filepath.Join(dir, "results.jsonl")
	if err := os.WriteFile(logPath, []byte(
		`{"sample_id":"A","run_number":1,"success":true,"is_correct":true,"confidence_score":1,"alternative_codes":[],"timestamp":"t","model_name":"m","processing_time_seconds":1}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	config := common.NewDefaultConfig()
	config.Data.Dataset = datasetPath

	// -runs must shape the plan exactly as it does for run, so status and
	// run never disagree about progress against the same log.
	out := captureStdout(t, func() {
		code := statusCommand(config, common.GetLogger(), []string{"-runs", "2", "-log", logPath})
		if code != 0 {
			t.Errorf("statusCommand = %d, want 0", code)
		}
	})

	if !strings.Contains(out, "Plan size:        4") {
		t.Errorf("plan size not computed from -runs override:\n%s", out)
	}
	if !strings.Contains(out, "Remaining units:  3") {
		t.Errorf("remaining units wrong:\n%s", out)
	}
}
