package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.LLM.Provider != "gemini" {
		t.Errorf("Provider = %q, want gemini", cfg.LLM.Provider)
	}
	if cfg.Rate.SafetyFactor != 1.1 {
		t.Errorf("SafetyFactor = %v, want 1.1", cfg.Rate.SafetyFactor)
	}
	if cfg.Run.Runs != 3 {
		t.Errorf("Runs = %d, want 3", cfg.Run.Runs)
	}
	if cfg.Run.MaxUnitRetries != 0 {
		t.Errorf("MaxUnitRetries = %d, want 0", cfg.Run.MaxUnitRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "curator.toml")
	override := filepath.Join(dir, "curator.local.toml")

	if err := os.WriteFile(base, []byte(`
[llm]
model = "gemini-1.5-flash-latest"

[run]
runs = 5
`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(override, []byte(`
[run]
runs = 2
`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFiles(base, override)
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}
	if cfg.LLM.Model != "gemini-1.5-flash-latest" {
		t.Errorf("Model = %q", cfg.LLM.Model)
	}
	if cfg.Run.Runs != 2 {
		t.Errorf("Runs = %d, want 2 (later file wins)", cfg.Run.Runs)
	}
	// Untouched sections keep defaults.
	if cfg.Rate.DefaultRPM != 15 {
		t.Errorf("DefaultRPM = %d, want default 15", cfg.Rate.DefaultRPM)
	}
}

func TestLoadFromFilesEnvOverrides(t *testing.T) {
	t.Setenv("CURATOR_RUNS", "7")
	t.Setenv("CURATOR_RATE_SAFETY_FACTOR", "1.5")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}
	if cfg.Run.Runs != 7 {
		t.Errorf("Runs = %d, want 7 from env", cfg.Run.Runs)
	}
	if cfg.Rate.SafetyFactor != 1.5 {
		t.Errorf("SafetyFactor = %v, want 1.5 from env", cfg.Rate.SafetyFactor)
	}
	if cfg.LLM.GoogleAPIKey != "test-key" {
		t.Errorf("GoogleAPIKey = %q", cfg.LLM.GoogleAPIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "openai" }},
		{"safety factor at 1", func(c *Config) { c.Rate.SafetyFactor = 1.0 }},
		{"zero runs", func(c *Config) { c.Run.Runs = 0 }},
		{"negative retries", func(c *Config) { c.Run.MaxUnitRetries = -1 }},
		{"bad timeout", func(c *Config) { c.LLM.Timeout = "soon" }},
		{"zero default rpm", func(c *Config) { c.Rate.DefaultRPM = 0 }},
		{"zero model rpm", func(c *Config) { c.Rate.RPM["gemini-1.5-pro-latest"] = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMinInterval(t *testing.T) {
	rate := &RateConfig{
		RPM:          map[string]int{"gemini-1.5-flash-latest": 15},
		DefaultRPM:   10,
		SafetyFactor: 1.1,
	}

	// (60 / 15) * 1.1 = 4.4s
	if got := rate.MinInterval("gemini-1.5-flash-latest"); got != 4400*time.Millisecond {
		t.Errorf("MinInterval = %v, want 4.4s", got)
	}
	// Unknown models fall back to the default RPM: (60 / 10) * 1.1 = 6.6s
	if got := rate.MinInterval("some-new-model"); got != 6600*time.Millisecond {
		t.Errorf("MinInterval = %v, want 6.6s", got)
	}
}

func TestResultsPath(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Run.ResultsDir = "out"

	got := cfg.ResultsPath("gemini-1.5-flash-latest", "data/input/mini_test_with_ids.csv")
	want := filepath.Join("out", "gemini_1_5_flash_latest_mini_test_with_ids.jsonl")
	if got != want {
		t.Errorf("ResultsPath = %q, want %q", got, want)
	}
}
