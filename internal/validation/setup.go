// Package validation runs pre-flight checks before a pass so
// misconfiguration fails fast instead of mid-run.
package validation

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/acses/curator/internal/codebook"
	"github.com/acses/curator/internal/common"
	"github.com/acses/curator/internal/dataset"
	"github.com/acses/curator/internal/llm"
)

// Check is the result of one validation step.
type Check struct {
	Name    string
	Valid   bool
	Message string
}

// Result aggregates all checks.
type Result struct {
	Checks []Check
}

// Valid reports whether every check passed.
func (r *Result) Valid() bool {
	for _, c := range r.Checks {
		if !c.Valid {
			return false
		}
	}
	return true
}

// FailedChecks returns the checks that did not pass.
func (r *Result) FailedChecks() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.Valid {
			failed = append(failed, c)
		}
	}
	return failed
}

func (r *Result) add(name string, valid bool, format string, args ...interface{}) {
	r.Checks = append(r.Checks, Check{Name: name, Valid: valid, Message: fmt.Sprintf(format, args...)})
}

// ValidateSetup checks the configuration, input files and API credentials
// needed for a pass. It never calls the provider.
func ValidateSetup(cfg *common.Config, logger arbor.ILogger) *Result {
	result := &Result{}

	// API key for the selected provider
	switch llm.DetectProvider(cfg.LLM.Model, cfg.LLM.Provider) {
	case llm.ProviderClaude:
		result.add("anthropic api key", cfg.LLM.AnthropicAPIKey != "",
			"ANTHROPIC_API_KEY or llm.anthropic_api_key must be set for model %s", cfg.LLM.Model)
	default:
		result.add("google api key", cfg.LLM.GoogleAPIKey != "",
			"GEMINI_API_KEY or llm.google_api_key must be set for model %s", cfg.LLM.Model)
	}

	// Required input files
	for _, input := range []struct {
		name string
		path string
	}{
		{"dataset", cfg.Data.Dataset},
		{"codebook", cfg.Data.Codebook},
		{"prompt template", cfg.Data.Template},
	} {
		if _, err := os.Stat(input.path); err != nil {
			result.add(input.name, false, "%s not readable at %s: %v", input.name, input.path, err)
		} else {
			result.add(input.name, true, "%s found at %s", input.name, input.path)
		}
	}

	// Rate configuration sanity
	result.add("safety factor", cfg.Rate.SafetyFactor > 1,
		"rate.safety_factor must be > 1, got %v", cfg.Rate.SafetyFactor)
	result.add("default rpm", cfg.Rate.DefaultRPM > 0,
		"rate.default_rpm must be positive, got %d", cfg.Rate.DefaultRPM)

	// Codebook coverage: every sample's code must resolve, or the pass will
	// skip those units forever.
	validateCoverage(cfg, result, logger)

	return result
}

func validateCoverage(cfg *common.Config, result *Result, logger arbor.ILogger) {
	samples, err := dataset.LoadSamples(cfg.Data.Dataset)
	if err != nil {
		result.add("dataset parse", false, "failed to load dataset: %v", err)
		return
	}
	result.add("dataset parse", true, "loaded %d samples", len(samples))

	if len(samples) == 0 {
		result.add("dataset size", false, "dataset %s has no samples", cfg.Data.Dataset)
		return
	}

	// Duplicate sample IDs would make work units collide.
	seen := make(map[string]bool, len(samples))
	duplicates := 0
	for _, s := range samples {
		if seen[s.ID] {
			duplicates++
		}
		seen[s.ID] = true
	}
	result.add("unique sample ids", duplicates == 0, "%d duplicate sample ids", duplicates)

	cb, err := codebook.Load(cfg.Data.Codebook)
	if err != nil {
		result.add("codebook parse", false, "failed to load codebook: %v", err)
		return
	}
	result.add("codebook parse", true, "loaded %d codes", cb.Len())

	var missing []string
	for _, s := range samples {
		if _, ok := cb.Lookup(s.KBLICode); !ok {
			missing = append(missing, s.KBLICode)
		}
	}
	if len(missing) > 0 {
		if logger != nil {
			logger.Warn().
				Int("count", len(missing)).
				Str("codes", strings.Join(dedupe(missing), ", ")).
				Msg("Sample codes missing from codebook")
		}
		result.add("codebook coverage", false, "%d samples reference codes missing from the codebook", len(missing))
	} else {
		result.add("codebook coverage", true, "all sample codes resolve")
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
