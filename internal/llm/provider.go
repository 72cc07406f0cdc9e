// Package llm performs single classification calls against a cloud LLM
// provider, validates the structured response, and classifies failures into
// a retry taxonomy. It never writes to the result log itself.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/acses/curator/internal/common"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// Provider performs one classification call. Classify returns either a
// validated verdict or an error from the failure taxonomy (RateLimitedError,
// TransientError, SchemaError, FatalError).
type Provider interface {
	Classify(ctx context.Context, prompt string) (*Verdict, error)
	Model() string
	Close() error
}

// DetectProvider determines the provider type from a model string.
// "claude-*" and "claude/..." map to Claude, "gemini-*" and "gemini/..."
// to Gemini; anything else falls back to the configured provider.
func DetectProvider(model, configured string) ProviderType {
	m := strings.ToLower(model)

	if strings.HasPrefix(m, "claude/") || strings.HasPrefix(m, "anthropic/") || strings.HasPrefix(m, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(m, "gemini/") || strings.HasPrefix(m, "google/") || strings.HasPrefix(m, "gemini-") {
		return ProviderGemini
	}

	return ProviderType(configured)
}

// NormalizeModel removes a provider prefix from a model name if present.
func NormalizeModel(model string) string {
	for _, prefix := range []string{"claude/", "anthropic/", "gemini/", "google/"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// NewProvider creates the provider implementation for the configured model.
func NewProvider(ctx context.Context, cfg *common.LLMConfig, rateCfg *common.RateConfig, logger arbor.ILogger) (Provider, error) {
	switch DetectProvider(cfg.Model, cfg.Provider) {
	case ProviderClaude:
		return NewClaudeProvider(cfg, rateCfg, logger)
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg, rateCfg, logger)
	default:
		return nil, fmt.Errorf("unsupported provider %q for model %q", cfg.Provider, cfg.Model)
	}
}
