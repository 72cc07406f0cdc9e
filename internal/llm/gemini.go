package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/acses/curator/internal/common"
)

// GeminiProvider implements Provider using the Google Gemini API.
type GeminiProvider struct {
	config  *common.LLMConfig
	logger  arbor.ILogger
	client  *genai.Client
	model   string
	timeout time.Duration
	guard   *rate.Limiter
}

// NewGeminiProvider creates a Gemini classification provider. A missing API
// key is a configuration error and fails construction before any pass work
// starts.
func NewGeminiProvider(ctx context.Context, cfg *common.LLMConfig, rateCfg *common.RateConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if cfg.GoogleAPIKey == "" {
		return nil, fmt.Errorf("Google API key is required (set GEMINI_API_KEY or llm.google_api_key in config)")
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", cfg.Timeout, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GoogleAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	model := NormalizeModel(cfg.Model)

	// Coarse guard at the configured RPM. The engine's pacer remains the
	// authoritative scheduler; this limiter only catches callers that go
	// around it.
	rpm := rateCfg.RPMFor(model)
	guard := rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)

	logger.Info().
		Str("model", model).
		Int("rpm", rpm).
		Dur("timeout", timeout).
		Msg("Gemini provider initialized")

	return &GeminiProvider{
		config:  cfg,
		logger:  logger,
		client:  client,
		model:   model,
		timeout: timeout,
		guard:   guard,
	}, nil
}

// Model returns the normalized model name this provider calls.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Classify sends one pre-formatted prompt and parses the JSON verdict from
// the response.
func (p *GeminiProvider) Classify(ctx context.Context, prompt string) (*Verdict, error) {
	if prompt == "" {
		return nil, &FatalError{Err: fmt.Errorf("prompt cannot be empty")}
	}

	if err := p.guard.Wait(ctx); err != nil {
		return nil, &TransientError{Err: err}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(p.config.Temperature),
	}
	if p.config.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(p.config.MaxTokens)
	}

	startTime := time.Now()
	resp, err := p.client.Models.GenerateContent(timeoutCtx, p.model, []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(prompt)},
		},
	}, genConfig)
	if err != nil {
		return nil, classifyAPIError(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, &SchemaError{Raw: "", Err: fmt.Errorf("empty response from model")}
	}

	verdict, err := ParseVerdict(text)
	if err != nil {
		return nil, err
	}

	p.logger.Debug().
		Str("model", p.model).
		Dur("duration", time.Since(startTime)).
		Bool("is_correct", verdict.IsCorrect).
		Msg("Gemini classification completed")

	return verdict, nil
}

// Close releases the client reference. The genai client does not require
// explicit cleanup.
func (p *GeminiProvider) Close() error {
	p.client = nil
	return nil
}
