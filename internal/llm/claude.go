package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/acses/curator/internal/common"
)

// ClaudeProvider implements Provider using the Anthropic Claude API.
type ClaudeProvider struct {
	config    *common.LLMConfig
	logger    arbor.ILogger
	client    anthropic.Client
	model     string
	timeout   time.Duration
	maxTokens int
	guard     *rate.Limiter
}

// NewClaudeProvider creates a Claude classification provider.
func NewClaudeProvider(cfg *common.LLMConfig, rateCfg *common.RateConfig, logger arbor.ILogger) (*ClaudeProvider, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or llm.anthropic_api_key in config)")
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", cfg.Timeout, err)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.AnthropicAPIKey),
	)

	model := NormalizeModel(cfg.Model)

	rpm := rateCfg.RPMFor(model)
	guard := rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)

	logger.Info().
		Str("model", model).
		Int("rpm", rpm).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude provider initialized")

	return &ClaudeProvider{
		config:    cfg,
		logger:    logger,
		client:    client,
		model:     model,
		timeout:   timeout,
		maxTokens: maxTokens,
		guard:     guard,
	}, nil
}

// Model returns the normalized model name this provider calls.
func (p *ClaudeProvider) Model() string {
	return p.model
}

// Classify sends one pre-formatted prompt and parses the JSON verdict from
// the response.
func (p *ClaudeProvider) Classify(ctx context.Context, prompt string) (*Verdict, error) {
	if prompt == "" {
		return nil, &FatalError{Err: fmt.Errorf("prompt cannot be empty")}
	}

	if err := p.guard.Wait(ctx); err != nil {
		return nil, &TransientError{Err: err}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if p.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(p.config.Temperature))
	}

	startTime := time.Now()
	resp, err := p.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return nil, classifyAPIError(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &SchemaError{Raw: "", Err: fmt.Errorf("empty response from model")}
	}

	verdict, err := ParseVerdict(text.String())
	if err != nil {
		return nil, err
	}

	p.logger.Debug().
		Str("model", p.model).
		Dur("duration", time.Since(startTime)).
		Bool("is_correct", verdict.IsCorrect).
		Msg("Claude classification completed")

	return verdict, nil
}

// Close releases the client reference.
func (p *ClaudeProvider) Close() error {
	return nil
}
