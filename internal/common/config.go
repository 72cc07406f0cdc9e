package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig `toml:"logging"`
	LLM         LLMConfig     `toml:"llm"`
	Rate        RateConfig    `toml:"rate"`
	Run         RunConfig     `toml:"run"`
	Data        DataConfig    `toml:"data"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// LLMConfig selects the classification provider and its generation settings.
type LLMConfig struct {
	Provider        string  `toml:"provider" validate:"oneof=gemini claude"`
	Model           string  `toml:"model"`
	GoogleAPIKey    string  `toml:"google_api_key"`
	AnthropicAPIKey string  `toml:"anthropic_api_key"`
	Timeout         string  `toml:"timeout"`
	Temperature     float32 `toml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens       int     `toml:"max_tokens" validate:"gte=0"`
}

// RateConfig holds the per-model RPM ceilings the provider enforces.
// The pacer derives its minimum request spacing from these values.
type RateConfig struct {
	RPM             map[string]int `toml:"rpm"`         // model name -> requests per minute
	DefaultRPM      int            `toml:"default_rpm"` // fallback for models not in the table
	SafetyFactor    float64        `toml:"safety_factor" validate:"gt=1"`
	HonorRetryAfter bool           `toml:"honor_retry_after"`
}

// RunConfig controls the shape of a single pass over the work plan.
type RunConfig struct {
	Runs           int    `toml:"runs" validate:"gte=1"` // independent runs per sample
	MaxUnitRetries int    `toml:"max_unit_retries" validate:"gte=0"`
	ResultsDir     string `toml:"results_dir"`
}

// DataConfig points at the externally supplied inputs.
type DataConfig struct {
	Dataset  string `toml:"dataset"`  // sample CSV path
	Codebook string `toml:"codebook"` // hierarchical codebook CSV path
	Template string `toml:"template"` // prompt template path
}

// NewDefaultConfig returns a Config populated with defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash-lite",
			Timeout:     "60s",
			Temperature: 0.7,
			MaxTokens:   2048,
		},
		Rate: RateConfig{
			RPM: map[string]int{
				"gemini-1.5-flash-latest": 15,
				"gemini-1.5-pro-latest":   2,
				"gemini-2.5-flash-lite":   15,
			},
			DefaultRPM:      15,
			SafetyFactor:    1.1,
			HonorRetryAfter: true,
		},
		Run: RunConfig{
			Runs:           3,
			MaxUnitRetries: 0,
			ResultsDir:     "data/output/pilot_results",
		},
		Data: DataConfig{
			Dataset:  "data/input/mini_test_with_ids.csv",
			Codebook: "data/output/kbli_codebook_hierarchical.csv",
			Template: "prompts/master_prompt.txt",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints on the loaded configuration.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
		return fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
	}
	if c.Rate.DefaultRPM <= 0 {
		return fmt.Errorf("rate.default_rpm must be positive, got %d", c.Rate.DefaultRPM)
	}
	for model, rpm := range c.Rate.RPM {
		if rpm <= 0 {
			return fmt.Errorf("rate.rpm[%s] must be positive, got %d", model, rpm)
		}
	}
	return nil
}

// RPMFor returns the configured requests-per-minute ceiling for a model,
// falling back to DefaultRPM for models not in the table.
func (c *RateConfig) RPMFor(model string) int {
	if rpm, ok := c.RPM[model]; ok {
		return rpm
	}
	return c.DefaultRPM
}

// MinInterval returns the minimum spacing between request starts for a model:
// (60 / rpm) * safety_factor.
func (c *RateConfig) MinInterval(model string) time.Duration {
	rpm := c.RPMFor(model)
	return time.Duration(float64(time.Minute) / float64(rpm) * c.SafetyFactor)
}

// ResultsPath builds the JSONL log path for a model/dataset pair, matching
// the historical naming scheme so existing logs keep resuming.
func (c *Config) ResultsPath(model, datasetPath string) string {
	modelSafe := strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(model)
	datasetSafe := strings.TrimSuffix(filepath.Base(datasetPath), filepath.Ext(datasetPath))
	return filepath.Join(c.Run.ResultsDir, fmt.Sprintf("%s_%s.jsonl", modelSafe, datasetSafe))
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CURATOR_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Logging configuration
	if level := os.Getenv("CURATOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("CURATOR_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// LLM configuration
	if provider := os.Getenv("CURATOR_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if model := os.Getenv("CURATOR_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.LLM.GoogleAPIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.LLM.AnthropicAPIKey = key
	}
	if timeout := os.Getenv("CURATOR_LLM_TIMEOUT"); timeout != "" {
		config.LLM.Timeout = timeout
	}

	// Rate configuration
	if rpm := os.Getenv("CURATOR_RATE_DEFAULT_RPM"); rpm != "" {
		if r, err := strconv.Atoi(rpm); err == nil {
			config.Rate.DefaultRPM = r
		}
	}
	if safety := os.Getenv("CURATOR_RATE_SAFETY_FACTOR"); safety != "" {
		if s, err := strconv.ParseFloat(safety, 64); err == nil {
			config.Rate.SafetyFactor = s
		}
	}
	if honor := os.Getenv("CURATOR_RATE_HONOR_RETRY_AFTER"); honor != "" {
		if h, err := strconv.ParseBool(honor); err == nil {
			config.Rate.HonorRetryAfter = h
		}
	}

	// Run configuration
	if runs := os.Getenv("CURATOR_RUNS"); runs != "" {
		if n, err := strconv.Atoi(runs); err == nil {
			config.Run.Runs = n
		}
	}
	if retries := os.Getenv("CURATOR_MAX_UNIT_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil {
			config.Run.MaxUnitRetries = n
		}
	}
	if dir := os.Getenv("CURATOR_RESULTS_DIR"); dir != "" {
		config.Run.ResultsDir = dir
	}

	// Data configuration
	if dataset := os.Getenv("CURATOR_DATASET"); dataset != "" {
		config.Data.Dataset = dataset
	}
	if codebook := os.Getenv("CURATOR_CODEBOOK"); codebook != "" {
		config.Data.Codebook = codebook
	}
	if template := os.Getenv("CURATOR_TEMPLATE"); template != "" {
		config.Data.Template = template
	}
}
