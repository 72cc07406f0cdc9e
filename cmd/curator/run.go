package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/acses/curator/internal/codebook"
	"github.com/acses/curator/internal/common"
	"github.com/acses/curator/internal/dataset"
	"github.com/acses/curator/internal/engine"
	"github.com/acses/curator/internal/llm"
	"github.com/acses/curator/internal/prompt"
	"github.com/acses/curator/internal/ratelimit"
	"github.com/acses/curator/internal/results"
	"github.com/acses/curator/internal/validation"
)

// runCommand executes one pass over the remaining work plan.
func runCommand(config *common.Config, logger arbor.ILogger, args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	model := fs.String("model", "", "Model to use (overrides config)")
	datasetPath := fs.String("dataset", "", "Dataset CSV path (overrides config)")
	runs := fs.Int("runs", 0, "Runs per sample (overrides config)")
	output := fs.String("out", "", "Result log path (default: derived from model and dataset)")
	skipValidate := fs.Bool("skip-validate", false, "Skip pre-flight setup validation")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *model != "" {
		config.LLM.Model = *model
	}
	if *datasetPath != "" {
		config.Data.Dataset = *datasetPath
	}
	if *runs > 0 {
		config.Run.Runs = *runs
	}

	common.PrintBanner(common.GetVersion())

	if !*skipValidate {
		result := validation.ValidateSetup(config, logger)
		if !result.Valid() {
			for _, check := range result.FailedChecks() {
				logger.Error().Str("check", check.Name).Msg(check.Message)
			}
			logger.Error().Msg("Setup validation failed; fix the issues above or pass -skip-validate")
			return 1
		}
	}

	samples, err := dataset.LoadSamples(config.Data.Dataset)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load dataset")
		return 1
	}

	cb, err := codebook.Load(config.Data.Codebook)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load codebook")
		return 1
	}

	prompts, err := prompt.NewBuilder(config.Data.Template, cb)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load prompt template")
		return 1
	}

	// Cancellation is honored at unit boundaries: the in-flight unit
	// completes or fails normally before the engine exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := llm.NewProvider(ctx, &config.LLM, &config.Rate, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize provider")
		return 1
	}
	defer provider.Close()

	logPath := *output
	if logPath == "" {
		logPath = config.ResultsPath(provider.Model(), config.Data.Dataset)
	}

	writer, err := results.NewWriter(logPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open result log")
		return 1
	}
	defer writer.Close()

	pacer := ratelimit.NewPacer(&config.Rate, logger)

	logger.Info().
		Str("model", provider.Model()).
		Str("dataset", config.Data.Dataset).
		Int("runs", config.Run.Runs).
		Int("rpm", config.Rate.RPMFor(provider.Model())).
		Dur("min_interval", config.Rate.MinInterval(provider.Model())).
		Str("log", logPath).
		Msg("Starting pass")

	report := engine.New(config, samples, provider, pacer, writer, prompts, logger).Run(ctx)
	printReport(report, logPath)

	if report.Status == engine.StatusAborted {
		if report.Err != nil {
			logger.Error().Err(report.Err).Msg("Pass aborted")
		}
		return 1
	}
	return 0
}

func printReport(report *engine.Report, logPath string) {
	fmt.Println()
	fmt.Printf("Pass %s\n", report.Status)
	fmt.Printf("  Plan size:        %d\n", report.PlanSize)
	fmt.Printf("  Already complete: %d\n", report.AlreadyComplete)
	fmt.Printf("  Calls this pass:  %d\n", report.Attempted)
	fmt.Printf("  New successes:    %d\n", report.NewSuccesses)
	for kind, count := range report.FailuresByKind {
		fmt.Printf("  Failures (%s): %d\n", kind, count)
	}
	if report.SkippedUnits > 0 {
		fmt.Printf("  Skipped units:    %d\n", report.SkippedUnits)
	}
	if report.MalformedLines > 0 {
		fmt.Printf("  Malformed lines:  %d\n", report.MalformedLines)
	}
	fmt.Printf("  Still incomplete: %d\n", report.Remaining)
	fmt.Printf("  Result log:       %s\n", logPath)
	if report.Remaining > 0 {
		fmt.Println("\nRun again to resume; completed units are never redone.")
	}
}
