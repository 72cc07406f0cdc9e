package main

import (
	"flag"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/acses/curator/internal/common"
	"github.com/acses/curator/internal/dataset"
	"github.com/acses/curator/internal/llm"
	"github.com/acses/curator/internal/plan"
	"github.com/acses/curator/internal/progress"
)

// statusCommand replays the result log and prints progress without making
// any API calls.
func statusCommand(config *common.Config, logger arbor.ILogger, args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	model := fs.String("model", "", "Model whose log to inspect (overrides config)")
	datasetPath := fs.String("dataset", "", "Dataset CSV path (overrides config)")
	runs := fs.Int("runs", 0, "Runs per sample (overrides config)")
	logPath := fs.String("log", "", "Result log path (default: derived from model and dataset)")
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

	path := *logPath
	if path == "" {
		path = config.ResultsPath(llm.NormalizeModel(config.LLM.Model), config.Data.Dataset)
	}

	samples, err := dataset.LoadSamples(config.Data.Dataset)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load dataset")
		return 1
	}

	scan, err := progress.Scan(path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to scan result log")
		return 1
	}

	units := plan.Build(dataset.IDs(samples), config.Run.Runs)
	remaining := progress.Remaining(units, scan.Index)

	fmt.Printf("Result log: %s\n", path)
	fmt.Printf("  Samples:          %d\n", len(samples))
	fmt.Printf("  Runs per sample:  %d\n", config.Run.Runs)
	fmt.Printf("  Plan size:        %d\n", len(units))
	fmt.Printf("  Records:          %d (%d successes, %d failures)\n", len(scan.Records), scan.Successes(), scan.Failures())
	fmt.Printf("  Completed units:  %d\n", len(units)-len(remaining))
	fmt.Printf("  Remaining units:  %d\n", len(remaining))
	if scan.MalformedLines > 0 {
		fmt.Printf("  Malformed lines:  %d\n", scan.MalformedLines)
	}

	if total := len(scan.Records); total > 0 {
		fmt.Printf("  Success rate:     %.1f%%\n", float64(scan.Successes())/float64(total)*100)
	}

	return 0
}
