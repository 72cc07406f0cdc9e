package main

import (
	"flag"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/acses/curator/internal/common"
	"github.com/acses/curator/internal/validation"
)

// validateCommand runs the pre-flight setup checks and reports each result.
func validateCommand(config *common.Config, logger arbor.ILogger, args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	result := validation.ValidateSetup(config, logger)

	for _, check := range result.Checks {
		status := "ok"
		if !check.Valid {
			status = "FAIL"
		}
		fmt.Printf("  [%-4s] %-20s %s\n", status, check.Name, check.Message)
	}

	if !result.Valid() {
		fmt.Printf("\nValidation failed: %d of %d checks did not pass\n", len(result.FailedChecks()), len(result.Checks))
		return 1
	}

	fmt.Printf("\nAll %d checks passed\n", len(result.Checks))
	return 0
}
