package main

import (
	"flag"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/acses/curator/internal/common"
	"github.com/acses/curator/internal/dataset"
)

// addIDsCommand assigns UUID sample identifiers to a dataset CSV that does
// not have them yet.
func addIDsCommand(config *common.Config, logger arbor.ILogger, args []string) int {
	fs := flag.NewFlagSet("add-ids", flag.ExitOnError)
	input := fs.String("in", "", "Input dataset CSV (required)")
	output := fs.String("out", "", "Output dataset CSV (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *input == "" || *output == "" {
		fmt.Println("add-ids requires both -in and -out")
		return 2
	}

	count, err := dataset.AssignIDs(*input, *output)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to assign sample IDs")
		return 1
	}

	logger.Info().
		Int("samples", count).
		Str("output", *output).
		Msg("Assigned unique sample IDs")
	fmt.Printf("Assigned IDs to %d samples -> %s\n", count, *output)
	return 0
}
