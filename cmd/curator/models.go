package main

import (
	"flag"
	"fmt"
	"sort"

	"github.com/acses/curator/internal/common"
)

// modelsCommand lists the configured models with their rate ceilings and
// the request spacing the pacer derives from them.
func modelsCommand(config *common.Config, args []string) int {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	names := make([]string, 0, len(config.Rate.RPM))
	for name := range config.Rate.RPM {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Configured models (safety factor %.2f):\n", config.Rate.SafetyFactor)
	for _, name := range names {
		marker := " "
		if name == config.LLM.Model {
			marker = "*"
		}
		fmt.Printf("  %s %-28s %3d rpm  %6.1fs between requests\n",
			marker, name, config.Rate.RPM[name], config.Rate.MinInterval(name).Seconds())
	}
	fmt.Printf("    %-28s %3d rpm  (fallback for unlisted models)\n", "default", config.Rate.DefaultRPM)

	return 0
}
