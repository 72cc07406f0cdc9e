package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/acses/curator/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
	flag.Usage = usage
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: curator [flags] <command> [command flags]

Commands:
  run       Execute one pass over the remaining work plan
  status    Summarize progress from the result log without calling the API
  validate  Run pre-flight setup validation
  add-ids   Assign UUID sample IDs to a dataset CSV
  models    List configured models with their rate limits

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Curator version %s\n", common.GetVersion())
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("curator.toml"); err == nil {
			configFiles = append(configFiles, "curator.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)

	var code int
	switch args[0] {
	case "run":
		code = runCommand(config, logger, args[1:])
	case "status":
		code = statusCommand(config, logger, args[1:])
	case "validate":
		code = validateCommand(config, logger, args[1:])
	case "add-ids":
		code = addIDsCommand(config, logger, args[1:])
	case "models":
		code = modelsCommand(config, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		usage()
		code = 2
	}

	os.Exit(code)
}
