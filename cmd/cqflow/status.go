package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cqflow/cqflow/internal/config"
	"github.com/cqflow/cqflow/internal/logging"
	"github.com/cqflow/cqflow/internal/pipeline"
)

// statusFlags holds the parsed `cqflow status` command line.
type statusFlags struct {
	showHelp   bool
	verbose    bool
	configPath string
}

// parseStatusFlags hand-parses the status command line.
func parseStatusFlags(args []string) (statusFlags, error) {
	var flags statusFlags

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--help", "-h":
			flags.showHelp = true
		case "--verbose", "-v":
			flags.verbose = true
		case "--config":
			value, next, err := flagValue(args, i, arg)
			if err != nil {
				return flags, err
			}
			flags.configPath, i = value, next
		default:
			return flags, fmt.Errorf("unknown option: %s\nRun 'cqflow status --help' for usage", arg)
		}
	}

	return flags, nil
}

// formatStatusItems renders one line per prerequisite, with a detail line
// for anything not ready.
func formatStatusItems(items []config.Item) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("  %s %-10s %s\n", item.Status.Symbol(), item.Name, item.Path))
		if item.Detail != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", item.Detail))
		}
	}
	return sb.String()
}

// runStatus handles the `cqflow status` subcommand
// Returns an exit code (0 = all prerequisites ready, 1 = attention needed)
// and an error
func runStatus(args []string) (int, error) {
	flags, err := parseStatusFlags(args)
	if err != nil {
		return 1, err
	}

	if flags.showHelp {
		printStatusHelp()
		return 0, nil
	}

	configureLogging(flags.verbose)

	// Status only stats local files, so a short budget is plenty.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, configPath, err := loadConfig(ctx, flags.configPath, flags.verbose)
	if err != nil {
		return 1, err
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = os.Getenv(envCacheDir)
	}

	resolver := pipeline.NewResolver(cfg, logging.NewAdapter(logging.Component("fetch")))
	detector := config.NewDefaultStatusDetector(resolver)

	items, err := detector.DetectStatus(ctx, cfg)
	if err != nil {
		return 1, fmt.Errorf("detect status: %w", err)
	}

	name := cfg.Name
	if name == "" {
		name = "default"
	}
	if configPath != "" {
		fmt.Printf("Pipeline %s (%s)\n", name, configPath)
	} else {
		fmt.Printf("Pipeline %s (built-in defaults)\n", name)
	}
	fmt.Println()
	fmt.Print(formatStatusItems(items))
	fmt.Println()

	notReady := 0
	for _, item := range items {
		if item.Status != config.StatusReady {
			notReady++
		}
	}

	if notReady > 0 {
		fmt.Printf("%d of %d prerequisites need attention\n", notReady, len(items))
		return 1, nil
	}

	fmt.Println("All prerequisites ready")
	return 0, nil
}

// printStatusHelp prints help for the status command
func printStatusHelp() {
	fmt.Println("Usage: cqflow status [options]")
	fmt.Println()
	fmt.Println("Check that everything a pipeline run needs is in place: the sync spec,")
	fmt.Println("the cached cloudquery binary and, when configured, the verification")
	fmt.Println("public key. Never touches the network.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h, --help      Show this help message")
	fmt.Println("  --config FILE   Pipeline definition file (default: ./pipeline.lua if present)")
	fmt.Println("  -v, --verbose   Enable debug logging")
	fmt.Println()
	fmt.Println("Symbols:")
	fmt.Println("  ✓  Ready")
	fmt.Println("  ?  Present but unusable (empty file, missing exec bit, ...)")
	fmt.Println("  ✗  Missing")
	fmt.Println()
	fmt.Println("Exit codes:")
	fmt.Println("  0  All prerequisites ready")
	fmt.Println("  1  One or more prerequisites missing or unusable")
	fmt.Println()
}
