package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cqflow/cqflow/internal/logging"
	"github.com/cqflow/cqflow/internal/pipeline"
)

// fetchFlags holds the parsed `cqflow fetch` command line.
type fetchFlags struct {
	showHelp   bool
	verbose    bool
	force      bool
	configPath string
	version    string
	cacheDir   string
}

// parseFetchFlags hand-parses the fetch command line.
func parseFetchFlags(args []string) (fetchFlags, error) {
	var flags fetchFlags

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--help", "-h":
			flags.showHelp = true
		case "--verbose", "-v":
			flags.verbose = true
		case "--force":
			flags.force = true
		case "--config":
			value, next, err := flagValue(args, i, arg)
			if err != nil {
				return flags, err
			}
			flags.configPath, i = value, next
		case "--version":
			value, next, err := flagValue(args, i, arg)
			if err != nil {
				return flags, err
			}
			flags.version, i = value, next
		case "--cache-dir":
			value, next, err := flagValue(args, i, arg)
			if err != nil {
				return flags, err
			}
			flags.cacheDir, i = value, next
		default:
			return flags, fmt.Errorf("unknown option: %s\nRun 'cqflow fetch --help' for usage", arg)
		}
	}

	return flags, nil
}

// runFetch handles the `cqflow fetch` subcommand
func runFetch(args []string) error {
	flags, err := parseFetchFlags(args)
	if err != nil {
		return err
	}

	if flags.showHelp {
		printFetchHelp()
		return nil
	}

	configureLogging(flags.verbose)

	// Generous ceiling; each HTTP attempt carries its own timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	cfg, _, err := loadConfig(ctx, flags.configPath, flags.verbose)
	if err != nil {
		return err
	}

	if flags.version != "" {
		cfg.Version = flags.version
	}
	if flags.cacheDir != "" {
		cfg.Cache.Dir = flags.cacheDir
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = os.Getenv(envCacheDir)
	}

	resolver := pipeline.NewResolver(cfg, logging.NewAdapter(logging.Component("fetch")))

	if flags.force {
		if err := resolver.Remove(ctx, cfg.Version); err != nil {
			return fmt.Errorf("force refresh: %w", err)
		}
	}

	path, err := resolver.Resolve(ctx, cfg.Version)
	if err != nil {
		return err
	}

	// The path is the command's only stdout so scripts can capture it.
	fmt.Println(path)
	return nil
}

// printFetchHelp prints help for the fetch command
func printFetchHelp() {
	fmt.Println("Usage: cqflow fetch [options]")
	fmt.Println()
	fmt.Println("Download the cloudquery binary for this platform and print its path.")
	fmt.Println()
	fmt.Println("A binary already in the cache is reused without touching the network.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h, --help       Show this help message")
	fmt.Println("  --config FILE    Pipeline definition file (default: ./pipeline.lua if present)")
	fmt.Println("  --version TAG    CloudQuery release tag, e.g. v6.4.1")
	fmt.Println("  --cache-dir DIR  Binary cache directory (default: system temp)")
	fmt.Println("  --force          Delete the cached binary and download fresh")
	fmt.Println("  -v, --verbose    Enable debug logging")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  cqflow fetch                      Fetch the default version")
	fmt.Println("  cqflow fetch --version v6.4.1     Fetch a specific release")
	fmt.Println("  BIN=$(cqflow fetch)               Capture the binary path in a script")
	fmt.Println()
}
