package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cqflow/cqflow/internal/logging"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0-dev"

const (
	// envCqflowDir overrides the state directory where run journals land.
	envCqflowDir = "CQFLOW_DIR"

	// envCacheDir sets the binary cache directory when neither a flag nor
	// the pipeline definition picks one.
	envCacheDir = "CQFLOW_CACHE_DIR"

	// defaultConfigFile is the conventional definition file name. `cqflow
	// init` writes it and the other subcommands pick it up without --config.
	defaultConfigFile = "pipeline.lua"
)

func main() {
	// Handle subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version":
			fmt.Printf("cqflow %s\n", Version)
			fmt.Println("CloudQuery fetch-and-sync pipeline runner")
			return
		case "init":
			// Handle cqflow init subcommand
			if err := runInit(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "status":
			// Handle cqflow status subcommand
			code, err := runStatus(os.Args[2:])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			if code != 0 {
				os.Exit(code)
			}
			return
		case "fetch":
			// Handle cqflow fetch subcommand
			if err := runFetch(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "sync":
			// Handle cqflow sync subcommand
			if err := runSync(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "run":
			// Handle cqflow run subcommand
			if err := runRun(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	// Default: show help
	fmt.Println("╔══════════════════════════════════════════════════════════╗")
	fmt.Println("║  cqflow - CloudQuery fetch-and-sync pipeline runner      ║")
	fmt.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cqflow --version           Show version information")
	fmt.Println("  cqflow init [name]         Write a starter pipeline.lua")
	fmt.Println("  cqflow status [options]    Check pipeline prerequisites")
	fmt.Println("  cqflow fetch [options]     Download the cloudquery binary")
	fmt.Println("  cqflow sync [options]      Run cloudquery sync with a cached binary")
	fmt.Println("  cqflow run [options]       Fetch and sync in one pipeline run")
	fmt.Println()
	fmt.Println("Run 'cqflow <command> --help' for the options of each command.")
}

// getCqflowDir returns the cqflow state directory path
// First checks the CQFLOW_DIR environment variable, then falls back to ~/.config/cqflow
func getCqflowDir() (string, error) {
	// Check environment variable
	if dir := os.Getenv(envCqflowDir); dir != "" {
		return dir, nil
	}

	// Default to ~/.config/cqflow
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "cqflow"), nil
}

// configureLogging applies --verbose and initializes the process logger.
// An explicit CQFLOW_LOG_LEVEL always wins over the flag.
func configureLogging(verbose bool) {
	if verbose && os.Getenv(logging.EnvLogLevel) == "" {
		os.Setenv(logging.EnvLogLevel, "debug")
	}
	logging.ConfigureRuntime()
}

// flagValue returns the value following a value-taking flag together with
// the advanced loop index.
func flagValue(args []string, i int, flag string) (string, int, error) {
	if i+1 >= len(args) {
		return "", i, fmt.Errorf("%s requires a value", flag)
	}
	return args[i+1], i + 1, nil
}
