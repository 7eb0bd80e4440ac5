package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cqflow/cqflow/internal/config"
	"github.com/cqflow/cqflow/internal/logging"
	"github.com/cqflow/cqflow/internal/pipeline"
	"github.com/cqflow/cqflow/internal/runner"
)

// syncFlags holds the parsed `cqflow sync` command line.
type syncFlags struct {
	showHelp bool
	verbose  bool
	specFile string
	binPath  string
	timeout  time.Duration
}

// parseSyncFlags hand-parses the sync command line.
func parseSyncFlags(args []string) (syncFlags, error) {
	var flags syncFlags

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--help", "-h":
			flags.showHelp = true
		case "--verbose", "-v":
			flags.verbose = true
		case "--spec":
			value, next, err := flagValue(args, i, arg)
			if err != nil {
				return flags, err
			}
			flags.specFile, i = value, next
		case "--bin":
			value, next, err := flagValue(args, i, arg)
			if err != nil {
				return flags, err
			}
			flags.binPath, i = value, next
		case "--timeout":
			value, next, err := flagValue(args, i, arg)
			if err != nil {
				return flags, err
			}
			d, err := time.ParseDuration(value)
			if err != nil || d <= 0 {
				return flags, fmt.Errorf("invalid --timeout value: %s", value)
			}
			flags.timeout, i = d, next
		default:
			return flags, fmt.Errorf("unknown option: %s\nRun 'cqflow sync --help' for usage", arg)
		}
	}

	return flags, nil
}

// locateCachedBinary finds the default cached binary without downloading.
func locateCachedBinary(ctx context.Context) (string, error) {
	cfg := config.Default()
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = os.Getenv(envCacheDir)
	}

	resolver := pipeline.NewResolver(cfg, logging.NewAdapter(logging.Component("fetch")))
	path, err := resolver.Locate(ctx, cfg.Version)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no cached binary at %s\nRun 'cqflow fetch' first, or pass --bin", path)
		}
		return "", fmt.Errorf("check cached binary: %w", err)
	}

	return path, nil
}

// runSync handles the `cqflow sync` subcommand
func runSync(args []string) error {
	flags, err := parseSyncFlags(args)
	if err != nil {
		return err
	}

	if flags.showHelp {
		printSyncHelp()
		return nil
	}

	if flags.specFile == "" {
		return fmt.Errorf("no sync spec specified; run 'cqflow sync --help' for usage")
	}

	configureLogging(flags.verbose)

	ctx := context.Background()

	binPath := flags.binPath
	if binPath == "" {
		binPath, err = locateCachedBinary(ctx)
		if err != nil {
			return err
		}
	}

	opts := []runner.Option{
		runner.WithLogger(logging.NewAdapter(logging.Component("runner"))),
		runner.WithStdoutWriter(os.Stdout),
		runner.WithStderrWriter(os.Stderr),
	}
	if flags.timeout > 0 {
		opts = append(opts, runner.WithTimeout(flags.timeout))
	}

	client := runner.NewClient(binPath, opts...)
	result, err := client.Sync(ctx, flags.specFile)
	if err != nil {
		var syncErr *runner.SyncError
		if errors.As(err, &syncErr) {
			// The child's output already streamed to the terminal, so the
			// error keeps only the summary line.
			return fmt.Errorf("cloudquery sync failed with exit code %d", syncErr.ExitCode)
		}
		return err
	}

	fmt.Println()
	fmt.Printf("✓ Sync completed in %s\n", result.Duration.Round(time.Millisecond))
	return nil
}

// printSyncHelp prints help for the sync command
func printSyncHelp() {
	fmt.Println("Usage: cqflow sync --spec FILE [options]")
	fmt.Println()
	fmt.Println("Run `cloudquery sync` with an already-fetched binary, streaming the")
	fmt.Println("child's output to the terminal.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h, --help      Show this help message")
	fmt.Println("  --spec FILE     Sync spec to run (required)")
	fmt.Println("  --bin PATH      CloudQuery binary (default: the cached binary)")
	fmt.Println("  --timeout DUR   Abort the sync after this duration, e.g. 45m")
	fmt.Println("  -v, --verbose   Enable debug logging")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  cqflow sync --spec sync_spec.yml")
	fmt.Println("  cqflow sync --spec spec.yml --timeout 45m")
	fmt.Println("  cqflow sync --spec spec.yml --bin /usr/local/bin/cloudquery")
	fmt.Println()
	fmt.Println("Exit codes:")
	fmt.Println("  0  Sync completed")
	fmt.Println("  1  Sync failed (the child's exit code is part of the error)")
	fmt.Println()
}
