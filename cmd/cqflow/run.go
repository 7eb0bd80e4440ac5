package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cqflow/cqflow/internal/config"
	"github.com/cqflow/cqflow/internal/logging"
	"github.com/cqflow/cqflow/internal/pipeline"
	"github.com/cqflow/cqflow/internal/platform"
)

// runFlags holds the parsed `cqflow run` command line.
type runFlags struct {
	showHelp   bool
	verbose    bool
	force      bool
	journal    bool
	configPath string
	specFile   string
	version    string
	cacheDir   string
	retries    int // -1 means not set
}

// parseRunFlags hand-parses the run command line.
func parseRunFlags(args []string) (runFlags, error) {
	flags := runFlags{retries: -1}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--help", "-h":
			flags.showHelp = true
		case "--verbose", "-v":
			flags.verbose = true
		case "--force":
			flags.force = true
		case "--journal":
			flags.journal = true
		case "--config":
			value, next, err := flagValue(args, i, arg)
			if err != nil {
				return flags, err
			}
			flags.configPath, i = value, next
		case "--spec":
			value, next, err := flagValue(args, i, arg)
			if err != nil {
				return flags, err
			}
			flags.specFile, i = value, next
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
		case "--retries":
			value, next, err := flagValue(args, i, arg)
			if err != nil {
				return flags, err
			}
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return flags, fmt.Errorf("invalid --retries value: %s", value)
			}
			flags.retries, i = n, next
		default:
			return flags, fmt.Errorf("unknown option: %s\nRun 'cqflow run --help' for usage", arg)
		}
	}

	return flags, nil
}

// loadConfig loads a pipeline definition. An explicit path must exist; with
// no path, ./pipeline.lua is used when present and the built-in defaults
// otherwise. The returned path is empty when no file was read.
func loadConfig(ctx context.Context, path string, verbose bool) (*config.Config, string, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return config.Default(), "", nil
		}
		path = defaultConfigFile
	}

	parser := config.NewParser(platform.NewDetector()).
		WithLogger(logging.NewAdapter(logging.Component("config")))

	cfg, err := parser.ParseFile(ctx, path)
	if err != nil {
		return nil, "", fmt.Errorf("%s", config.FormatError(err, verbose))
	}

	return cfg, path, nil
}

// applyRunOverrides lets command-line flags win over definition values, with
// the CQFLOW_CACHE_DIR environment variable as the last word on the cache
// directory before the system temp fallback.
func applyRunOverrides(cfg *config.Config, flags runFlags) {
	if flags.specFile != "" {
		cfg.SpecFile = flags.specFile
	}
	if flags.version != "" {
		cfg.Version = flags.version
	}
	if flags.cacheDir != "" {
		cfg.Cache.Dir = flags.cacheDir
	}
	if flags.retries >= 0 {
		cfg.Retries = flags.retries
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = os.Getenv(envCacheDir)
	}
}

// warnSensitiveData scans files for hardcoded credentials and prints an
// advisory warning for each file with findings. Findings never block a run:
// sync specs legitimately reference credential-shaped environment keys.
func warnSensitiveData(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			// A missing spec surfaces later with better context.
			continue
		}
		findings := config.DetectSensitiveData(string(data))
		if len(findings) == 0 {
			continue
		}
		fmt.Fprintf(os.Stderr, "\n%s:", path)
		fmt.Fprint(os.Stderr, config.FormatSensitiveDataWarning(findings))
	}
}

// runRun handles the `cqflow run` subcommand
func runRun(args []string) error {
	flags, err := parseRunFlags(args)
	if err != nil {
		return err
	}

	if flags.showHelp {
		printRunHelp()
		return nil
	}

	configureLogging(flags.verbose)
	log := logging.Component("cli")

	// Per-phase budgets (download timeout, sync timeout) come from the
	// definition, so the run itself is unbounded here.
	ctx := context.Background()

	cfg, configPath, err := loadConfig(ctx, flags.configPath, flags.verbose)
	if err != nil {
		return err
	}

	applyRunOverrides(cfg, flags)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s", config.FormatError(err, flags.verbose))
	}

	warnSensitiveData(configPath, cfg.SpecFile)

	resolver := pipeline.NewResolver(cfg, logging.NewAdapter(logging.Component("fetch")))

	if flags.force {
		if err := resolver.Remove(ctx, cfg.Version); err != nil {
			return fmt.Errorf("force refresh: %w", err)
		}
	}

	// Journals land under <state dir>/runs.
	cqflowDir, err := getCqflowDir()
	if err != nil {
		return fmt.Errorf("get cqflow directory: %w", err)
	}

	p := pipeline.New(cfg,
		pipeline.WithStateDir(cqflowDir),
		pipeline.WithResolver(resolver),
		pipeline.WithLogger(logging.NewAdapter(logging.Component("pipeline"))),
	)

	log.Info().
		Str("pipeline", p.Name()).
		Str("version", cfg.Version).
		Str("spec_file", cfg.SpecFile).
		Msg("starting pipeline run")

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if result.Sync != nil && result.Sync.Stdout != "" {
		fmt.Print(result.Sync.Stdout)
	}

	fmt.Println()
	fmt.Printf("✓ Pipeline %s completed in %s\n", p.Name(), result.Duration.Round(time.Millisecond))
	fmt.Printf("  Binary: %s\n", result.BinaryPath)
	if flags.journal && result.JournalPath != "" {
		fmt.Printf("  Journal: %s\n", result.JournalPath)
	}

	return nil
}

// printRunHelp prints help for the run command
func printRunHelp() {
	fmt.Println("Usage: cqflow run [options]")
	fmt.Println()
	fmt.Println("Run the full pipeline: fetch the cloudquery binary, then sync.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h, --help       Show this help message")
	fmt.Println("  --config FILE    Pipeline definition file (default: ./pipeline.lua if present)")
	fmt.Println("  --spec FILE      Sync spec passed to cloudquery sync")
	fmt.Println("  --version TAG    CloudQuery release tag, e.g. v6.4.1")
	fmt.Println("  --cache-dir DIR  Binary cache directory (default: system temp)")
	fmt.Println("  --retries N      Retries per pipeline step")
	fmt.Println("  --force          Delete the cached binary and download fresh")
	fmt.Println("  --journal        Print the run journal path on completion")
	fmt.Println("  -v, --verbose    Enable debug logging")
	fmt.Println()
	fmt.Println("Flags override values from the definition file. The cache directory")
	fmt.Println("falls back to CQFLOW_CACHE_DIR, then the system temp directory.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  cqflow run                           Run ./pipeline.lua or the defaults")
	fmt.Println("  cqflow run --config prod.lua         Run a specific definition")
	fmt.Println("  cqflow run --spec spec.yml --force   Fresh download, explicit spec")
	fmt.Println()
	fmt.Println("Exit codes:")
	fmt.Println("  0  Pipeline completed")
	fmt.Println("  1  A step failed (the sync exit code is part of the error)")
	fmt.Println()
}
