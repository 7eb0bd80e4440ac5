package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cqflow/cqflow/internal/config"
)

// defaultPipelineName derives a pipeline name from the directory, falling
// back to "default" when the directory gives nothing usable.
func defaultPipelineName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "default"
	}

	name := filepath.Base(abs)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "default"
	}

	return name
}

// scaffoldDefinition writes a starter definition into dir. It refuses to
// overwrite: an existing definition may carry real configuration.
func scaffoldDefinition(dir, name string) (string, error) {
	path := filepath.Join(dir, defaultConfigFile)

	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists\nEdit it directly, or move it aside and re-run 'cqflow init'", path)
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("check %s: %w", path, err)
	}

	generator := config.NewGenerator()
	content := generator.Scaffold(name)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	return path, nil
}

// runInit handles the `cqflow init` subcommand
func runInit(args []string) error {
	showHelp := false
	name := ""

	for _, arg := range args {
		switch arg {
		case "--help", "-h":
			showHelp = true
		default:
			// The first non-flag argument is the pipeline name
			if len(arg) > 0 && arg[0] != '-' && name == "" {
				name = arg
			} else {
				return fmt.Errorf("unknown option: %s\nRun 'cqflow init --help' for usage", arg)
			}
		}
	}

	if showHelp {
		printInitHelp()
		return nil
	}

	if name == "" {
		name = defaultPipelineName(".")
	}

	path, err := scaffoldDefinition(".", name)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Created %s\n", path)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Edit pipeline.lua and point spec_file at your sync spec")
	fmt.Println("  2. Check prerequisites: cqflow status")
	fmt.Println("  3. Fetch and sync: cqflow run")

	return nil
}

// printInitHelp prints help for the init command
func printInitHelp() {
	fmt.Println("Usage: cqflow init [name]")
	fmt.Println()
	fmt.Println("Write a commented starter pipeline.lua into the current directory.")
	fmt.Println()
	fmt.Println("The pipeline name defaults to the current directory's name. An")
	fmt.Println("existing pipeline.lua is never overwritten.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h, --help  Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  cqflow init                 Scaffold with the directory name")
	fmt.Println("  cqflow init warehouse-sync  Scaffold with an explicit name")
	fmt.Println()
}
