package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cqflow/cqflow/internal/platform"
)

// TestExampleDefinitions validates that all example definition files can be parsed.
func TestExampleDefinitions(t *testing.T) {
	examplesDir := filepath.Join("..", "..", "examples")

	examples := []struct {
		name     string
		filename string
	}{
		{"minimal", "minimal.lua"},
		{"full", "full.lua"},
		{"platforms", "platforms.lua"},
	}

	// Create a mock Linux platform for testing
	detector := &mockDetector{
		info: &platform.Info{
			OS:       "linux",
			Arch:     "amd64",
			ArchRaw:  "x86_64",
			Platform: "ubuntu",
			Family:   "debian",
			Version:  "22.04",
		},
	}

	parser := NewParser(detector)

	for _, ex := range examples {
		t.Run(ex.name, func(t *testing.T) {
			path := filepath.Join(examplesDir, ex.filename)

			// #nosec G304 -- path is built from a trusted examplesDir and fixed filenames
			content, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile(%s) error = %v", path, err)
			}

			config, err := parser.ParseString(context.Background(), string(content))
			if err != nil {
				t.Fatalf("ParseString(%s) error = %v", ex.filename, err)
			}

			if err := config.Validate(); err != nil {
				t.Errorf("Validate(%s) error = %v", ex.filename, err)
			}

			t.Logf("Successfully parsed %s (name=%s, version=%s)", ex.filename, config.Name, config.Version)
		})
	}
}

// TestExampleDefinitions_Platforms checks that the platform-aware example
// resolves its conditionals for a Linux host.
func TestExampleDefinitions_Platforms(t *testing.T) {
	path := filepath.Join("..", "..", "examples", "platforms.lua")
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}

	detector := &mockDetector{
		info: &platform.Info{
			OS:      "linux",
			Arch:    "amd64",
			ArchRaw: "x86_64",
		},
	}

	config, err := NewParser(detector).ParseString(context.Background(), string(content))
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	if config.SpecFile != "specs/default.yml" {
		t.Errorf("SpecFile = %s, want specs/default.yml", config.SpecFile)
	}
	if config.Cache.Dir != "/var/cache/cqflow" {
		t.Errorf("Cache.Dir = %s, want /var/cache/cqflow", config.Cache.Dir)
	}
	if config.Cache.Versioned {
		t.Error("Cache.Versioned = true, want false on Linux")
	}
	if got := config.Sync.Env["CQ_INSTALL_OS"]; got != "linux" {
		t.Errorf("Sync.Env[CQ_INSTALL_OS] = %s, want linux", got)
	}
	if got := config.Sync.Env["CQ_INSTALL_ARCH"]; got != "amd64" {
		t.Errorf("Sync.Env[CQ_INSTALL_ARCH] = %s, want amd64", got)
	}
}

// TestRoundTripWithExamples tests that example definitions survive a
// parse, generate, parse cycle. The platform example is excluded because
// generation flattens its conditionals.
func TestRoundTripWithExamples(t *testing.T) {
	examplesDir := filepath.Join("..", "..", "examples")

	examples := []string{
		"minimal.lua",
		"full.lua",
	}

	detector := &mockDetector{
		info: &platform.Info{
			OS:      "linux",
			Arch:    "amd64",
			ArchRaw: "x86_64",
		},
	}

	parser := NewParser(detector)
	generator := NewGenerator()

	for _, filename := range examples {
		t.Run(filename, func(t *testing.T) {
			path := filepath.Join(examplesDir, filename)

			// #nosec G304 -- path is built from a trusted examplesDir and fixed filenames
			content, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile(%s) error = %v", path, err)
			}

			original, err := parser.ParseString(context.Background(), string(content))
			if err != nil {
				t.Fatalf("ParseString(%s) error = %v", filename, err)
			}

			generated, err := generator.Generate(original)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			roundtrip, err := parser.ParseString(context.Background(), generated)
			if err != nil {
				t.Fatalf("ParseString(generated) error = %v\nGenerated Lua:\n%s", err, generated)
			}

			if roundtrip.Name != original.Name {
				t.Errorf("Name = %s, want %s", roundtrip.Name, original.Name)
			}
			if roundtrip.Version != original.Version {
				t.Errorf("Version = %s, want %s", roundtrip.Version, original.Version)
			}
			if roundtrip.SpecFile != original.SpecFile {
				t.Errorf("SpecFile = %s, want %s", roundtrip.SpecFile, original.SpecFile)
			}
			if roundtrip.Retries != original.Retries {
				t.Errorf("Retries = %d, want %d", roundtrip.Retries, original.Retries)
			}
			if roundtrip.Cache != original.Cache {
				t.Errorf("Cache = %+v, want %+v", roundtrip.Cache, original.Cache)
			}
			if roundtrip.Download != original.Download {
				t.Errorf("Download = %+v, want %+v", roundtrip.Download, original.Download)
			}
			if roundtrip.Verify != original.Verify {
				t.Errorf("Verify = %+v, want %+v", roundtrip.Verify, original.Verify)
			}
			if len(roundtrip.Sync.Env) != len(original.Sync.Env) {
				t.Errorf("Sync.Env length = %d, want %d", len(roundtrip.Sync.Env), len(original.Sync.Env))
			}

			t.Logf("Successfully round-tripped %s", filename)
		})
	}
}

// TestGenerateAndParse tests the full workflow of generating and parsing
// a programmatically built definition.
func TestGenerateAndParse(t *testing.T) {
	config := &Config{
		Name:        "Programmatic Pipeline",
		Description: "Created programmatically for testing",
		Version:     "v6.4.1",
		SpecFile:    "specs/programmatic.yml",
		Retries:     3,
		Cache: CacheOptions{
			Dir:       "/tmp/cqflow-cache",
			Versioned: true,
		},
		Download: DownloadOptions{
			Timeout: 2 * time.Minute,
			Retries: 5,
		},
		Sync: SyncOptions{
			Timeout: time.Hour,
			Env: map[string]string{
				"CQ_ENV":     "staging",
				"DEST_TABLE": "events",
			},
		},
		Verify: VerifyOptions{
			Checksum: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	gen := NewGenerator()
	luaCode, err := gen.Generate(config)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	t.Logf("Generated Lua:\n%s", luaCode)

	parser := NewParser(nil)
	parsed, err := parser.ParseString(context.Background(), luaCode)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	if parsed.Name != config.Name {
		t.Errorf("Name = %s, want %s", parsed.Name, config.Name)
	}
	if parsed.Description != config.Description {
		t.Errorf("Description = %s, want %s", parsed.Description, config.Description)
	}
	if parsed.Retries != config.Retries {
		t.Errorf("Retries = %d, want %d", parsed.Retries, config.Retries)
	}
	if parsed.Cache != config.Cache {
		t.Errorf("Cache = %+v, want %+v", parsed.Cache, config.Cache)
	}
	if parsed.Download != config.Download {
		t.Errorf("Download = %+v, want %+v", parsed.Download, config.Download)
	}
	if parsed.Sync.Timeout != config.Sync.Timeout {
		t.Errorf("Sync.Timeout = %v, want %v", parsed.Sync.Timeout, config.Sync.Timeout)
	}
	if len(parsed.Sync.Env) != len(config.Sync.Env) {
		t.Errorf("Sync.Env length = %d, want %d", len(parsed.Sync.Env), len(config.Sync.Env))
	}
	if parsed.Verify != config.Verify {
		t.Errorf("Verify = %+v, want %+v", parsed.Verify, config.Verify)
	}
}

// TestGenerateParseFileRoundTrip writes a generated definition to disk and
// parses it back through ParseFile, exercising relative path resolution.
func TestGenerateParseFileRoundTrip(t *testing.T) {
	dir := t.TempDir()

	config := Default()
	config.Name = "filetrip"
	config.SpecFile = filepath.Join("specs", "prod.yml")

	gen := NewGenerator()
	luaCode, err := gen.Generate(config)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	definitionPath := filepath.Join(dir, "pipeline.lua")
	if err := os.WriteFile(definitionPath, []byte(luaCode), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	parser := NewParser(nil)
	parsed, err := parser.ParseFile(context.Background(), definitionPath)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	if parsed.Name != "filetrip" {
		t.Errorf("Name = %s, want filetrip", parsed.Name)
	}

	wantSpec := filepath.Join(dir, "specs", "prod.yml")
	if parsed.SpecFile != wantSpec {
		t.Errorf("SpecFile = %s, want %s", parsed.SpecFile, wantSpec)
	}
}
