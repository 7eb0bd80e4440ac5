package config

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestGenerator_Generate_Defaults(t *testing.T) {
	gen := NewGenerator()
	luaCode, err := gen.Generate(Default())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !strings.Contains(luaCode, "pipeline = {") {
		t.Error("Generate() missing pipeline table")
	}
	if !strings.Contains(luaCode, `version = "`+DefaultVersion+`"`) {
		t.Errorf("Generate() missing version, got:\n%s", luaCode)
	}
	if !strings.Contains(luaCode, `spec_file = "`+DefaultSpecFile+`"`) {
		t.Errorf("Generate() missing spec_file, got:\n%s", luaCode)
	}

	// Default-valued sections are elided
	for _, unwanted := range []string{"cache = {", "download = {", "sync = {", "verify = {", "retries ="} {
		if strings.Contains(luaCode, unwanted) {
			t.Errorf("Generate() contains %q, defaults should be elided:\n%s", unwanted, luaCode)
		}
	}
}

func TestGenerator_Generate_Full(t *testing.T) {
	config := &Config{
		Name:        "nightly-accounts",
		Description: "Warehouse sync",
		Version:     "v6.4.1",
		SpecFile:    "specs/accounts.yml",
		Retries:     3,
		Cache: CacheOptions{
			Dir:       "/var/cache/cqflow",
			Versioned: true,
		},
		Download: DownloadOptions{
			Timeout: time.Minute,
			Retries: 5,
		},
		Sync: SyncOptions{
			Timeout: 30 * time.Minute,
			Env:     map[string]string{"CQ_ENV": "prod", "AWS_REGION": "eu-west-1"},
		},
		Verify: VerifyOptions{
			ChecksumsFile: true,
			PublicKey:     "release.pub",
		},
	}

	gen := NewGenerator()
	luaCode, err := gen.Generate(config)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	wanted := []string{
		`name = "nightly-accounts"`,
		`description = "Warehouse sync"`,
		`version = "v6.4.1"`,
		`spec_file = "specs/accounts.yml"`,
		`retries = 3`,
		`dir = "/var/cache/cqflow"`,
		`versioned = true`,
		`timeout = "1m0s"`,
		`retries = 5`,
		`timeout = "30m0s"`,
		`CQ_ENV = "prod"`,
		`AWS_REGION = "eu-west-1"`,
		`checksums_file = true`,
		`public_key = "release.pub"`,
	}
	for _, want := range wanted {
		if !strings.Contains(luaCode, want) {
			t.Errorf("Generate() missing %q, got:\n%s", want, luaCode)
		}
	}

	// Env entries are sorted for deterministic output
	if strings.Index(luaCode, "AWS_REGION") > strings.Index(luaCode, "CQ_ENV") {
		t.Errorf("Generate() env entries not sorted:\n%s", luaCode)
	}
}

func TestGenerator_RoundTrip(t *testing.T) {
	original := &Config{
		Name:     "roundtrip",
		Version:  "v7.0.0",
		SpecFile: "specs/rt.yml",
		Retries:  0,
		Cache: CacheOptions{
			Dir:       "/tmp/cq-cache",
			Versioned: true,
		},
		Download: DownloadOptions{
			Timeout: 90 * time.Second,
			Retries: 1,
		},
		Sync: SyncOptions{
			Timeout: 45 * time.Minute,
			Env:     map[string]string{"CQ_ENV": "staging"},
		},
		Verify: VerifyOptions{
			Checksum: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	gen := NewGenerator()
	luaCode, err := gen.Generate(original)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	parser := NewParser(nil)
	parsed, err := parser.ParseString(context.Background(), luaCode)
	if err != nil {
		t.Fatalf("ParseString() of generated code error = %v\ncode:\n%s", err, luaCode)
	}

	if parsed.Name != original.Name {
		t.Errorf("Name = %s, want %s", parsed.Name, original.Name)
	}
	if parsed.Version != original.Version {
		t.Errorf("Version = %s, want %s", parsed.Version, original.Version)
	}
	if parsed.SpecFile != original.SpecFile {
		t.Errorf("SpecFile = %s, want %s", parsed.SpecFile, original.SpecFile)
	}
	if parsed.Retries != original.Retries {
		t.Errorf("Retries = %d, want %d", parsed.Retries, original.Retries)
	}
	if parsed.Cache != original.Cache {
		t.Errorf("Cache = %+v, want %+v", parsed.Cache, original.Cache)
	}
	if parsed.Download != original.Download {
		t.Errorf("Download = %+v, want %+v", parsed.Download, original.Download)
	}
	if parsed.Sync.Timeout != original.Sync.Timeout {
		t.Errorf("Sync.Timeout = %v, want %v", parsed.Sync.Timeout, original.Sync.Timeout)
	}
	if parsed.Sync.Env["CQ_ENV"] != "staging" {
		t.Errorf("Sync.Env = %+v", parsed.Sync.Env)
	}
	if parsed.Verify != original.Verify {
		t.Errorf("Verify = %+v, want %+v", parsed.Verify, original.Verify)
	}
}

func TestGenerator_QuoteLuaString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "hello", `"hello"`},
		{"embedded quotes", `say "hi"`, `"say \"hi\""`},
		{"backslash", `C:\cache`, `"C:\\cache"`},
		{"newline", "line1\nline2", `"line1\nline2"`},
		{"tab", "a\tb", `"a\tb"`},
		{"empty", "", `""`},
	}

	gen := NewGenerator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gen.quoteLuaString(tt.input); got != tt.want {
				t.Errorf("quoteLuaString(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerator_SpecialCharacters(t *testing.T) {
	original := Default()
	original.Name = `quoted "name" with \backslash`
	original.Description = "line1\nline2"

	gen := NewGenerator()
	luaCode, err := gen.Generate(original)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	parser := NewParser(nil)
	parsed, err := parser.ParseString(context.Background(), luaCode)
	if err != nil {
		t.Fatalf("ParseString() error = %v\ncode:\n%s", err, luaCode)
	}

	if parsed.Name != original.Name {
		t.Errorf("Name = %q, want %q", parsed.Name, original.Name)
	}
	if parsed.Description != original.Description {
		t.Errorf("Description = %q, want %q", parsed.Description, original.Description)
	}
}

func TestGenerator_Scaffold(t *testing.T) {
	gen := NewGenerator()
	luaCode := gen.Scaffold("my-pipeline")

	if !strings.Contains(luaCode, `name = "my-pipeline"`) {
		t.Errorf("Scaffold() missing name, got:\n%s", luaCode)
	}

	// The scaffold must parse as-is
	parser := NewParser(nil)
	config, err := parser.ParseString(context.Background(), luaCode)
	if err != nil {
		t.Fatalf("ParseString() of scaffold error = %v\ncode:\n%s", err, luaCode)
	}

	if config.Name != "my-pipeline" {
		t.Errorf("Name = %s, want my-pipeline", config.Name)
	}
	if config.Version != DefaultVersion {
		t.Errorf("Version = %s, want %s", config.Version, DefaultVersion)
	}
	if config.SpecFile != DefaultSpecFile {
		t.Errorf("SpecFile = %s, want %s", config.SpecFile, DefaultSpecFile)
	}

	// Optional blocks are documentation, not configuration
	if config.Cache.Dir != "" || config.Verify.ChecksumsFile {
		t.Errorf("Scaffold() enabled optional blocks: %+v", config)
	}
}
