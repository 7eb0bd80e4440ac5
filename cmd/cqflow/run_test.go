package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cqflow/cqflow/internal/config"
)

// TestParseRunFlags tests hand-parsing of the run command line
func TestParseRunFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    runFlags
		wantErr bool
	}{
		{
			name: "no arguments",
			args: nil,
			want: runFlags{retries: -1},
		},
		{
			name: "all value flags",
			args: []string{"--config", "prod.lua", "--spec", "spec.yml", "--version", "v6.4.1", "--cache-dir", "/var/cache/cqflow", "--retries", "4"},
			want: runFlags{configPath: "prod.lua", specFile: "spec.yml", version: "v6.4.1", cacheDir: "/var/cache/cqflow", retries: 4},
		},
		{
			name: "boolean flags",
			args: []string{"--force", "--journal", "-v"},
			want: runFlags{force: true, journal: true, verbose: true, retries: -1},
		},
		{
			name: "help short form",
			args: []string{"-h"},
			want: runFlags{showHelp: true, retries: -1},
		},
		{
			name:    "unknown option",
			args:    []string{"--bogus"},
			wantErr: true,
		},
		{
			name:    "value flag without value",
			args:    []string{"--config"},
			wantErr: true,
		},
		{
			name:    "negative retries",
			args:    []string{"--retries", "-1"},
			wantErr: true,
		},
		{
			name:    "non-numeric retries",
			args:    []string{"--retries", "two"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags, err := parseRunFlags(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRunFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if flags != tt.want {
				t.Errorf("parseRunFlags() = %+v, want %+v", flags, tt.want)
			}
		})
	}
}

// TestApplyRunOverrides tests the flag > definition > environment precedence
func TestApplyRunOverrides(t *testing.T) {
	t.Run("flags win over definition values", func(t *testing.T) {
		cfg := config.Default()
		cfg.SpecFile = "from_config.yml"
		cfg.Version = "v1.0.0"
		cfg.Cache.Dir = "/from/config"
		cfg.Retries = 1

		applyRunOverrides(cfg, runFlags{
			specFile: "from_flag.yml",
			version:  "v2.0.0",
			cacheDir: "/from/flag",
			retries:  5,
		})

		if cfg.SpecFile != "from_flag.yml" {
			t.Errorf("SpecFile = %s, want from_flag.yml", cfg.SpecFile)
		}
		if cfg.Version != "v2.0.0" {
			t.Errorf("Version = %s, want v2.0.0", cfg.Version)
		}
		if cfg.Cache.Dir != "/from/flag" {
			t.Errorf("Cache.Dir = %s, want /from/flag", cfg.Cache.Dir)
		}
		if cfg.Retries != 5 {
			t.Errorf("Retries = %d, want 5", cfg.Retries)
		}
	})

	t.Run("definition values survive empty flags", func(t *testing.T) {
		cfg := config.Default()
		cfg.SpecFile = "from_config.yml"
		cfg.Version = "v1.0.0"
		cfg.Cache.Dir = "/from/config"
		cfg.Retries = 2

		applyRunOverrides(cfg, runFlags{retries: -1})

		if cfg.SpecFile != "from_config.yml" {
			t.Errorf("SpecFile = %s, want from_config.yml", cfg.SpecFile)
		}
		if cfg.Version != "v1.0.0" {
			t.Errorf("Version = %s, want v1.0.0", cfg.Version)
		}
		if cfg.Retries != 2 {
			t.Errorf("Retries = %d, want 2", cfg.Retries)
		}
	})

	t.Run("environment fills an empty cache dir", func(t *testing.T) {
		t.Setenv(envCacheDir, "/from/env")

		cfg := config.Default()
		applyRunOverrides(cfg, runFlags{retries: -1})

		if cfg.Cache.Dir != "/from/env" {
			t.Errorf("Cache.Dir = %s, want /from/env", cfg.Cache.Dir)
		}
	})

	t.Run("flag beats environment", func(t *testing.T) {
		t.Setenv(envCacheDir, "/from/env")

		cfg := config.Default()
		applyRunOverrides(cfg, runFlags{cacheDir: "/from/flag", retries: -1})

		if cfg.Cache.Dir != "/from/flag" {
			t.Errorf("Cache.Dir = %s, want /from/flag", cfg.Cache.Dir)
		}
	})

	t.Run("definition beats environment", func(t *testing.T) {
		t.Setenv(envCacheDir, "/from/env")

		cfg := config.Default()
		cfg.Cache.Dir = "/from/config"
		applyRunOverrides(cfg, runFlags{retries: -1})

		if cfg.Cache.Dir != "/from/config" {
			t.Errorf("Cache.Dir = %s, want /from/config", cfg.Cache.Dir)
		}
	})
}

// TestLoadConfig tests definition loading and ./pipeline.lua discovery
func TestLoadConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "custom.lua")
		definition := `pipeline = { name = "cli-test", spec_file = "specs/s.yml" }`
		if err := os.WriteFile(path, []byte(definition), 0644); err != nil {
			t.Fatalf("write definition: %v", err)
		}

		cfg, used, err := loadConfig(ctx, path, false)
		if err != nil {
			t.Fatalf("loadConfig() error = %v", err)
		}
		if used != path {
			t.Errorf("used path = %s, want %s", used, path)
		}
		if cfg.Name != "cli-test" {
			t.Errorf("Name = %s, want cli-test", cfg.Name)
		}

		// Relative spec paths resolve against the definition's directory
		wantSpec := filepath.Join(dir, "specs", "s.yml")
		if cfg.SpecFile != wantSpec {
			t.Errorf("SpecFile = %s, want %s", cfg.SpecFile, wantSpec)
		}
	})

	t.Run("explicit file missing", func(t *testing.T) {
		_, _, err := loadConfig(ctx, filepath.Join(t.TempDir(), "nope.lua"), false)
		if err == nil {
			t.Fatal("expected error for missing definition file, got nil")
		}
	})

	t.Run("defaults when no definition present", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, used, err := loadConfig(ctx, "", false)
		if err != nil {
			t.Fatalf("loadConfig() error = %v", err)
		}
		if used != "" {
			t.Errorf("used path = %s, want empty", used)
		}
		if cfg.Version != config.DefaultVersion {
			t.Errorf("Version = %s, want %s", cfg.Version, config.DefaultVersion)
		}
	})

	t.Run("discovers pipeline.lua in the working directory", func(t *testing.T) {
		dir := t.TempDir()
		definition := `pipeline = { name = "discovered" }`
		if err := os.WriteFile(filepath.Join(dir, defaultConfigFile), []byte(definition), 0644); err != nil {
			t.Fatalf("write definition: %v", err)
		}
		t.Chdir(dir)

		cfg, used, err := loadConfig(ctx, "", false)
		if err != nil {
			t.Fatalf("loadConfig() error = %v", err)
		}
		if used != defaultConfigFile {
			t.Errorf("used path = %s, want %s", used, defaultConfigFile)
		}
		if cfg.Name != "discovered" {
			t.Errorf("Name = %s, want discovered", cfg.Name)
		}
	})

	t.Run("parse errors come back formatted", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "broken.lua")
		if err := os.WriteFile(path, []byte(`pipeline = {{{`), 0644); err != nil {
			t.Fatalf("write definition: %v", err)
		}

		_, _, err := loadConfig(ctx, path, false)
		if err == nil {
			t.Fatal("expected error for broken definition, got nil")
		}
		if !strings.Contains(err.Error(), "syntax") {
			t.Errorf("error should mention the syntax problem, got: %v", err)
		}
	})
}

// TestGetCqflowDir tests the state directory resolution
func TestGetCqflowDir(t *testing.T) {
	t.Run("environment override", func(t *testing.T) {
		t.Setenv(envCqflowDir, "/custom/state")

		dir, err := getCqflowDir()
		if err != nil {
			t.Fatalf("getCqflowDir() error = %v", err)
		}
		if dir != "/custom/state" {
			t.Errorf("dir = %s, want /custom/state", dir)
		}
	})

	t.Run("defaults under the home directory", func(t *testing.T) {
		t.Setenv(envCqflowDir, "")

		dir, err := getCqflowDir()
		if err != nil {
			t.Fatalf("getCqflowDir() error = %v", err)
		}
		want := filepath.Join(".config", "cqflow")
		if !strings.HasSuffix(dir, want) {
			t.Errorf("dir = %s, want suffix %s", dir, want)
		}
	})
}
