package main

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// TestParseSyncFlags tests hand-parsing of the sync command line
func TestParseSyncFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    syncFlags
		wantErr bool
	}{
		{
			name: "spec only",
			args: []string{"--spec", "spec.yml"},
			want: syncFlags{specFile: "spec.yml"},
		},
		{
			name: "all flags",
			args: []string{"--spec", "spec.yml", "--bin", "/opt/cloudquery", "--timeout", "45m", "-v"},
			want: syncFlags{specFile: "spec.yml", binPath: "/opt/cloudquery", timeout: 45 * time.Minute, verbose: true},
		},
		{
			name:    "invalid timeout",
			args:    []string{"--timeout", "soon"},
			wantErr: true,
		},
		{
			name:    "non-positive timeout",
			args:    []string{"--timeout", "-5m"},
			wantErr: true,
		},
		{
			name:    "spec without value",
			args:    []string{"--spec"},
			wantErr: true,
		},
		{
			name:    "unknown option",
			args:    []string{"--watch"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags, err := parseSyncFlags(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSyncFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if flags != tt.want {
				t.Errorf("parseSyncFlags() = %+v, want %+v", flags, tt.want)
			}
		})
	}
}

// TestRunSync_RequiresSpec tests that sync demands a spec file
func TestRunSync_RequiresSpec(t *testing.T) {
	err := runSync(nil)
	if err == nil {
		t.Fatal("expected error without --spec, got nil")
	}
	if !strings.Contains(err.Error(), "no sync spec") {
		t.Errorf("error should mention the missing spec, got: %v", err)
	}
}

// TestLocateCachedBinary tests cache lookup without downloads
func TestLocateCachedBinary(t *testing.T) {
	binaryName := "cloudquery"
	if runtime.GOOS == "windows" {
		binaryName += ".exe"
	}

	t.Run("missing binary points at fetch", func(t *testing.T) {
		t.Setenv(envCacheDir, t.TempDir())

		_, err := locateCachedBinary(context.Background())
		if err == nil {
			t.Fatal("expected error for empty cache, got nil")
		}
		if !strings.Contains(err.Error(), "cqflow fetch") {
			t.Errorf("error should point at 'cqflow fetch', got: %v", err)
		}
	})

	t.Run("cached binary is found", func(t *testing.T) {
		cacheDir := t.TempDir()
		t.Setenv(envCacheDir, cacheDir)

		want := filepath.Join(cacheDir, binaryName)
		if err := os.WriteFile(want, []byte("#!/bin/sh\n"), 0755); err != nil {
			t.Fatalf("write fake binary: %v", err)
		}

		got, err := locateCachedBinary(context.Background())
		if err != nil {
			t.Fatalf("locateCachedBinary() error = %v", err)
		}
		if got != want {
			t.Errorf("path = %s, want %s", got, want)
		}
	})
}
