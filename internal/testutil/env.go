// Package testutil provides utilities for testing cqflow in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv points cqflow's environment at isolated per-test directories
// so tests never touch the user's real state directory or binary cache, and
// silences logging so test output stays readable.
//
// It returns the state directory (the CQFLOW_DIR value). Cleanup is handled
// by t.TempDir().
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	stateDir := filepath.Join(tmpDir, "state")
	cacheDir := filepath.Join(tmpDir, "cache")

	t.Setenv("CQFLOW_DIR", stateDir)
	t.Setenv("CQFLOW_CACHE_DIR", cacheDir)
	t.Setenv("CQFLOW_LOG_LEVEL", "error")

	for _, dir := range []string{stateDir, cacheDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return stateDir
}
