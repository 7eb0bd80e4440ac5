package fetch

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
)

var versionRegex = regexp.MustCompile(`\d+\.\d+\.\d+`)

// ExtractVersion extracts a semantic version from command output.
func ExtractVersion(output string) (string, error) {
	matches := versionRegex.FindString(output)
	if matches == "" {
		return "", fmt.Errorf("no version found in output")
	}
	return matches, nil
}

// DetectVersion detects the version of a binary by executing it.
// Tries --version flag first, then -v as fallback. The resolver uses this
// as a post-download smoke test; failures are logged, never fatal.
func DetectVersion(ctx context.Context, binaryPath string) (string, error) {
	// Try --version first (most common)
	cmd := exec.CommandContext(ctx, binaryPath, "--version")
	output, err := cmd.Output()
	if err == nil {
		version, err := ExtractVersion(string(output))
		if err == nil {
			return version, nil
		}
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	// Try -v as fallback
	cmd = exec.CommandContext(ctx, binaryPath, "-v")
	output, err = cmd.Output()
	if err == nil {
		version, err := ExtractVersion(string(output))
		if err == nil {
			return version, nil
		}
	}

	return "", fmt.Errorf("failed to detect version for %s", binaryPath)
}
