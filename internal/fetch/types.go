// Package fetch resolves the CloudQuery CLI binary for the host platform:
// it constructs the release download URL from normalized OS/architecture,
// maintains an idempotent cached copy in the system temp directory, and
// optionally verifies the downloaded artifact before first use.
package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cqflow/cqflow/internal/platform"
)

const (
	// releaseBaseURL is the prefix all release asset URLs share.
	releaseBaseURL = "https://github.com/cloudquery/cloudquery/releases/download"

	// releaseTagPrefix is prepended to the version to form the release tag.
	releaseTagPrefix = "cli-"

	// binaryName is the bare executable name used for assets and the cache.
	binaryName = "cloudquery"

	// checksumsAsset is the checksum manifest published with each release.
	checksumsAsset = "checksums.txt"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 5 * time.Minute

	// DefaultRetries is the default number of download retries after the
	// first attempt.
	DefaultRetries = 3

	// DefaultUserAgent is the User-Agent header sent with requests.
	DefaultUserAgent = "cqflow/1.0"

	// DefaultLockWait bounds how long a resolver waits for another process
	// to finish downloading into the shared cache.
	DefaultLockWait = 2 * time.Minute
)

// Release identifies one CloudQuery CLI release.
type Release struct {
	// Version is the release version as it appears in the tag, e.g. "v6.4.1".
	// It is not validated; an unknown version surfaces as a download 404.
	Version string

	// BaseURL overrides the release host. Empty means the public GitHub
	// release URL. Used by tests and mirror setups.
	BaseURL string
}

// AssetName returns the release asset filename for an OS/arch pair,
// e.g. "cloudquery_linux_amd64" or "cloudquery_windows_arm64.exe".
func (r Release) AssetName(osName, arch string) string {
	name := fmt.Sprintf("%s_%s_%s", binaryName, osName, arch)
	if osName == platform.OSWindows {
		name += ".exe"
	}
	return name
}

// URL returns the full download URL for an OS/arch pair. The result is a
// pure function of (version, os, arch).
func (r Release) URL(osName, arch string) string {
	return fmt.Sprintf("%s/%s%s/%s", r.base(), releaseTagPrefix, r.Version, r.AssetName(osName, arch))
}

// ChecksumsURL returns the URL of the release's checksum manifest.
func (r Release) ChecksumsURL() string {
	return fmt.Sprintf("%s/%s%s/%s", r.base(), releaseTagPrefix, r.Version, checksumsAsset)
}

// SignatureURL returns the URL of the detached signature for an asset.
func (r Release) SignatureURL(osName, arch string) string {
	return r.URL(osName, arch) + ".sig"
}

func (r Release) base() string {
	if r.BaseURL != "" {
		return r.BaseURL
	}
	return releaseBaseURL
}

// CachePath returns where the binary for osName is cached. dir defaults to
// the system temp directory. By default the name carries no version
// (pin-once semantics: an existing file is reused even for a different
// requested version); versioned naming opts out of that.
func CachePath(dir, osName, version string, versioned bool) string {
	if dir == "" {
		dir = os.TempDir()
	}

	name := binaryName
	if versioned && version != "" {
		name = binaryName + "-" + version
	}
	if osName == platform.OSWindows {
		name += ".exe"
	}

	return filepath.Join(dir, name)
}

// Logger provides structured logging for fetch operations.
// This interface allows users to plug in their own logging implementation.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...interface{})

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...interface{})

	// Warn logs warning-level messages with optional key-value pairs.
	Warn(msg string, keysAndValues ...interface{})

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...interface{})
}

// noopLogger is a Logger implementation that does nothing.
// This is the default logger used when none is provided.
type noopLogger struct{}

func (n *noopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *noopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (n *noopLogger) Error(msg string, keysAndValues ...interface{}) {}

// fileExists checks if a file exists and is not empty.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}
