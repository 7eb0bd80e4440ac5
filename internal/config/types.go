package config

import (
	"fmt"
	"regexp"
	"time"
)

// Config is a parsed pipeline definition.
// This matches the Lua schema documented in doc.go.
type Config struct {
	// Name identifies the pipeline in logs and run journals.
	Name string `json:"name,omitempty"`

	// Description is free-form text for humans.
	Description string `json:"description,omitempty"`

	// Version is the cloudquery release tag to fetch, e.g. "v6.4.1".
	// The tag format is not validated; a bad tag surfaces as a download
	// failure.
	Version string `json:"version"`

	// SpecFile is the sync spec passed to `cloudquery sync`. ParseFile
	// resolves relative paths against the definition file's directory.
	SpecFile string `json:"spec_file"`

	// Retries is the per-step retry budget for the pipeline.
	Retries int `json:"retries"`

	// Cache controls where the fetched binary lands.
	Cache CacheOptions `json:"cache,omitempty"`

	// Download tunes the HTTP fetch of the release binary.
	Download DownloadOptions `json:"download,omitempty"`

	// Sync tunes the cloudquery sync subprocess.
	Sync SyncOptions `json:"sync,omitempty"`

	// Verify enables integrity checks on the downloaded binary.
	Verify VerifyOptions `json:"verify,omitempty"`
}

// CacheOptions controls the binary cache location and naming.
type CacheOptions struct {
	// Dir is the cache directory. Empty means the system temp directory.
	Dir string `json:"dir,omitempty"`

	// Versioned switches the cache file name from "cloudquery" to
	// "cloudquery-<version>", so versions stop shadowing each other.
	Versioned bool `json:"versioned,omitempty"`
}

// DownloadOptions tunes the release download.
type DownloadOptions struct {
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration `json:"timeout,omitempty"`

	// Retries is the number of additional attempts after a retryable
	// download failure.
	Retries int `json:"retries"`
}

// SyncOptions tunes the sync subprocess.
type SyncOptions struct {
	// Timeout bounds one sync run. Zero means no limit beyond the caller's
	// context.
	Timeout time.Duration `json:"timeout,omitempty"`

	// Env is extra environment for the child process, merged over the
	// inherited environment.
	Env map[string]string `json:"env,omitempty"`
}

// VerifyOptions selects post-download verification. The zero value disables
// verification.
type VerifyOptions struct {
	// Checksum pins the expected SHA-256 digest (64 hex characters).
	Checksum string `json:"checksum,omitempty"`

	// ChecksumsFile fetches checksums.txt from the release and verifies the
	// downloaded asset against it. Ignored when Checksum is set.
	ChecksumsFile bool `json:"checksums_file,omitempty"`

	// PublicKey is a path to a minisign or armored PGP public key. When
	// set, the release signature is fetched and verified with it.
	PublicKey string `json:"public_key,omitempty"`
}

// Default returns a Config with every field at its default. Parsing starts
// from this value, so omitted fields keep their defaults while explicitly
// written zero values win.
func Default() *Config {
	return &Config{
		Version:  DefaultVersion,
		SpecFile: DefaultSpecFile,
		Retries:  DefaultRetries,
		Download: DownloadOptions{
			Timeout: DefaultDownloadTimeout,
			Retries: DefaultDownloadRetries,
		},
	}
}

// Validate performs basic validation on a Config.
func (c *Config) Validate() error {
	if len(c.Name) > MaxNameLength {
		return &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("name too long (%d chars, max %d)", len(c.Name), MaxNameLength),
		}
	}

	if c.Version == "" {
		return &ValidationError{Field: "version", Message: "version cannot be empty"}
	}

	if c.SpecFile == "" {
		return &ValidationError{Field: "spec_file", Message: "spec file cannot be empty"}
	}

	if err := validateRetries(c.Retries); err != nil {
		return &ValidationError{Field: "retries", Message: err.Error()}
	}

	if err := validateRetries(c.Download.Retries); err != nil {
		return &ValidationError{Field: "download.retries", Message: err.Error()}
	}

	if c.Download.Timeout < 0 {
		return &ValidationError{Field: "download.timeout", Message: "timeout cannot be negative"}
	}

	if c.Sync.Timeout < 0 {
		return &ValidationError{Field: "sync.timeout", Message: "timeout cannot be negative"}
	}

	if len(c.Sync.Env) > MaxEnvCount {
		return &ValidationError{
			Field:   "sync.env",
			Message: fmt.Sprintf("too many entries (%d), maximum is %d", len(c.Sync.Env), MaxEnvCount),
		}
	}

	for name := range c.Sync.Env {
		if !envNamePattern.MatchString(name) {
			return &ValidationError{
				Field:   "sync.env",
				Message: fmt.Sprintf("invalid environment variable name: %q", name),
			}
		}
	}

	if c.Verify.Checksum != "" && !checksumPattern.MatchString(c.Verify.Checksum) {
		return &ValidationError{
			Field:   "verify.checksum",
			Message: "checksum must be 64 hex characters (SHA-256)",
		}
	}

	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

// envNamePattern matches portable environment variable names.
var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// checksumPattern matches a hex-encoded SHA-256 digest.
var checksumPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

func validateRetries(n int) error {
	if n < 0 {
		return fmt.Errorf("retries cannot be negative (got %d)", n)
	}
	if n > MaxRetries {
		return fmt.Errorf("too many retries (%d), maximum is %d", n, MaxRetries)
	}
	return nil
}
