package config

import (
	"context"
	"fmt"
	"os"
	"runtime"
)

// ItemStatus represents the readiness of one pipeline prerequisite.
type ItemStatus int

const (
	// StatusReady indicates the prerequisite is in place and usable.
	StatusReady ItemStatus = iota

	// StatusMissing indicates the prerequisite does not exist yet.
	StatusMissing

	// StatusPartial indicates the prerequisite exists but is not usable
	// as-is, for example an empty spec file or a cached binary without
	// executable permissions.
	StatusPartial
)

// String returns the string representation of an ItemStatus.
func (s ItemStatus) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusMissing:
		return "missing"
	case StatusPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// Symbol returns the visual symbol for an ItemStatus.
func (s ItemStatus) Symbol() string {
	switch s {
	case StatusReady:
		return "✓"
	case StatusMissing:
		return "✗"
	default:
		return "?"
	}
}

// Item is one checked prerequisite with its detected status.
type Item struct {
	// Name identifies the prerequisite ("sync spec", "binary", ...).
	Name string

	// Path is the location that was checked.
	Path string

	Status ItemStatus

	// Detail is a short explanation for non-ready items.
	Detail string
}

// BinaryLocator reports where the cloudquery binary for a version would be
// cached, without fetching anything. The fetch resolver satisfies this.
type BinaryLocator interface {
	Locate(ctx context.Context, version string) (string, error)
}

// StatusDetector detects the readiness of a pipeline's prerequisites.
type StatusDetector interface {
	DetectStatus(ctx context.Context, cfg *Config) ([]Item, error)
}

// DefaultStatusDetector implements StatusDetector using filesystem checks
// and the fetch layer's cache location.
type DefaultStatusDetector struct {
	locator BinaryLocator
}

// NewDefaultStatusDetector creates a new DefaultStatusDetector.
func NewDefaultStatusDetector(locator BinaryLocator) *DefaultStatusDetector {
	return &DefaultStatusDetector{
		locator: locator,
	}
}

// DetectStatus checks everything a run of cfg would need: the sync spec,
// the cached cloudquery binary, and the verification key when one is
// configured. It never downloads anything.
//
// The method respects context cancellation and stops between checks if the
// context is cancelled.
func (d *DefaultStatusDetector) DetectStatus(ctx context.Context, cfg *Config) ([]Item, error) {
	items := make([]Item, 0, 3)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items = append(items, checkSpecFile(cfg.SpecFile))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	binaryPath, err := d.locator.Locate(ctx, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("locate cached binary: %w", err)
	}
	items = append(items, checkBinary(binaryPath))

	if cfg.Verify.PublicKey != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items = append(items, checkPublicKey(cfg.Verify.PublicKey))
	}

	return items, nil
}

func checkSpecFile(path string) Item {
	item := Item{Name: "sync spec", Path: path}

	info, err := os.Stat(path)
	switch {
	case err != nil:
		item.Status = StatusMissing
		item.Detail = "file not found"
	case info.IsDir():
		item.Status = StatusPartial
		item.Detail = "is a directory, expected a file"
	case info.Size() == 0:
		item.Status = StatusPartial
		item.Detail = "file is empty"
	default:
		item.Status = StatusReady
	}

	return item
}

func checkBinary(path string) Item {
	item := Item{Name: "binary", Path: path}

	info, err := os.Stat(path)
	switch {
	case err != nil:
		item.Status = StatusMissing
		item.Detail = "not cached yet, run 'cqflow fetch'"
	case info.IsDir() || info.Size() == 0:
		item.Status = StatusPartial
		item.Detail = "cached file is unusable, run 'cqflow fetch --force'"
	case runtime.GOOS != "windows" && info.Mode().Perm()&0111 == 0:
		item.Status = StatusPartial
		item.Detail = "not executable, run 'cqflow fetch --force'"
	default:
		item.Status = StatusReady
	}

	return item
}

func checkPublicKey(path string) Item {
	item := Item{Name: "public key", Path: path}

	info, err := os.Stat(path)
	switch {
	case err != nil:
		item.Status = StatusMissing
		item.Detail = "key file not found"
	case info.IsDir() || info.Size() == 0:
		item.Status = StatusPartial
		item.Detail = "key file is unusable"
	default:
		item.Status = StatusReady
	}

	return item
}
