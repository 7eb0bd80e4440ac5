package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect performs platform detection and returns platform information.
// It normalizes runtime.GOOS and runtime.GOARCH onto the supported release
// targets and uses gopsutil for Linux distribution details.
//
// Normalization failures (an OS or architecture CloudQuery publishes no
// binary for) are hard errors and happen before any other work. Distro
// detection failures on Linux degrade gracefully: the distro fields stay
// empty and detection still succeeds.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	osName, err := NormalizeOS(runtime.GOOS)
	if err != nil {
		return nil, err
	}

	arch, err := NormalizeArch(runtime.GOARCH)
	if err != nil {
		return nil, err
	}

	info := &Info{
		OS:      osName,
		Arch:    arch,
		ArchRaw: runtime.GOARCH,
	}

	// Detect Linux distribution details using gopsutil (Linux only)
	if info.IsLinux() {
		platform, family, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			// Context cancellation is a hard failure
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			// Graceful fallback: OS/arch are enough to resolve a binary
			return info, nil
		}

		platform = normalizePlatform(platform)
		family = mapFamily(family)
		version = normalizePlatform(version)

		// Only set fields if we got valid data
		if platform != "" {
			info.Platform = platform
			info.Family = family
			info.Version = version
		}
	}

	return info, nil
}
