package platform

import (
	"strings"
)

// familyMap maps distribution names to their canonical family names.
// This is used to normalize variations of family strings from gopsutil.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian, // gopsutil might return ubuntu as family
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// NormalizeOS maps a host OS name onto the closed set of release targets.
// Anything outside darwin/linux/windows is an UnsupportedPlatformError.
func NormalizeOS(osName string) (string, error) {
	switch osName {
	case OSDarwin:
		return OSDarwin, nil
	case OSLinux:
		return OSLinux, nil
	case OSWindows:
		return OSWindows, nil
	default:
		return "", &UnsupportedPlatformError{Kind: "os", Value: osName}
	}
}

// NormalizeArch maps a host architecture string onto the closed set of
// release targets. Both Go (amd64, arm64) and uname (x86_64, aarch64)
// spellings are accepted; anything else is an UnsupportedPlatformError.
func NormalizeArch(arch string) (string, error) {
	switch arch {
	case "amd64", "x86_64":
		return ArchAMD64, nil
	case "arm64", "aarch64":
		return ArchARM64, nil
	default:
		return "", &UnsupportedPlatformError{Kind: "arch", Value: arch}
	}
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
// Uses a package-level lookup table for explicit mapping.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}

	// Return "unknown" for unrecognized families
	return FamilyUnknown
}
