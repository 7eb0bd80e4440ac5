package platform

import "fmt"

// UnsupportedPlatformError reports a host OS or architecture outside the
// set CloudQuery publishes binaries for. Kind is "os" or "arch"; Value is
// the offending string as reported by the host.
type UnsupportedPlatformError struct {
	Kind  string
	Value string
}

func (e *UnsupportedPlatformError) Error() string {
	switch e.Kind {
	case "os":
		return fmt.Sprintf("unsupported operating system: %q (supported: darwin, linux, windows)", e.Value)
	case "arch":
		return fmt.Sprintf("unsupported architecture: %q (supported: amd64/x86_64, arm64/aarch64)", e.Value)
	default:
		return fmt.Sprintf("unsupported platform %s: %q", e.Kind, e.Value)
	}
}

// Retryable reports whether retrying could succeed. The host does not
// change between attempts, so it never can.
func (e *UnsupportedPlatformError) Retryable() bool {
	return false
}
