package platform

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeOS(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"darwin", "darwin", "darwin", false},
		{"linux", "linux", "linux", false},
		{"windows", "windows", "windows", false},
		{"freebsd unsupported", "freebsd", "", true},
		{"plan9 unsupported", "plan9", "", true},
		{"js unsupported", "js", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeOS(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("NormalizeOS() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("NormalizeOS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeArch(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"amd64", "amd64", "amd64", false},
		{"x86_64", "x86_64", "amd64", false},
		{"arm64", "arm64", "arm64", false},
		{"aarch64", "aarch64", "arm64", false},
		{"i386 unsupported", "i386", "", true},
		{"arm unsupported", "arm", "", true},
		{"riscv64 unsupported", "riscv64", "", true},
		{"unknown", "unknown", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeArch(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("NormalizeArch() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("NormalizeArch() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnsupportedPlatformError(t *testing.T) {
	t.Run("arch error names the offending value", func(t *testing.T) {
		_, err := NormalizeArch("riscv64")
		if err == nil {
			t.Fatal("expected error for riscv64")
		}

		var upErr *UnsupportedPlatformError
		if !errors.As(err, &upErr) {
			t.Fatalf("expected *UnsupportedPlatformError, got %T", err)
		}
		if upErr.Kind != "arch" {
			t.Errorf("Kind = %q, want %q", upErr.Kind, "arch")
		}
		if upErr.Value != "riscv64" {
			t.Errorf("Value = %q, want %q", upErr.Value, "riscv64")
		}
		if !strings.Contains(err.Error(), "riscv64") {
			t.Errorf("error message %q should contain the offending value", err.Error())
		}
	})

	t.Run("os error names the offending value", func(t *testing.T) {
		_, err := NormalizeOS("freebsd")
		if err == nil {
			t.Fatal("expected error for freebsd")
		}

		var upErr *UnsupportedPlatformError
		if !errors.As(err, &upErr) {
			t.Fatalf("expected *UnsupportedPlatformError, got %T", err)
		}
		if upErr.Kind != "os" {
			t.Errorf("Kind = %q, want %q", upErr.Kind, "os")
		}
		if !strings.Contains(err.Error(), "freebsd") {
			t.Errorf("error message %q should contain the offending value", err.Error())
		}
	})

	t.Run("never retryable", func(t *testing.T) {
		err := &UnsupportedPlatformError{Kind: "arch", Value: "mips"}
		if err.Retryable() {
			t.Error("UnsupportedPlatformError should never be retryable")
		}
	})
}

func TestNormalizePlatform(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ubuntu", "ubuntu", "ubuntu"},
		{"Ubuntu uppercase", "Ubuntu", "ubuntu"},
		{"UBUNTU all caps", "UBUNTU", "ubuntu"},
		{"with spaces", "  ubuntu  ", "ubuntu"},
		{"arch", "arch", "arch"},
		{"fedora", "fedora", "fedora"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizePlatform(tt.input)
			if got != tt.want {
				t.Errorf("normalizePlatform() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapFamily(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Canonical families
		{"debian", "debian", "debian"},
		{"rhel", "rhel", "rhel"},
		{"fedora", "fedora", "fedora"},
		{"suse", "suse", "suse"},
		{"arch", "arch", "arch"},
		{"alpine", "alpine", "alpine"},
		{"gentoo", "gentoo", "gentoo"},

		// Aliases
		{"ubuntu maps to debian", "ubuntu", "debian"},
		{"centos maps to rhel", "centos", "rhel"},
		{"rocky maps to rhel", "rocky", "rhel"},
		{"opensuse maps to suse", "opensuse", "suse"},
		{"manjaro maps to arch", "manjaro", "arch"},

		// Case insensitive
		{"Debian uppercase", "Debian", "debian"},
		{"RHEL all caps", "RHEL", "rhel"},

		// With spaces
		{"with spaces", "  debian  ", "debian"},

		// Unknown
		{"unknown family", "unknown", "unknown"},
		{"empty", "", "unknown"},
		{"unrecognized", "somethingelse", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapFamily(tt.input)
			if got != tt.want {
				t.Errorf("mapFamily() = %v, want %v", got, tt.want)
			}
		})
	}
}
