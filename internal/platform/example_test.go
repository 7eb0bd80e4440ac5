package platform_test

import (
	"context"
	"fmt"
	"log"

	"github.com/cqflow/cqflow/internal/platform"
)

func ExampleDetector_Detect() {
	detector := platform.NewDetector()
	info, err := detector.Detect(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("OS: %s\n", info.OS)
	fmt.Printf("Architecture: %s\n", info.Arch)

	if distro := info.GetDistro(); distro != nil {
		fmt.Printf("Distribution: %s (%s family)\n", distro.ID, distro.Family)
	}
}

func ExampleNormalizeArch() {
	arch, err := platform.NormalizeArch("x86_64")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(arch)
	// Output: amd64
}

func ExampleNormalizeArch_unsupported() {
	_, err := platform.NormalizeArch("riscv64")
	fmt.Println(err)
	// Output: unsupported architecture: "riscv64" (supported: amd64/x86_64, arm64/aarch64)
}

func ExampleInfo_IsAppleSilicon() {
	info := &platform.Info{
		OS:   "darwin",
		Arch: "arm64",
	}

	if info.IsAppleSilicon() {
		fmt.Println("Running on Apple Silicon")
	}
	// Output: Running on Apple Silicon
}

func ExampleInfo_ExeSuffix() {
	info := &platform.Info{
		OS:   "windows",
		Arch: "amd64",
	}

	fmt.Println("cloudquery" + info.ExeSuffix())
	// Output: cloudquery.exe
}

func ExampleInfo_GetDistro() {
	info := &platform.Info{
		OS:       "linux",
		Platform: "ubuntu",
		Family:   platform.FamilyDebian,
		Version:  "22.04",
	}

	if distro := info.GetDistro(); distro != nil {
		fmt.Printf("Distribution: %s %s (%s family)\n",
			distro.ID, distro.Version, distro.Family)
	}
	// Output: Distribution: ubuntu 22.04 (debian family)
}

func ExampleInfo_GetDistro_nil() {
	info := &platform.Info{
		OS:   "darwin",
		Arch: "arm64",
	}

	if distro := info.GetDistro(); distro == nil {
		fmt.Println("No distribution information available (not Linux)")
	}
	// Output: No distribution information available (not Linux)
}
