// Package installer detects the host Linux distribution and installs the
// BTF/eBPF prerequisites cognitod's kernel probes need (spec §4.3/§6:
// CAP_BPF, CAP_PERFMON, and either a BTF-enabled kernel or an external BTF
// blob resolvable via SYSTEM_BTF_PATH).
package installer

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Installer detects the Linux distribution and installs cognitod's probe
// prerequisites.
type Installer struct {
	DryRun bool
}

// DistroInfo holds OS and package manager details.
type DistroInfo struct {
	ID         string // "ubuntu", "centos", "fedora", "arch"
	VersionID  string // "22.04", "8", etc.
	PkgManager string // "apt", "yum", "dnf", "pacman", "zypper"
}

// Run installs the packages cognitod's probe loader needs: kernel headers
// (the usual carrier of a BTF blob on kernels that don't expose
// /sys/kernel/btf/vmlinux directly) and bpftool, for operators diagnosing a
// failed capability check.
func (inst *Installer) Run() error {
	if runtime.GOOS != "linux" {
		return fmt.Errorf("cognitod install-deps is only supported on Linux (current: %s)", runtime.GOOS)
	}
	if os.Geteuid() != 0 {
		return fmt.Errorf("cognitod install-deps requires root privileges (use sudo)")
	}

	distro, err := DetectDistro()
	if err != nil {
		return fmt.Errorf("detect distro: %w", err)
	}
	fmt.Printf("Detected: %s %s (package manager: %s)\n", distro.ID, distro.VersionID, distro.PkgManager)

	if kernel, err := KernelVersion(); err == nil {
		fmt.Printf("Kernel: %s\n", kernel)
	}

	if !inst.DryRun {
		fmt.Println("\nUpdating package index...")
		if err := updatePackageIndex(distro.PkgManager); err != nil {
			fmt.Printf("  WARNING: %v\n", err)
		}
	}

	for _, step := range BuildPackageSteps(distro) {
		pkgs := step.Packages[distro.PkgManager]
		if len(pkgs) == 0 {
			continue
		}

		fmt.Printf("\n[%s] Installing: %s\n", step.Step, strings.Join(pkgs, " "))
		if inst.DryRun {
			fmt.Printf("  (dry-run) Would run: %s install %s\n", distro.PkgManager, strings.Join(pkgs, " "))
			continue
		}

		for _, pkg := range pkgs {
			if err := installPackages(distro.PkgManager, []string{pkg}); err != nil {
				fmt.Printf("  WARNING: failed to install %s: %v\n", pkg, err)
			} else {
				fmt.Printf("  OK: %s\n", pkg)
			}
		}
	}

	fmt.Println("\nInstallation complete. Run 'cognitod --probe-only' to verify probe capability.")
	return nil
}

// PackageSet defines packages for a single install step.
type PackageSet struct {
	Step     string
	Packages map[string][]string // pkg manager -> package names
}

// DetectDistro reads /etc/os-release to identify the distribution.
func DetectDistro() (*DistroInfo, error) {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return nil, fmt.Errorf("read /etc/os-release: %w", err)
	}

	info := &DistroInfo{}
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		val := strings.Trim(parts[1], "\"")
		switch parts[0] {
		case "ID":
			info.ID = val
		case "VERSION_ID":
			info.VersionID = val
		}
	}

	switch info.ID {
	case "ubuntu", "debian", "linuxmint", "pop":
		info.PkgManager = "apt"
	case "centos", "rhel", "rocky", "almalinux", "ol":
		info.PkgManager = "yum"
	case "fedora":
		info.PkgManager = "dnf"
	case "arch", "manjaro":
		info.PkgManager = "pacman"
	case "opensuse", "sles":
		info.PkgManager = "zypper"
	default:
		return nil, fmt.Errorf("unsupported distribution: %s", info.ID)
	}

	return info, nil
}

// KernelVersion returns the running kernel version.
func KernelVersion() (string, error) {
	out, err := exec.Command("uname", "-r").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// BuildPackageSteps returns the ordered list of package installations:
// kernel headers (BTF carrier) first, then bpftool for operator diagnostics.
func BuildPackageSteps(distro *DistroInfo) []PackageSet {
	kernelVer, _ := KernelVersion()

	aptHeaders := []string{"linux-headers-" + kernelVer}
	if kernelVer != "" {
		aptHeaders = append(aptHeaders, "linux-headers-generic")
	}

	return []PackageSet{
		{
			Step: "kernel-headers",
			Packages: map[string][]string{
				"apt":    aptHeaders,
				"yum":    {"kernel-devel-" + kernelVer, "kernel-devel"},
				"dnf":    {"kernel-devel"},
				"pacman": {"linux-headers"},
			},
		},
		{
			Step: "bpftool",
			Packages: map[string][]string{
				"apt":    {"linux-tools-" + kernelVer, "linux-tools-generic"},
				"yum":    {"bpftool"},
				"dnf":    {"bpftool"},
				"pacman": {"bpf"},
			},
		},
	}
}

func updatePackageIndex(pkgManager string) error {
	var cmd *exec.Cmd
	switch pkgManager {
	case "apt":
		cmd = exec.Command("apt-get", "update", "-qq")
		cmd.Env = append(os.Environ(), "DEBIAN_FRONTEND=noninteractive")
	case "yum":
		cmd = exec.Command("yum", "makecache", "-q")
	case "dnf":
		cmd = exec.Command("dnf", "makecache", "-q")
	case "pacman":
		cmd = exec.Command("pacman", "-Sy")
	default:
		return nil
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func installPackages(pkgManager string, packages []string) error {
	var cmd *exec.Cmd
	switch pkgManager {
	case "apt":
		args := append([]string{"install", "-y", "-qq"}, packages...)
		cmd = exec.Command("apt-get", args...)
		cmd.Env = append(os.Environ(), "DEBIAN_FRONTEND=noninteractive")
	case "yum":
		cmd = exec.Command("yum", append([]string{"install", "-y"}, packages...)...)
	case "dnf":
		cmd = exec.Command("dnf", append([]string{"install", "-y"}, packages...)...)
	case "pacman":
		cmd = exec.Command("pacman", append([]string{"-S", "--noconfirm"}, packages...)...)
	case "zypper":
		cmd = exec.Command("zypper", append([]string{"install", "-y"}, packages...)...)
	default:
		return fmt.Errorf("unsupported package manager: %s", pkgManager)
	}

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
