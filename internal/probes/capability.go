package probes

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Transport names the active C1→C2/C4 data path, exported on the status
// endpoint (spec §6 "Perf/ring discovery").
type Transport string

const (
	TransportRing        Transport = "ring"
	TransportPerfArray   Transport = "perf_array"
	TransportTracepoint  Transport = "tracepoint_only"
	TransportUnavailable Transport = "unavailable"
)

// KernelInfo describes the host's instrumentation capability, adapted
// from the teacher's BTFInfo to additionally report the two effective
// capabilities spec §6 requires before startup can proceed.
type KernelInfo struct {
	Version             string
	Major, Minor         int
	BTFAvailable        bool
	BTFPath             string
	HasInstrumentationCap bool // CAP_BPF (or legacy CAP_SYS_ADMIN) effective
	HasPerfMonCap       bool // CAP_PERFMON (or legacy CAP_SYS_ADMIN) effective
}

// MinimumKernelMajor and MinimumKernelMinor gate startup (spec §6
// "Minimum kernel version").
const (
	MinimumKernelMajor = 5
	MinimumKernelMinor = 8
)

// DetectKernel probes /proc/version, /sys/kernel/btf/vmlinux, and the
// process's effective capability set, mirroring the teacher's
// DetectBTF/DetectBPFCapabilities but folded into one report.
func DetectKernel() *KernelInfo {
	info := &KernelInfo{Version: readKernelVersion()}
	info.Major, info.Minor = parseKernelVersion(info.Version)

	if _, err := os.Stat("/sys/kernel/btf/vmlinux"); err == nil {
		info.BTFAvailable = true
		info.BTFPath = "/sys/kernel/btf/vmlinux"
	}

	info.HasInstrumentationCap = hasEffectiveCapability(capBPF) || hasEffectiveCapability(capSysAdmin)
	info.HasPerfMonCap = hasEffectiveCapability(capPerfmon) || hasEffectiveCapability(capSysAdmin)

	return info
}

// SupportsCORE reports whether the kernel version meets the minimum for
// CO-RE BPF programs (spec §6).
func (k *KernelInfo) SupportsCORE() bool {
	if k.Major > MinimumKernelMajor {
		return true
	}
	return k.Major == MinimumKernelMajor && k.Minor >= MinimumKernelMinor
}

// ErrMissingCapability is returned when the process lacks an effective
// capability spec §6 requires before entering the event loop.
type ErrMissingCapability struct {
	Capability string
}

func (e *ErrMissingCapability) Error() string {
	return fmt.Sprintf("probes: missing effective capability %s; run as root or grant it via setcap", e.Capability)
}

// CheckStartupRequirements enforces spec §6's hard gate: both capabilities
// effective, kernel version at minimum. Returns a one-line remediation
// error, never partial success.
func (k *KernelInfo) CheckStartupRequirements() error {
	if !k.HasInstrumentationCap {
		return &ErrMissingCapability{Capability: "CAP_BPF/CAP_SYS_ADMIN"}
	}
	if !k.HasPerfMonCap {
		return &ErrMissingCapability{Capability: "CAP_PERFMON/CAP_SYS_ADMIN"}
	}
	if !k.SupportsCORE() {
		return fmt.Errorf("probes: kernel %s older than minimum %d.%d", k.Version, MinimumKernelMajor, MinimumKernelMinor)
	}
	return nil
}

// SelectTransport implements spec §6's three-tier fallback: ring when BTF
// is available, legacy perf array otherwise, tracepoint-only as a last
// resort when even the perf array cannot be set up.
func (k *KernelInfo) SelectTransport(perfArrayAvailable, rssTracepointAvailable bool) Transport {
	if k.BTFAvailable {
		return TransportRing
	}
	if perfArrayAvailable {
		return TransportPerfArray
	}
	if rssTracepointAvailable {
		return TransportTracepoint
	}
	return TransportUnavailable
}

func readKernelVersion() string {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return ""
	}
	fields := strings.Fields(string(data))
	if len(fields) >= 3 {
		return fields[2]
	}
	return ""
}

func parseKernelVersion(version string) (int, int) {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return 0, 0
	}
	major, _ := strconv.Atoi(parts[0])
	minorStr := parts[1]
	if idx := strings.IndexAny(minorStr, "-+~"); idx >= 0 {
		minorStr = minorStr[:idx]
	}
	minor, _ := strconv.Atoi(minorStr)
	return major, minor
}
