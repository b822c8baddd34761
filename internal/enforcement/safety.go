package enforcement

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// defaultCriticalNames are process names that may never be killed or
// frozen, ported verbatim from enforcement/safety.rs's CRITICAL_NAMES.
var defaultCriticalNames = []string{
	"systemd",
	"init",
	"sshd",
	"auditd",
	"cognitod",
	"containerd",
	"dockerd",
}

// defaultCriticalCgroupPrefixes are cgroup paths that may never be
// throttled, ported from safety.rs's CRITICAL_CGROUPS.
var defaultCriticalCgroupPrefixes = []string{
	"/system.slice",
	"/init.scope",
	"/user.slice",
	"kubepods/besteffort/kube-system",
	"kubepods/burstable/kube-system",
}

// ProcessInfo is the minimal live-OS view of a process the SafetyGuard
// needs: its comm name and its parent pid. This is deliberately read fresh
// from /proc rather than from internal/context's cached metadata (spec
// §4.8: "the live OS view names the process"), matching safety.rs's own use
// of a fresh sysinfo refresh rather than any cached state.
type ProcessInfo struct {
	Name string
	Ppid uint32
}

// ProcessLookup resolves a pid's live ProcessInfo, or ok=false if the pid no
// longer exists (which safety.rs treats as "safe": a dead pid is never
// critical).
type ProcessLookup func(pid uint32) (info ProcessInfo, ok bool)

// ProcLookup reads /proc/[pid]/status for Name/PPid, the default
// ProcessLookup implementation.
func ProcLookup(pid uint32) (ProcessInfo, bool) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return ProcessInfo{}, false
	}
	defer f.Close()

	var info ProcessInfo
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "Name:"):
			info.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
		case strings.HasPrefix(line, "PPid:"):
			if v, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(line, "PPid:")), 10, 32); err == nil {
				info.Ppid = uint32(v)
			}
		}
	}
	return info, true
}

// SafetyGuard is the mandatory precondition check for every proposal (spec
// §4.8), ported from enforcement/safety.rs's SafetyGuard.
type SafetyGuard struct {
	criticalNames   []string
	criticalCgroups []string
	selfPid         uint32
	lookup          ProcessLookup
}

// NewSafetyGuard builds a SafetyGuard using selfPid as "this daemon"'s own
// pid and lookup to resolve live process info; lookup defaults to ProcLookup
// if nil.
func NewSafetyGuard(selfPid uint32, lookup ProcessLookup) *SafetyGuard {
	if lookup == nil {
		lookup = ProcLookup
	}
	return &SafetyGuard{
		criticalNames:   defaultCriticalNames,
		criticalCgroups: defaultCriticalCgroupPrefixes,
		selfPid:         selfPid,
		lookup:          lookup,
	}
}

// IsSafeToKill applies to both KillProcess and FreezeProcess, matching the
// original's reuse of is_safe_to_kill for both variants.
func (g *SafetyGuard) IsSafeToKill(pid uint32) error {
	if pid <= 1 {
		return fmt.Errorf("pid %d is init/systemd", pid)
	}
	if pid == g.selfPid {
		return fmt.Errorf("cannot kill self")
	}

	info, ok := g.lookup(pid)
	if !ok {
		return nil
	}

	name := strings.ToLower(info.Name)
	for _, critical := range g.criticalNames {
		if strings.Contains(name, critical) {
			return fmt.Errorf("process %q is critical", name)
		}
	}

	if info.Ppid == g.selfPid {
		return fmt.Errorf("cannot kill own child")
	}

	return nil
}

// IsSafeCgroup rejects any path matching a configured critical prefix.
func (g *SafetyGuard) IsSafeCgroup(cgroupPath string) error {
	for _, critical := range g.criticalCgroups {
		if strings.Contains(cgroupPath, critical) {
			return fmt.Errorf("cgroup %q is critical (matches %q)", cgroupPath, critical)
		}
	}
	return nil
}
