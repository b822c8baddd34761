package enforcement

import (
	"strings"
	"testing"
)

func TestCannotKillPID1(t *testing.T) {
	guard := NewSafetyGuard(1000, notFoundLookup)
	err := guard.IsSafeToKill(1)
	if err == nil || !strings.Contains(err.Error(), "init") {
		t.Fatalf("expected init/systemd error, got %v", err)
	}
}

func TestCannotKillSelf(t *testing.T) {
	guard := NewSafetyGuard(1000, notFoundLookup)
	err := guard.IsSafeToKill(1000)
	if err == nil || !strings.Contains(err.Error(), "self") {
		t.Fatalf("expected self error, got %v", err)
	}
}

func TestNonexistentPIDIsSafe(t *testing.T) {
	guard := NewSafetyGuard(1000, notFoundLookup)
	if err := guard.IsSafeToKill(999999); err != nil {
		t.Fatalf("expected no error for a pid that no longer exists, got %v", err)
	}
}

func TestCriticalProcessNameIsRejected(t *testing.T) {
	guard := NewSafetyGuard(1000, alwaysFoundLookup(ProcessInfo{Name: "sshd"}))
	err := guard.IsSafeToKill(42)
	if err == nil || !strings.Contains(err.Error(), "critical") {
		t.Fatalf("expected critical-process error, got %v", err)
	}
}

func TestCannotKillOwnChild(t *testing.T) {
	guard := NewSafetyGuard(1000, alwaysFoundLookup(ProcessInfo{Name: "stress-ng", Ppid: 1000}))
	err := guard.IsSafeToKill(42)
	if err == nil || !strings.Contains(err.Error(), "own child") {
		t.Fatalf("expected own-child error, got %v", err)
	}
}

func TestOrdinaryProcessIsSafeToKill(t *testing.T) {
	guard := NewSafetyGuard(1000, alwaysFoundLookup(ProcessInfo{Name: "stress-ng", Ppid: 1}))
	if err := guard.IsSafeToKill(42); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestCriticalCgroupIsRejected(t *testing.T) {
	guard := NewSafetyGuard(1000, notFoundLookup)
	err := guard.IsSafeCgroup("/sys/fs/cgroup/system.slice/sshd.service")
	if err == nil || !strings.Contains(err.Error(), "critical") {
		t.Fatalf("expected critical-cgroup error, got %v", err)
	}
}

func TestOrdinaryCgroupIsSafeToThrottle(t *testing.T) {
	guard := NewSafetyGuard(1000, notFoundLookup)
	if err := guard.IsSafeCgroup("/sys/fs/cgroup/kubepods.slice/podabc/cpu.max"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
