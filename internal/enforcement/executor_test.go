package enforcement

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestExecutorExecutesApprovedKill(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start test process: %v", err)
	}
	defer cmd.Process.Kill()

	q := newTestQueue(300 * time.Second)
	id, err := q.ProposeAuto(ActionType{Kind: KindKillProcess, Pid: uint32(cmd.Process.Pid), Signal: 9}, "test", "test", nil, true)
	if err != nil {
		t.Fatalf("propose_auto: %v", err)
	}

	NewExecutor(q).tick()

	// The process was sent SIGKILL; Wait returning a non-nil *exec.ExitError
	// confirms it was actually signaled, not just marked Executed on paper.
	if err := cmd.Wait(); err == nil {
		t.Error("expected the killed process to exit with a non-nil error")
	}

	action, _ := q.GetByID(id)
	if action.Status != StatusExecuted {
		t.Errorf("status = %q, want executed", action.Status)
	}
}

func TestExecutorFreezeThenUnfreeze(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start test process: %v", err)
	}
	defer cmd.Process.Kill()

	q := newTestQueue(300 * time.Second)
	executor := NewExecutor(q)
	pid := uint32(cmd.Process.Pid)

	freezeID, err := q.ProposeAuto(ActionType{Kind: KindFreezeProcess, Pid: pid}, "test", "test", nil, true)
	if err != nil {
		t.Fatalf("propose_auto freeze: %v", err)
	}
	executor.tick()

	action, _ := q.GetByID(freezeID)
	if action.Status != StatusExecuted {
		t.Errorf("freeze status = %q, want executed", action.Status)
	}

	unfreezeID, err := q.ProposeAuto(ActionType{Kind: KindUnfreezeProcess, Pid: pid}, "test", "test", nil, true)
	if err != nil {
		t.Fatalf("propose_auto unfreeze: %v", err)
	}
	executor.tick()

	action, _ = q.GetByID(unfreezeID)
	if action.Status != StatusExecuted {
		t.Errorf("unfreeze status = %q, want executed", action.Status)
	}
}

func TestExecutorThrottleCgroupWritesCPUMax(t *testing.T) {
	dir := t.TempDir()

	q := newTestQueue(300 * time.Second)
	id, err := q.ProposeAuto(ActionType{
		Kind:       KindThrottleCgroup,
		CgroupPath: dir,
		QuotaUs:    50000,
		PeriodUs:   100000,
	}, "test", "test", nil, true)
	if err != nil {
		t.Fatalf("propose_auto: %v", err)
	}

	NewExecutor(q).tick()

	data, err := os.ReadFile(filepath.Join(dir, "cpu.max"))
	if err != nil {
		t.Fatalf("read cpu.max: %v", err)
	}
	if string(data) != "50000 100000" {
		t.Errorf("cpu.max contents = %q, want %q", string(data), "50000 100000")
	}

	action, _ := q.GetByID(id)
	if action.Status != StatusExecuted {
		t.Errorf("status = %q, want executed", action.Status)
	}
}

func TestExecutorSkipsNonApprovedActions(t *testing.T) {
	q := newTestQueue(300 * time.Second)
	id, _ := q.Propose(ActionType{Kind: KindKillProcess, Pid: 123456789, Signal: 9}, "test", "test", nil)

	NewExecutor(q).tick()

	action, _ := q.GetByID(id)
	if action.Status != StatusPending {
		t.Errorf("status = %q, want pending (untouched by the executor)", action.Status)
	}
}

func TestExecutorCompletesDespiteSignalFailure(t *testing.T) {
	q := newTestQueue(300 * time.Second)
	// A pid that (almost certainly) does not exist: signal delivery fails,
	// but the action must still be marked Executed, not retried forever.
	nonexistentPid, err := strconv.Atoi("327680")
	if err != nil {
		t.Fatalf("atoi: %v", err)
	}
	id, err := q.ProposeAuto(ActionType{Kind: KindKillProcess, Pid: uint32(nonexistentPid), Signal: 9}, "test", "test", nil, true)
	if err != nil {
		t.Fatalf("propose_auto: %v", err)
	}

	NewExecutor(q).tick()

	action, _ := q.GetByID(id)
	if action.Status != StatusExecuted {
		t.Errorf("status = %q, want executed even though the signal failed", action.Status)
	}
}
