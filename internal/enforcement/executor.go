package enforcement

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// executorPollInterval matches the original's executor loop, which polls
// the queue once per second rather than reacting to a push.
const executorPollInterval = time.Second

// Executor is the separate executor loop spec §4.8 requires: "a separate
// executor loop polls the queue for Approved actions; for each, it performs
// the OS operation ... and then calls complete." Failures are logged, not
// rolled back — a failed signal or cgroup write still marks the action
// Executed rather than retrying it forever.
type Executor struct {
	queue *Queue
}

// NewExecutor builds an Executor draining queue.
func NewExecutor(queue *Queue) *Executor {
	return &Executor{queue: queue}
}

// Run polls the queue until ctx is canceled, executing every Approved
// action it finds.
func (e *Executor) Run(ctx context.Context) {
	ticker := time.NewTicker(executorPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

func (e *Executor) tick() {
	for _, action := range e.queue.GetAll() {
		if action.Status != StatusApproved {
			continue
		}
		e.execute(action)
	}
}

func (e *Executor) execute(action EnforcementAction) {
	switch action.Action.Kind {
	case KindKillProcess:
		sig := syscall.Signal(action.Action.Signal)
		if sig == 0 {
			sig = syscall.SIGKILL
		}
		e.signal(action.ID, "KILL", action.Action.Pid, sig)
	case KindFreezeProcess:
		e.signal(action.ID, "FREEZE", action.Action.Pid, syscall.SIGSTOP)
	case KindUnfreezeProcess:
		e.signal(action.ID, "UNFREEZE", action.Action.Pid, syscall.SIGCONT)
	case KindThrottleCgroup:
		e.throttle(action.ID, action.Action.CgroupPath, action.Action.QuotaUs, action.Action.PeriodUs)
	default:
		log.Printf("[enforcement] %s: unknown action kind %q, completing without executing", action.ID, action.Action.Kind)
	}

	if err := e.queue.Complete(action.ID); err != nil {
		log.Printf("[enforcement] %s: complete failed: %v", action.ID, err)
	}
}

func (e *Executor) signal(id, label string, pid uint32, sig syscall.Signal) {
	log.Printf("[enforcement] %s: EXECUTING %s pid=%d signal=%d", id, label, pid, sig)
	proc, err := os.FindProcess(int(pid))
	if err != nil {
		log.Printf("[enforcement] %s: find process %d: %v", id, pid, err)
		return
	}
	if err := proc.Signal(sig); err != nil {
		log.Printf("[enforcement] %s: signal pid=%d: %v", id, pid, err)
	}
}

func (e *Executor) throttle(id, cgroupPath string, quotaUs, periodUs uint64) {
	path := filepath.Join(cgroupPath, "cpu.max")
	value := fmt.Sprintf("%d %d", quotaUs, periodUs)
	log.Printf("[enforcement] %s: THROTTLING cgroup %s to %s", id, cgroupPath, value)
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		log.Printf("[enforcement] %s: throttle %s: %v", id, cgroupPath, err)
		return
	}
	log.Printf("[enforcement] %s: throttled %s", id, cgroupPath)
}
