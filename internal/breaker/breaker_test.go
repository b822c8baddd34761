package breaker

import (
	"testing"
	"time"

	cogcontext "github.com/linnix-systems/cognitod/internal/context"
	"github.com/linnix-systems/cognitod/internal/enforcement"
	"github.com/linnix-systems/cognitod/internal/telemetry"
)

func hotLiveProcess(pid uint32) telemetry.ProcessEvent {
	event := telemetry.ProcessEvent{Pid: pid, EventType: telemetry.EventExec, TsNs: 1}
	event.SetCPUPercent(97)
	return event
}

func newTestBreaker(t *testing.T, cfg Config) (*Breaker, *cogcontext.Store, *enforcement.Queue) {
	t.Helper()
	store := cogcontext.NewStore(time.Minute, 16, nil, "")
	guard := enforcement.NewSafetyGuard(999999, func(uint32) (enforcement.ProcessInfo, bool) { return enforcement.ProcessInfo{}, false })
	queue := enforcement.NewQueue(300*time.Second, guard)
	b := New(cfg, store, queue)
	return b, store, queue
}

func TestGracePeriodSuppressesEarlyProposal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GracePeriod = 15 * time.Second
	b, store, queue := newTestBreaker(t, cfg)

	store.SetSystemSnapshot(cogcontext.SystemSnapshot{CPUPercent: 95, PSICPUSomeAvg10: 60})

	t0 := time.Unix(1000, 0)
	if id, err := b.Tick(t0); id != "" || err != nil {
		t.Fatalf("first breach tick should only arm the grace period, got id=%q err=%v", id, err)
	}

	// Pressure drops before the grace period elapses (spec §8 scenario 5).
	store.SetSystemSnapshot(cogcontext.SystemSnapshot{CPUPercent: 20, PSICPUSomeAvg10: 5})
	t1 := t0.Add(10 * time.Second)
	if id, err := b.Tick(t1); id != "" || err != nil {
		t.Fatalf("dropped pressure should clear the breach window, got id=%q err=%v", id, err)
	}

	if len(queue.GetAll()) != 0 {
		t.Fatalf("expected no proposals, got %d", len(queue.GetAll()))
	}
}

func TestSustainedCPUBreachProposesKill(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GracePeriod = 15 * time.Second
	b, store, queue := newTestBreaker(t, cfg)

	store.SetSystemSnapshot(cogcontext.SystemSnapshot{CPUPercent: 95, PSICPUSomeAvg10: 60})
	store.Add(hotLiveProcess(4242))

	t0 := time.Unix(2000, 0)
	b.Tick(t0) // arm

	t1 := t0.Add(16 * time.Second) // past the grace period
	id, err := b.Tick(t1)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if id == "" {
		t.Fatal("expected a proposed action id")
	}

	action, ok := queue.GetByID(id)
	if !ok {
		t.Fatal("proposed action not found in queue")
	}
	if action.Action.Kind != enforcement.KindKillProcess {
		t.Errorf("kind = %q, want kill_process", action.Action.Kind)
	}
}

func TestMemoryPathIsSuppressedWhenCPUBreaches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GracePeriod = 0
	b, store, queue := newTestBreaker(t, cfg)

	// Both paths breach simultaneously; CPU wins for the tick (spec §4.9).
	store.SetSystemSnapshot(cogcontext.SystemSnapshot{
		CPUPercent:         95,
		PSICPUSomeAvg10:    60,
		PSIMemoryFullAvg10: 90,
	})
	store.Add(hotLiveProcess(4243))

	t0 := time.Unix(3000, 0)
	b.Tick(t0) // arm both
	t1 := t0.Add(time.Second)
	id, err := b.Tick(t1)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if id == "" {
		t.Fatal("expected a proposed action")
	}
	if len(queue.GetAll()) != 1 {
		t.Fatalf("expected exactly one proposal for the tick, got %d", len(queue.GetAll()))
	}
}
