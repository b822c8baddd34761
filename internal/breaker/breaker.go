// Package breaker implements the kill-only circuit breaker (C9): a
// background loop that turns sustained CPU or memory pressure into a
// proposed enforcement action, grounded on the teacher's
// orchestrator.Orchestrator background-loop idiom generalized from
// "run collectors once" to "tick forever, propose enforcement".
package breaker

import (
	"context"
	"fmt"
	"log"
	"time"

	cogcontext "github.com/linnix-systems/cognitod/internal/context"
	"github.com/linnix-systems/cognitod/internal/enforcement"
)

const killSignal = 9 // SIGKILL

// Breaker ticks a Config's thresholds against C5 snapshots and proposes
// KillProcess actions onto an enforcement.Queue once pressure is sustained
// past the grace period. Only the kill-only strategy is implemented; a
// freeze-first variant with a PSI panic threshold is a possible future
// revision, not this one.
type Breaker struct {
	config Config
	store  *cogcontext.Store
	queue  *enforcement.Queue
	now    func() time.Time

	cpuBreachStartedAt time.Time
	memBreachStartedAt time.Time

	sleepUntil time.Time // post-proposal cooldown (spec §4.9 step 4: "sleep 30s")
}

// New builds a Breaker evaluating config against store's snapshots and
// proposing actions onto queue.
func New(config Config, store *cogcontext.Store, queue *enforcement.Queue) *Breaker {
	return &Breaker{
		config: config,
		store:  store,
		queue:  queue,
		now:    time.Now,
	}
}

// Run ticks at config.CheckInterval until ctx is done.
func (b *Breaker) Run(ctx context.Context) {
	ticker := time.NewTicker(b.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Tick(b.now())
		}
	}
}

// Tick evaluates one check_interval's worth of breach detection, proposing
// at most one action (CPU wins over memory on the same tick per spec §4.9).
// Returns the proposed action id, if any.
func (b *Breaker) Tick(now time.Time) (string, error) {
	if now.Before(b.sleepUntil) {
		return "", nil
	}

	snap := b.store.SystemSnapshot()

	cpuBreach := snap.CPUPercent > b.config.CPUUsageThreshold && snap.PSICPUSomeAvg10 > b.config.CPUPSIThreshold
	if id, proposed, err := b.evaluatePath(now, cpuBreach, &b.cpuBreachStartedAt,
		fmt.Sprintf("CPU thrashing sustained for %s (cpu=%.1f%%, psi_cpu_some_avg10=%.1f%%)",
			b.config.GracePeriod, snap.CPUPercent, snap.PSICPUSomeAvg10)); proposed {
		return id, err
	}

	memBreach := snap.PSIMemoryFullAvg10 > b.config.MemoryPSIFullThreshold
	if id, proposed, err := b.evaluatePath(now, memBreach, &b.memBreachStartedAt,
		fmt.Sprintf("Memory pressure sustained for %s (psi_memory_full_avg10=%.1f%%)",
			b.config.GracePeriod, snap.PSIMemoryFullAvg10)); proposed {
		return id, err
	}

	return "", nil
}

// evaluatePath runs one breach path's arm/clear/propose state machine.
// proposed is true iff this call attempted a proposal (whether or not it
// succeeded), so the caller can stop evaluating the other path this tick.
func (b *Breaker) evaluatePath(now time.Time, breach bool, startedAt *time.Time, reason string) (id string, proposed bool, err error) {
	if !breach {
		*startedAt = time.Time{}
		return "", false, nil
	}

	if startedAt.IsZero() {
		*startedAt = now
		log.Printf("[breaker] breach started at %s", now.Format(time.RFC3339))
		return "", false, nil
	}

	if now.Sub(*startedAt) < b.config.GracePeriod {
		return "", false, nil
	}

	pid, ok := b.topCPUConsumer()
	if !ok {
		return "", false, nil
	}

	autoApprove := b.config.Mode == ModeEnforce && !b.config.RequireHumanApproval
	action := enforcement.ActionType{Kind: enforcement.KindKillProcess, Pid: pid, Signal: killSignal}
	id, err = b.queue.ProposeAuto(action, reason, "circuit_breaker", nil, autoApprove)

	b.sleepUntil = now.Add(30 * time.Second)
	*startedAt = time.Time{}
	return id, true, err
}

// topCPUConsumer picks C5's live top-CPU process first, falling back to a
// system-wide /proc scan when nothing tracked is hot (spec §4.9 step 4).
func (b *Breaker) topCPUConsumer() (uint32, bool) {
	if top := b.store.TopCPUProcesses(1); len(top) > 0 {
		return top[0].Pid, true
	}
	if top := b.store.TopCPUProcessesSystemWide(1); len(top) > 0 {
		return top[0].Pid, true
	}
	return 0, false
}
