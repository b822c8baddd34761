// Package metrics holds the pipeline's own operational counters: rate-cap
// drops, lineage cache hit/miss, and the protocol-anomaly counters the
// error taxonomy treats as "counted, not fatal" (ring ordering violations,
// reaper skips — both folded in periodically from the ring's own
// cumulative counters by internal/stream.Listener). Grounded on the
// teacher's internal/observer/tracker.go: a mutex-guarded struct of plain
// counters with small accessor methods, rather than a metrics library.
package metrics

import (
	"sync"

	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// SamplingDenominator is the reserved "keep every Nth" divisor applied to
// critical events once the per-second rate cap is exceeded (spec §4.4).
const SamplingDenominator = 10

// numEventTypes bounds the per-type drop counter array; EventPageFault is
// the highest EventType value.
const numEventTypes = int(telemetry.EventPageFault) + 1

// Metrics accumulates pipeline counters under a single mutex. Contention
// is not a concern: every field is touched at most once per delivered
// event, already serialized through the single stream-listener consumer.
type Metrics struct {
	mu sync.Mutex

	windowSec        int64
	eventsThisWindow uint64
	rateLimited      uint64
	dropsByType      [numEventTypes]uint64

	lineageHits   uint64
	lineageMisses uint64

	ringOrderingViolations uint64
	reaperSkips            uint64
}

// New constructs an empty Metrics.
func New() *Metrics { return &Metrics{} }

// RecordEvent applies the rate-cap/drop policy (spec §4.4): the running
// per-second count is incremented; once it exceeds cap, the event is
// dropped unless it is critical (Exec/Fork/Exit) and the running count is
// a multiple of SamplingDenominator. Returns true if the event survives
// and should continue through the fan-out.
func (m *Metrics) RecordEvent(nowUnixSec int64, cap uint64, eventType telemetry.EventType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if nowUnixSec != m.windowSec {
		m.windowSec = nowUnixSec
		m.eventsThisWindow = 0
	}
	m.eventsThisWindow++

	if m.eventsThisWindow <= cap {
		return true
	}

	critical := eventType <= telemetry.EventExit
	if critical && m.eventsThisWindow%SamplingDenominator == 0 {
		return true
	}

	m.rateLimited++
	if int(eventType) < numEventTypes {
		m.dropsByType[eventType]++
	}
	return false
}

// IncLineageHit counts a successful ppid backfill from the lineage cache.
func (m *Metrics) IncLineageHit() {
	m.mu.Lock()
	m.lineageHits++
	m.mu.Unlock()
}

// IncLineageMiss counts a lineage cache lookup that found nothing.
func (m *Metrics) IncLineageMiss() {
	m.mu.Lock()
	m.lineageMisses++
	m.mu.Unlock()
}

// AddOrderingViolations folds in n ring gap/resyncs (spec §4.2 case 4).
// Takes a count rather than a single increment because the listener
// reports these as a periodic delta against the ring's own cumulative
// counter, not one call per occurrence.
func (m *Metrics) AddOrderingViolations(n uint64) {
	if n == 0 {
		return
	}
	m.mu.Lock()
	m.ringOrderingViolations += n
	m.mu.Unlock()
}

// AddReaperSkips folds in n ring slots reaped after a stalled writer
// (spec §4.2 case 5), reported the same way as AddOrderingViolations.
func (m *Metrics) AddReaperSkips(n uint64) {
	if n == 0 {
		return
	}
	m.mu.Lock()
	m.reaperSkips += n
	m.mu.Unlock()
}

// Snapshot is a point-in-time copy of every counter, safe to serialize
// onto the status/metrics surface.
type Snapshot struct {
	RateLimited            uint64
	DropsByType            [numEventTypes]uint64
	LineageHits            uint64
	LineageMisses          uint64
	RingOrderingViolations uint64
	ReaperSkips            uint64
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		RateLimited:            m.rateLimited,
		DropsByType:            m.dropsByType,
		LineageHits:            m.lineageHits,
		LineageMisses:          m.lineageMisses,
		RingOrderingViolations: m.ringOrderingViolations,
		ReaperSkips:            m.reaperSkips,
	}
}
