package metrics

import (
	"testing"

	"github.com/linnix-systems/cognitod/internal/telemetry"
)

func TestRecordEventUnderCapAlwaysSurvives(t *testing.T) {
	m := New()
	for i := 0; i < 5; i++ {
		if !m.RecordEvent(1000, 10, telemetry.EventFileIO) {
			t.Fatalf("event %d dropped while under cap", i)
		}
	}
}

func TestRecordEventOverCapDropsNonCritical(t *testing.T) {
	m := New()
	for i := 0; i < 3; i++ {
		m.RecordEvent(1000, 3, telemetry.EventFileIO)
	}
	if m.RecordEvent(1000, 3, telemetry.EventFileIO) {
		t.Fatal("expected non-critical event over cap to be dropped")
	}
	snap := m.Snapshot()
	if snap.RateLimited != 1 {
		t.Errorf("RateLimited = %d, want 1", snap.RateLimited)
	}
	if snap.DropsByType[telemetry.EventFileIO] != 1 {
		t.Errorf("DropsByType[FileIO] = %d, want 1", snap.DropsByType[telemetry.EventFileIO])
	}
}

func TestRecordEventOverCapSamplesCriticalEvents(t *testing.T) {
	m := New()
	survived := 0
	for i := 0; i < 2*SamplingDenominator; i++ {
		if m.RecordEvent(1000, 0, telemetry.EventExec) {
			survived++
		}
	}
	if survived != 2 {
		t.Errorf("survived = %d, want exactly 2 sampled critical events (every %dth)", survived, SamplingDenominator)
	}
}

func TestRecordEventResetsPerSecondWindow(t *testing.T) {
	m := New()
	for i := 0; i < 5; i++ {
		m.RecordEvent(1000, 3, telemetry.EventFileIO)
	}
	if !m.RecordEvent(1001, 3, telemetry.EventFileIO) {
		t.Error("expected new second window to reset the rate cap")
	}
}

func TestLineageCounters(t *testing.T) {
	m := New()
	m.IncLineageHit()
	m.IncLineageHit()
	m.IncLineageMiss()
	snap := m.Snapshot()
	if snap.LineageHits != 2 || snap.LineageMisses != 1 {
		t.Errorf("got hits=%d misses=%d, want 2/1", snap.LineageHits, snap.LineageMisses)
	}
}

func TestRingAnomalyCountersAccumulate(t *testing.T) {
	m := New()
	m.AddOrderingViolations(3)
	m.AddOrderingViolations(2)
	m.AddReaperSkips(1)
	snap := m.Snapshot()
	if snap.RingOrderingViolations != 5 {
		t.Errorf("RingOrderingViolations = %d, want 5", snap.RingOrderingViolations)
	}
	if snap.ReaperSkips != 1 {
		t.Errorf("ReaperSkips = %d, want 1", snap.ReaperSkips)
	}
}

func TestRingAnomalyCountersIgnoreZeroDelta(t *testing.T) {
	m := New()
	m.AddOrderingViolations(0)
	m.AddReaperSkips(0)
	snap := m.Snapshot()
	if snap.RingOrderingViolations != 0 || snap.ReaperSkips != 0 {
		t.Errorf("expected zero deltas to be no-ops, got violations=%d skips=%d", snap.RingOrderingViolations, snap.ReaperSkips)
	}
}
