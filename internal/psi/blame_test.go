package psi

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-3 }

func TestComputeBlameTwoOffendersAndAForker(t *testing.T) {
	event := StallEvent{
		VictimPod:       "victim",
		VictimNamespace: "default",
		StallDeltaUs:    1_000_000,
		ConcurrentConsumers: []CPUConsumer{
			{Pod: "cpu-hog", Namespace: "default", CPUPercent: 50},
			{Pod: "fork-bomb", Namespace: "default", CPUPercent: 10},
		},
		ForkCounts:     map[string]uint64{"default/fork-bomb": 200},
		ShortJobCounts: map[string]uint64{"default/short-job-pod": 100},
	}

	attrs := ComputeBlame(event)
	if len(attrs) != 3 {
		t.Fatalf("got %d attributions, want 3", len(attrs))
	}

	byPod := make(map[string]BlameAttribution, len(attrs))
	for _, a := range attrs {
		byPod[a.OffenderPod] = a
	}

	forkBomb := byPod["fork-bomb"]
	if !almostEqual(forkBomb.CPUShare, 10.0/60.0) {
		t.Errorf("fork-bomb cpu_share = %v, want ~0.1667", forkBomb.CPUShare)
	}
	if !almostEqual(forkBomb.BlameScore, 1.1667) {
		t.Errorf("fork-bomb blame = %v, want ~1.1667", forkBomb.BlameScore)
	}

	shortJob := byPod["short-job-pod"]
	if !almostEqual(shortJob.BlameScore, 1.0) {
		t.Errorf("short-job-pod blame = %v, want 1.0", shortJob.BlameScore)
	}

	cpuHog := byPod["cpu-hog"]
	if !almostEqual(cpuHog.BlameScore, 0.8333) {
		t.Errorf("cpu-hog blame = %v, want ~0.8333", cpuHog.BlameScore)
	}

	// Sorted descending: fork-bomb > short-job-pod > cpu-hog.
	if attrs[0].OffenderPod != "fork-bomb" || attrs[1].OffenderPod != "short-job-pod" || attrs[2].OffenderPod != "cpu-hog" {
		t.Errorf("unexpected sort order: %+v", attrs)
	}
}

func TestComputeBlameOmitsZeroScores(t *testing.T) {
	event := StallEvent{
		StallDeltaUs: 1_000_000,
		ConcurrentConsumers: []CPUConsumer{
			{Pod: "only-consumer", Namespace: "default", CPUPercent: 100},
		},
	}
	attrs := ComputeBlame(event)
	if len(attrs) != 1 {
		t.Fatalf("got %d attributions, want 1", len(attrs))
	}
}

func TestComputeBlameNoConsumersYieldsNoAttributions(t *testing.T) {
	event := StallEvent{StallDeltaUs: 1_000_000}
	attrs := ComputeBlame(event)
	if len(attrs) != 0 {
		t.Errorf("got %d attributions, want 0", len(attrs))
	}
}
