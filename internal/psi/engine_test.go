package psi

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linnix-systems/cognitod/internal/context"
	"github.com/linnix-systems/cognitod/internal/external"
)

type fakeResolver struct {
	meta external.PodMetadata
}

func (r *fakeResolver) MetadataForContainer(string) (external.PodMetadata, bool) {
	return r.meta, true
}

func (r *fakeResolver) MetadataForPID(uint32) (external.PodMetadata, bool) {
	return r.meta, true
}

func writePressureTotal(t *testing.T, path string, total uint64) {
	t.Helper()
	content := fmt.Sprintf("some avg10=0.00 avg60=0.00 avg300=0.00 total=%d\nfull avg10=0.00 avg60=0.00 avg300=0.00 total=0\n", total)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func setupKubepodsFile(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	containerID := strings.Repeat("a", 64)
	dir := filepath.Join(root, "kubepods.slice", "cri-containerd-"+containerID+".scope")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "cpu.pressure")
}

func TestEngineEmitsStallEventAfterSustainedPressure(t *testing.T) {
	path := setupKubepodsFile(t)
	store := context.NewStore(time.Minute, 128, nil, "")
	resolver := &fakeResolver{meta: external.PodMetadata{Namespace: "default", PodName: "victim"}}
	engine := NewEngine(store, resolver, filepath.Dir(filepath.Dir(filepath.Dir(path))), 10*time.Second)

	t0 := time.Unix(1000, 0)
	writePressureTotal(t, path, 0)
	if events := engine.Tick(t0); len(events) != 0 {
		t.Fatalf("first tick (no prior sample) should not emit, got %v", events)
	}

	t1 := t0.Add(time.Second)
	writePressureTotal(t, path, 200_000)
	if events := engine.Tick(t1); len(events) != 0 {
		t.Fatalf("crossing threshold should only arm pressure_start_time, got %v", events)
	}

	t2 := t1.Add(11 * time.Second)
	writePressureTotal(t, path, 400_000)
	events := engine.Tick(t2)
	if len(events) != 1 {
		t.Fatalf("got %d events after sustained pressure, want 1", len(events))
	}
	if events[0].VictimPod != "victim" || events[0].VictimNamespace != "default" {
		t.Errorf("unexpected victim: %+v", events[0])
	}
	if events[0].StallDeltaUs != 200_000 {
		t.Errorf("stall_delta_us = %d, want 200000", events[0].StallDeltaUs)
	}
}

func TestEngineClearsPressureStartWhenDeltaDrops(t *testing.T) {
	path := setupKubepodsFile(t)
	store := context.NewStore(time.Minute, 128, nil, "")
	resolver := &fakeResolver{meta: external.PodMetadata{Namespace: "default", PodName: "victim"}}
	engine := NewEngine(store, resolver, filepath.Dir(filepath.Dir(filepath.Dir(path))), 10*time.Second)

	t0 := time.Unix(2000, 0)
	writePressureTotal(t, path, 0)
	engine.Tick(t0)

	t1 := t0.Add(time.Second)
	writePressureTotal(t, path, 200_000) // crosses threshold, arms pressure_start_time
	engine.Tick(t1)

	t2 := t1.Add(time.Second)
	writePressureTotal(t, path, 200_001) // delta of 1us: no longer under pressure
	if events := engine.Tick(t2); len(events) != 0 {
		t.Fatalf("delta below threshold should clear pressure window, got %v", events)
	}

	t3 := t2.Add(20 * time.Second)
	writePressureTotal(t, path, 400_001) // crosses again, but window was reset at t2
	if events := engine.Tick(t3); len(events) != 0 {
		t.Fatalf("pressure window should have restarted at t2, not yet sustained at t3, got %v", events)
	}
}
