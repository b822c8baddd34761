package psi

import (
	"log"
	"os"
	"sort"
	"time"

	"github.com/linnix-systems/cognitod/internal/context"
	"github.com/linnix-systems/cognitod/internal/external"
)

// stallThresholdUs is the minimum "some" stall delta per tick that counts
// as "under pressure" (spec §4.6).
const stallThresholdUs = 100_000

// historySize bounds the per-pod snapshot history.
const historySize = 10

// Engine scans cgroup pressure files on a tick, tracks per-pod PSI history,
// and synthesizes StallEvents once a pod has been under sustained pressure.
// Grounded on collectors/psi.rs's PsiMonitor.
type Engine struct {
	store    *context.Store
	resolver external.PodMetadataResolver
	cgroupRoot string

	sustainedPressure time.Duration

	history       map[string][]Snapshot
	pressureStart map[string]time.Time
}

// NewEngine builds an Engine reading cgroup files under cgroupRoot,
// resolving container ids via resolver, and pulling concurrent-consumer
// and fork/short-job data from store.
func NewEngine(store *context.Store, resolver external.PodMetadataResolver, cgroupRoot string, sustainedPressure time.Duration) *Engine {
	return &Engine{
		store:             store,
		resolver:          resolver,
		cgroupRoot:        cgroupRoot,
		sustainedPressure: sustainedPressure,
		history:           make(map[string][]Snapshot),
		pressureStart:     make(map[string]time.Time),
	}
}

// Tick scans every pressure file once, updates history, and returns any
// StallEvents synthesized this tick (spec §4.6 steps 1-5).
func (e *Engine) Tick(now time.Time) []StallEvent {
	var events []StallEvent

	for _, path := range FindPressureFiles(e.cgroupRoot) {
		event, ok := e.processPressureFile(path, now)
		if ok {
			events = append(events, event)
		}
	}
	return events
}

func (e *Engine) processPressureFile(path string, now time.Time) (StallEvent, bool) {
	containerID, ok := ExtractContainerID(path)
	if !ok {
		return StallEvent{}, false
	}
	meta, ok := e.resolver.MetadataForContainer(containerID)
	if !ok {
		return StallEvent{}, false
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return StallEvent{}, false
	}
	snap := ParsePressureFile(string(content))

	key := meta.Namespace + "/" + meta.PodName
	hist := e.history[key]

	var delta uint64
	var hasPrev bool
	if len(hist) > 0 {
		prev := hist[len(hist)-1]
		hasPrev = true
		if snap.SomeTotal > prev.SomeTotal {
			delta = snap.SomeTotal - prev.SomeTotal
		}
	}

	hist = append(hist, snap)
	if len(hist) > historySize {
		hist = hist[1:]
	}
	e.history[key] = hist

	underPressure := hasPrev && delta >= stallThresholdUs
	if !underPressure {
		delete(e.pressureStart, key)
		return StallEvent{}, false
	}

	start, set := e.pressureStart[key]
	if !set {
		e.pressureStart[key] = now
		return StallEvent{}, false
	}

	if now.Sub(start) < e.sustainedPressure {
		return StallEvent{}, false
	}

	// Sustained: synthesize one attribution and reset the window so we
	// emit at most once per sustained-pressure period (spec §4.6 step 4).
	e.pressureStart[key] = now

	event := StallEvent{
		VictimPod:           meta.PodName,
		VictimNamespace:     meta.Namespace,
		StallDeltaUs:        delta,
		TimestampUnix:       now.Unix(),
		ConcurrentConsumers: e.concurrentCPUConsumers(),
	}
	event.ForkCounts, event.ShortJobCounts = e.store.GetPodActivityWindow(e.sustainedPressure)

	log.Printf("[psi] StallEvent: %s/%s stalled %dus with %d concurrent consumers",
		event.VictimNamespace, event.VictimPod, event.StallDeltaUs, len(event.ConcurrentConsumers))

	return event, true
}

// concurrentCPUConsumers resolves every live process with cpu_percent > 0
// to a pod, matching psi.rs's get_concurrent_cpu_consumers (a fresh
// resolver lookup per process, not the context store's cached metadata).
func (e *Engine) concurrentCPUConsumers() []CPUConsumer {
	live := e.store.LiveSnapshot()
	consumers := make([]CPUConsumer, 0, len(live))
	for _, proc := range live {
		pct, ok := proc.CPUPercent()
		if !ok || pct <= 0 {
			continue
		}
		meta, ok := e.resolver.MetadataForPID(proc.Pid)
		if !ok {
			continue
		}
		consumers = append(consumers, CPUConsumer{Pod: meta.PodName, Namespace: meta.Namespace, CPUPercent: pct})
	}
	sort.Slice(consumers, func(i, j int) bool { return consumers[i].CPUPercent > consumers[j].CPUPercent })
	return consumers
}

// LogTopBlame logs the top-3 attributions, matching the original's
// per-tick blame logging.
func LogTopBlame(attrs []BlameAttribution) {
	for i, attr := range attrs {
		if i >= 3 {
			break
		}
		log.Printf("[psi]   blame %d: %s/%s score=%.3f cpu_share", i+1, attr.OffenderNamespace, attr.OffenderPod, attr.BlameScore)
	}
}
