package context

import (
	"sort"
	"sync"
	"time"

	"github.com/linnix-systems/cognitod/internal/broadcast"
	"github.com/linnix-systems/cognitod/internal/external"
	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// broadcastCapacity is the reference bound on the live event subscription
// channel (spec §4.5).
const broadcastCapacity = 1024

// processEntry is the context store's value type: an event paired with
// whatever pod metadata was resolvable at the time it was recorded.
type processEntry struct {
	event    telemetry.ProcessEvent
	metadata *external.PodMetadata
}

type historyEntry struct {
	capturedAtNs uint64
	event        telemetry.ProcessEvent
	metadata     *external.PodMetadata
}

// Store is the bounded live+history process map (C5), matching
// context.rs's ContextStore: history is pruned by both max-age and
// max-length, live entries follow the Exec/Fork/Exit admission rules in
// spec §3, and every admitted event is rebroadcast with a store-stamped
// monotonic seq.
type Store struct {
	mu      sync.Mutex
	history []historyEntry
	live    map[uint32]processEntry

	maxAge time.Duration
	maxLen int

	seq uint64
	bus *broadcast.Channel[telemetry.ProcessEvent]

	snapMu   sync.Mutex
	snapshot SystemSnapshot
	stats    *systemStatCollector

	resolver external.PodMetadataResolver

	now func() uint64 // nanoseconds since epoch; overridable for tests
}

// NewStore builds a Store with the given history bounds. resolver may be
// nil (no pod-metadata enrichment, matching k8s_ctx: None).
func NewStore(maxAge time.Duration, maxLen int, resolver external.PodMetadataResolver, procRoot string) *Store {
	return &Store{
		live:     make(map[uint32]processEntry),
		maxAge:   maxAge,
		maxLen:   maxLen,
		seq:      1,
		bus:      broadcast.New[telemetry.ProcessEvent](broadcastCapacity),
		stats:    newSystemStatCollector(procRoot),
		resolver: resolver,
		now:      func() uint64 { return uint64(time.Now().UnixNano()) },
	}
}

// Broadcaster returns a fresh subscription onto the live event stream.
func (s *Store) Broadcaster() *broadcast.Subscriber[telemetry.ProcessEvent] {
	return s.bus.Subscribe()
}

// Add admits event into history and the live map, resolves pod metadata,
// normalizes Exit timestamps, then rebroadcasts with a store-stamped seq.
func (s *Store) Add(event telemetry.ProcessEvent) {
	now := s.now()
	// Exit ages are measured in the ts_ns domain exit_time_ns lives in,
	// against the incoming event's own (pre-normalization) ts_ns.
	eventNs := event.TsNs

	s.mu.Lock()

	metadata := s.resolveMetadata(event)

	// Exit normalization (spec §3): ts_ns becomes the recorded start time,
	// exit_time_ns records the original Exit ts_ns.
	if event.EventType == telemetry.EventExit {
		if prev, ok := s.live[event.Pid]; ok {
			event.ExitTimeNs = event.TsNs
			event.TsNs = prev.event.TsNs
		}
	}

	s.history = append(s.history, historyEntry{capturedAtNs: now, event: event, metadata: metadata})
	s.pruneHistoryLocked(eventNs)

	s.admitLiveLocked(event, metadata)
	s.evictExpiredLiveLocked(eventNs)

	event.Seq = s.seq
	s.seq++

	s.mu.Unlock()

	s.bus.Send(event)
}

// resolveMetadata mirrors context.rs's per-event-type metadata lookup:
// Exec/Fork try the resolver fresh (Fork falls back to the parent's cached
// metadata on a cgroup-not-yet-populated race); Exit and all other event
// types reuse whatever is already cached against the live pid.
func (s *Store) resolveMetadata(event telemetry.ProcessEvent) *external.PodMetadata {
	if s.resolver == nil {
		return nil
	}

	switch event.EventType {
	case telemetry.EventExec, telemetry.EventFork:
		if meta, ok := s.resolver.MetadataForPID(event.Pid); ok {
			return &meta
		}
		if event.EventType == telemetry.EventFork {
			if parent, ok := s.live[event.Ppid]; ok {
				return parent.metadata
			}
		}
		return nil
	default:
		if entry, ok := s.live[event.Pid]; ok {
			return entry.metadata
		}
		if meta, ok := s.resolver.MetadataForPID(event.Pid); ok {
			return &meta
		}
		return nil
	}
}

func (s *Store) admitLiveLocked(event telemetry.ProcessEvent, metadata *external.PodMetadata) {
	switch event.EventType {
	case telemetry.EventExec:
		event.ExitTimeNs = 0
		s.live[event.Pid] = processEntry{event: event, metadata: metadata}
	case telemetry.EventFork:
		event.ExitTimeNs = 0
		if _, exists := s.live[event.Pid]; !exists {
			s.live[event.Pid] = processEntry{event: event, metadata: metadata}
		}
	case telemetry.EventExit:
		// event.ExitTimeNs is already in the monotonic ts_ns domain here: the
		// caller's normalization block set it to the original Exit event's
		// ts_ns when a live entry existed. With no prior live entry there is
		// no start time to normalize against, so the event's own ts_ns (still
		// monotonic, never wall-clock) stands in as the exit time.
		exitTimeNs := event.ExitTimeNs
		if exitTimeNs == 0 {
			exitTimeNs = event.TsNs
		}
		if entry, ok := s.live[event.Pid]; ok {
			entry.event.ExitTimeNs = exitTimeNs
			entry.event.EventType = telemetry.EventExit
			s.live[event.Pid] = entry
		} else {
			event.ExitTimeNs = exitTimeNs
			s.live[event.Pid] = processEntry{event: event, metadata: metadata}
		}
	}
}

func (s *Store) evictExpiredLiveLocked(now uint64) {
	for pid, entry := range s.live {
		if entry.event.EventType != telemetry.EventExit {
			continue
		}
		if entry.event.ExitTimeNs == 0 || now < entry.event.ExitTimeNs {
			continue
		}
		if now-entry.event.ExitTimeNs >= uint64(s.maxAge.Nanoseconds()) {
			delete(s.live, pid)
		}
	}
}

func (s *Store) pruneHistoryLocked(now uint64) {
	i := 0
	for i < len(s.history) {
		e := s.history[i]
		if e.event.EventType == telemetry.EventExit && e.event.ExitTimeNs != 0 &&
			now > e.event.ExitTimeNs && now-e.event.ExitTimeNs > uint64(s.maxAge.Nanoseconds()) {
			i++
			continue
		}
		break
	}
	s.history = s.history[i:]

	if over := len(s.history) - s.maxLen; over > 0 {
		s.history = s.history[over:]
	}
}

// GetRecent returns every history entry captured within maxAge of now.
func (s *Store) GetRecent() []telemetry.ProcessEvent {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]telemetry.ProcessEvent, 0, len(s.history))
	for _, e := range s.history {
		if now-e.capturedAtNs <= uint64(s.maxAge.Nanoseconds()) {
			out = append(out, e.event)
		}
	}
	return out
}

// LiveSnapshot returns every currently-live process entry.
func (s *Store) LiveSnapshot() []telemetry.ProcessEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]telemetry.ProcessEvent, 0, len(s.live))
	for _, entry := range s.live {
		out = append(out, entry.event)
	}
	return out
}

// GetProcessByPid looks up a single live entry.
func (s *Store) GetProcessByPid(pid uint32) (telemetry.ProcessEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live[pid]
	return entry.event, ok
}

func rankedTop(entries []ProcessMemorySummary, limit int) []ProcessMemorySummary {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Percent > entries[j].Percent })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// TopCPUProcesses ranks live, eBPF-tracked processes with cpu_percent > 0.
func (s *Store) TopCPUProcesses(limit int) []ProcessMemorySummary {
	s.mu.Lock()
	entries := make([]ProcessMemorySummary, 0, len(s.live))
	for _, entry := range s.live {
		pct, ok := entry.event.CPUPercent()
		if !ok || pct <= 0 {
			continue
		}
		entries = append(entries, ProcessMemorySummary{Pid: entry.event.Pid, Comm: entry.event.CommString(), Percent: pct})
	}
	s.mu.Unlock()
	return rankedTop(entries, limit)
}

// TopRSSProcesses ranks live, eBPF-tracked processes with mem_percent > 0.
func (s *Store) TopRSSProcesses(limit int) []ProcessMemorySummary {
	s.mu.Lock()
	entries := make([]ProcessMemorySummary, 0, len(s.live))
	for _, entry := range s.live {
		pct, ok := entry.event.MemPercent()
		if !ok || pct <= 0 {
			continue
		}
		entries = append(entries, ProcessMemorySummary{Pid: entry.event.Pid, Comm: entry.event.CommString(), Percent: pct})
	}
	s.mu.Unlock()
	return rankedTop(entries, limit)
}

// TopCPUProcessesSystemWide ranks every process /proc knows about, not just
// the eBPF-tracked live map; used by the circuit breaker (C9) as a fallback
// when no tracked process exceeds zero CPU.
func (s *Store) TopCPUProcessesSystemWide(limit int) []ProcessMemorySummary {
	pids := s.systemPIDs()
	samples := s.stats.refreshProcesses(pids)

	entries := make([]ProcessMemorySummary, 0, len(samples))
	for pid, sample := range samples {
		if sample.cpuPercent <= 0 {
			continue
		}
		entries = append(entries, ProcessMemorySummary{Pid: pid, Percent: sample.cpuPercent})
	}
	return rankedTop(entries, limit)
}

func (s *Store) systemPIDs() []uint32 {
	entries, err := readDirNames(s.stats.procRoot)
	if err != nil {
		return nil
	}
	pids := make([]uint32, 0, len(entries))
	for _, name := range entries {
		if pid, ok := parsePID(name); ok {
			pids = append(pids, pid)
		}
	}
	return pids
}

// UpdateSystemSnapshot refreshes the cached SystemSnapshot from /proc.
func (s *Store) UpdateSystemSnapshot() {
	snap := s.stats.refresh()
	s.snapMu.Lock()
	s.snapshot = snap
	s.snapMu.Unlock()
}

// SystemSnapshot returns the most recently refreshed snapshot.
func (s *Store) SystemSnapshot() SystemSnapshot {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	return s.snapshot
}

// SetSystemSnapshot replaces the cached snapshot directly, bypassing the
// /proc refresh. Used by callers (and tests) that source a snapshot from
// somewhere other than this process's own procfs reads.
func (s *Store) SetSystemSnapshot(snap SystemSnapshot) {
	s.snapMu.Lock()
	s.snapshot = snap
	s.snapMu.Unlock()
}

// UpdateProcessStats back-fills cpu_percent/mem_percent for every live
// entry from /proc, used when the kernel probe itself can't supply a
// sample (spec §4.5).
func (s *Store) UpdateProcessStats() {
	s.mu.Lock()
	pids := make([]uint32, 0, len(s.live))
	for pid := range s.live {
		pids = append(pids, pid)
	}
	s.mu.Unlock()

	samples := s.stats.refreshProcesses(pids)

	s.mu.Lock()
	defer s.mu.Unlock()
	for pid, sample := range samples {
		entry, ok := s.live[pid]
		if !ok {
			continue
		}
		entry.event.SetCPUPercent(sample.cpuPercent)
		entry.event.SetMemPercent(sample.memPercent)
		s.live[pid] = entry
	}
}

// GetPodActivityWindow returns fork and short-job counts per pod key over
// the trailing window, scanning cached history only (spec §4.5/§4.6).
func (s *Store) GetPodActivityWindow(window time.Duration) (forkCounts, shortJobCounts map[string]uint64) {
	now := s.now()
	cutoff := uint64(0)
	if w := uint64(window.Nanoseconds()); now > w {
		cutoff = now - w
	}

	forkCounts = make(map[string]uint64)
	shortJobCounts = make(map[string]uint64)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.history {
		if e.capturedAtNs < cutoff {
			continue
		}
		if e.metadata == nil {
			continue
		}
		key := e.metadata.Namespace + "/" + e.metadata.PodName

		if e.event.EventType == telemetry.EventFork {
			forkCounts[key]++
		}
		if e.event.EventType == telemetry.EventExit {
			if exitNs, ok := e.event.ExitTime(); ok {
				lifetime := exitNs - e.event.TsNs
				if lifetime < 1_000_000_000 {
					shortJobCounts[key]++
				}
			}
		}
	}
	return forkCounts, shortJobCounts
}
