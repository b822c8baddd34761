package stream

import "sync"

// lineageCapacityDefault bounds the pid→ppid reconstruction map; oldest
// entries are evicted first once full (spec §4.4 "small LRU-ish map",
// bounded per §5's memory framing).
const lineageCapacityDefault = 65536

// activityWindowDefault bounds how many distinct comm names the recent-
// activity tracker remembers (supplemented feature: folds the original's
// warmth keeper into this cache rather than a separate subsystem).
const activityWindowDefault = 4096

// LineageCache reconstructs parent lineage from Fork events and tracks
// recent per-comm activity, each in its own fixed-capacity FIFO-evicted
// map. Grounded on the LineageCache type referenced (but not defined) in
// the original's runtime/stream_listener.rs.
type LineageCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[uint32]uint32
	order    []uint32

	activityCapacity int
	activity         map[string]int64
	activityOrder    []string
}

// NewLineageCache constructs a cache with the reference capacities.
func NewLineageCache() *LineageCache {
	return &LineageCache{
		capacity:         lineageCapacityDefault,
		entries:          make(map[uint32]uint32),
		activityCapacity: activityWindowDefault,
		activity:         make(map[string]int64),
	}
}

// RecordFork remembers pid's parent, evicting the oldest entry if the
// cache is at capacity.
func (c *LineageCache) RecordFork(pid, ppid uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[pid]; !exists {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, pid)
	}
	c.entries[pid] = ppid
}

// Lookup recovers a pid's parent, if known.
func (c *LineageCache) Lookup(pid uint32) (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ppid, ok := c.entries[pid]
	return ppid, ok
}

// Len reports the number of pids currently tracked.
func (c *LineageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RecordActivity notes that comm produced an event at tsNs, folding the
// original's separate warmth-keeper subsystem into this cache's existing
// bookkeeping (no consumer in scope needs it as a distinct signal).
func (c *LineageCache) RecordActivity(comm string, tsNs uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.activity[comm]; !exists {
		if len(c.activityOrder) >= c.activityCapacity {
			oldest := c.activityOrder[0]
			c.activityOrder = c.activityOrder[1:]
			delete(c.activity, oldest)
		}
		c.activityOrder = append(c.activityOrder, comm)
	}
	c.activity[comm] = int64(tsNs)
}

// LastActivity returns the timestamp of comm's most recently recorded
// event, if any.
func (c *LineageCache) LastActivity(comm string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.activity[comm]
	return ts, ok
}
