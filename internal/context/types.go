// Package context implements the context store (C5): a bounded live+history
// process map, top-N CPU/RSS queries, a periodically refreshed system
// snapshot, and the broadcast fan-out every other component subscribes to.
// Grounded directly on the original's context.rs ContextStore, with its
// sysinfo-backed SystemSnapshot refresh reimplemented against /proc using
// the teacher's own collector idiom (internal/collector/{cpu,memory,disk,
// network}.go) instead of a crate dependency.
package context

// SystemSnapshot is a periodically refreshed point-in-time view of host
// resource usage (spec §3). Replaced atomically under a short critical
// section; never partially updated.
type SystemSnapshot struct {
	TimestampUnix  int64
	CPUPercent     float64
	MemPercent     float64
	LoadAvg1       float64
	LoadAvg5       float64
	LoadAvg15      float64
	DiskReadBytes  uint64
	DiskWriteBytes uint64
	NetRxBytes     uint64
	NetTxBytes     uint64

	PSICPUSomeAvg10    float64
	PSIMemorySomeAvg10 float64
	PSIMemoryFullAvg10 float64
	PSIIOSomeAvg10     float64
	PSIIOFullAvg10     float64
}

// ProcessMemorySummary is a ranked top-N entry; the field is reused for
// both CPU% and mem% rankings, matching the original's single struct for
// both top_cpu_processes and top_rss_processes.
type ProcessMemorySummary struct {
	Pid     uint32
	Comm    string
	Percent float64
}
