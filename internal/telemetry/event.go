// Package telemetry defines the wire-format types shared between the BPF
// probe layer and userspace: ProcessEvent, the sequenced ring slot, and the
// TelemetryConfig produced by offset discovery. Layouts here mirror the
// kernel-side struct byte-for-byte; nothing here may reorder or resize a
// field without breaking the producer/consumer contract.
package telemetry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
)

// EventType classifies a ProcessEvent. Values match the kernel-side enum
// exactly; do not renumber.
type EventType uint32

const (
	EventExec EventType = iota
	EventFork
	EventExit
	EventNet
	EventFileIO
	EventSyscall
	EventBlockIO
	EventPageFault
)

func (t EventType) String() string {
	switch t {
	case EventExec:
		return "Exec"
	case EventFork:
		return "Fork"
	case EventExit:
		return "Exit"
	case EventNet:
		return "Net"
	case EventFileIO:
		return "FileIo"
	case EventSyscall:
		return "Syscall"
	case EventBlockIO:
		return "BlockIo"
	case EventPageFault:
		return "PageFault"
	default:
		return "Unknown"
	}
}

// PercentMilliUnknown is the sentinel for "no CPU/RSS sample available".
const PercentMilliUnknown uint16 = 0xFFFF

// percentMilliCap is the maximum representable sampled value (spec §4.1):
// computations saturate to this rather than overflow into the unknown sentinel.
const percentMilliCap uint16 = 0xFFFE

// CommLen is the fixed width of the NUL-padded command name field.
const CommLen = 16

// ProcessEventWire is the 96-byte, 8-byte-aligned record produced by kernel
// probes and consumed in userspace without conversion (spec §3). Field order
// and widths must not change.
type ProcessEventWire struct {
	Pid         uint32
	Ppid        uint32
	Uid         uint32
	Gid         uint32
	EventType   uint32
	_           uint32 // padding to keep ts_ns 8-byte aligned
	TsNs        uint64
	Seq         uint64
	ExitTimeNs  uint64
	Comm        [CommLen]byte
	CPUPctMilli uint16
	MemPctMilli uint16
	_           uint32 // padding
	Data        uint64
	Data2       uint64
	Aux         uint32
	Aux2        uint32
}

// WireSize is the fixed on-wire size of ProcessEventWire in bytes.
const WireSize = 96

// ProcessEvent is the userspace-friendly view of a ProcessEventWire, with a
// decoded comm string and helpers for the exit-time/percent accessors used
// throughout the context store and blame engine.
type ProcessEvent struct {
	Pid, Ppid, Uid, Gid uint32
	EventType           EventType
	TsNs                uint64
	Seq                 uint64
	ExitTimeNs          uint64
	Comm                [CommLen]byte
	CPUPctMilli         uint16
	MemPctMilli         uint16
	Data, Data2         uint64
	Aux, Aux2           uint32
	Hostname            string
}

// NewProcessEvent decodes a wire record into a ProcessEvent.
func NewProcessEvent(w ProcessEventWire) ProcessEvent {
	return ProcessEvent{
		Pid:         w.Pid,
		Ppid:        w.Ppid,
		Uid:         w.Uid,
		Gid:         w.Gid,
		EventType:   EventType(w.EventType),
		TsNs:        w.TsNs,
		Seq:         w.Seq,
		ExitTimeNs:  w.ExitTimeNs,
		Comm:        w.Comm,
		CPUPctMilli: w.CPUPctMilli,
		MemPctMilli: w.MemPctMilli,
		Data:        w.Data,
		Data2:       w.Data2,
		Aux:         w.Aux,
		Aux2:        w.Aux2,
	}
}

// Wire re-encodes the event back to its wire form, used by ring tests to
// verify round-tripping (spec §8 "Round-trip" law).
func (e ProcessEvent) Wire() ProcessEventWire {
	return ProcessEventWire{
		Pid:         e.Pid,
		Ppid:        e.Ppid,
		Uid:         e.Uid,
		Gid:         e.Gid,
		EventType:   uint32(e.EventType),
		TsNs:        e.TsNs,
		Seq:         e.Seq,
		ExitTimeNs:  e.ExitTimeNs,
		Comm:        e.Comm,
		CPUPctMilli: e.CPUPctMilli,
		MemPctMilli: e.MemPctMilli,
		Data:        e.Data,
		Data2:       e.Data2,
		Aux:         e.Aux,
		Aux2:        e.Aux2,
	}
}

// WithHostname attaches a cached hostname, matching the original's
// once-per-process hostname cache (spec §4.7: alerts carry the host
// identifier, cached once per process).
func (e ProcessEvent) WithHostname(h string) ProcessEvent {
	e.Hostname = h
	return e
}

// CommString returns the NUL-trimmed command name, or "unknown" if empty.
func (e ProcessEvent) CommString() string {
	n := bytes.IndexByte(e.Comm[:], 0)
	if n < 0 {
		n = len(e.Comm)
	}
	s := string(bytes.TrimSpace(e.Comm[:n]))
	if s == "" {
		return "unknown"
	}
	return s
}

// CPUPercent returns the sampled CPU percent, or (0, false) if unknown.
func (e ProcessEvent) CPUPercent() (float64, bool) {
	if e.CPUPctMilli == PercentMilliUnknown {
		return 0, false
	}
	return float64(e.CPUPctMilli) / 1000.0, true
}

// MemPercent returns the sampled memory percent, or (0, false) if unknown.
func (e ProcessEvent) MemPercent() (float64, bool) {
	if e.MemPctMilli == PercentMilliUnknown {
		return 0, false
	}
	return float64(e.MemPctMilli) / 1000.0, true
}

// SetCPUPercent stores a back-filled CPU percent sample (thousandths of a percent).
func (e *ProcessEvent) SetCPUPercent(pct float64) {
	e.CPUPctMilli = clampPercentMilli(pct)
}

// SetMemPercent stores a back-filled memory percent sample.
func (e *ProcessEvent) SetMemPercent(pct float64) {
	e.MemPctMilli = clampPercentMilli(pct)
}

func clampPercentMilli(pct float64) uint16 {
	v := pct * 1000.0
	if v < 0 {
		return 0
	}
	if v > float64(percentMilliCap) {
		return percentMilliCap
	}
	return uint16(v)
}

// ExitTime returns the exit timestamp, if this entry has one.
func (e ProcessEvent) ExitTime() (uint64, bool) {
	if e.EventType != EventExit || e.ExitTimeNs == 0 {
		return 0, false
	}
	return e.ExitTimeNs, true
}

// RatioMilli computes a CPU% sample given a runtime delta (ns) and a wall
// delta (ns), per spec §4.1: cpu_pct_milli = min(floor(Δruntime*100000/Δtime), 0xFFFE).
// Returns PercentMilliUnknown if wallDeltaNs is zero.
func RatioMilli(runtimeDeltaNs, wallDeltaNs uint64) uint16 {
	if wallDeltaNs == 0 {
		return PercentMilliUnknown
	}
	v := (runtimeDeltaNs * 100000) / wallDeltaNs
	if v > uint64(percentMilliCap) {
		return percentMilliCap
	}
	return uint16(v)
}

// BytesRatioMilli computes a mem% sample from a byte count and total memory,
// per spec §4.1: mem_pct_milli = min(floor(bytes*100000/total), 0xFFFE).
func BytesRatioMilli(bytesUsed, total uint64) uint16 {
	if total == 0 {
		return PercentMilliUnknown
	}
	v := (bytesUsed * 100000) / total
	if v > uint64(percentMilliCap) {
		return percentMilliCap
	}
	return uint16(v)
}

var (
	hostnameOnce  sync.Once
	cachedHostOK  string
)

// CachedHostname returns the process-wide cached hostname, resolving it once
// on first call (spec §4.7 host identifier caching).
func CachedHostname(lookup func() (string, error)) string {
	hostnameOnce.Do(func() {
		if h, err := lookup(); err == nil {
			cachedHostOK = h
		}
	})
	return cachedHostOK
}

// DecodeProcessEventWire reads a ProcessEventWire out of a WireSize byte
// slice, matching the exact field layout kernel probes emit. Used by the
// sequenced ring's slot reader; no perf-array reader exists in this tree.
func DecodeProcessEventWire(b []byte) ProcessEventWire {
	le := binary.LittleEndian
	var w ProcessEventWire
	w.Pid = le.Uint32(b[0:4])
	w.Ppid = le.Uint32(b[4:8])
	w.Uid = le.Uint32(b[8:12])
	w.Gid = le.Uint32(b[12:16])
	w.EventType = le.Uint32(b[16:20])
	w.TsNs = le.Uint64(b[24:32])
	w.Seq = le.Uint64(b[32:40])
	w.ExitTimeNs = le.Uint64(b[40:48])
	copy(w.Comm[:], b[48:64])
	w.CPUPctMilli = le.Uint16(b[64:66])
	w.MemPctMilli = le.Uint16(b[66:68])
	w.Data = le.Uint64(b[72:80])
	w.Data2 = le.Uint64(b[80:88])
	w.Aux = le.Uint32(b[88:92])
	w.Aux2 = le.Uint32(b[92:96])
	return w
}

// EncodeProcessEventWire writes w into b, which must be at least WireSize
// bytes long.
func EncodeProcessEventWire(b []byte, w ProcessEventWire) {
	le := binary.LittleEndian
	le.PutUint32(b[0:4], w.Pid)
	le.PutUint32(b[4:8], w.Ppid)
	le.PutUint32(b[8:12], w.Uid)
	le.PutUint32(b[12:16], w.Gid)
	le.PutUint32(b[16:20], w.EventType)
	le.PutUint64(b[24:32], w.TsNs)
	le.PutUint64(b[32:40], w.Seq)
	le.PutUint64(b[40:48], w.ExitTimeNs)
	copy(b[48:64], w.Comm[:])
	le.PutUint16(b[64:66], w.CPUPctMilli)
	le.PutUint16(b[66:68], w.MemPctMilli)
	le.PutUint64(b[72:80], w.Data)
	le.PutUint64(b[80:88], w.Data2)
	le.PutUint32(b[88:92], w.Aux)
	le.PutUint32(b[92:96], w.Aux2)
}

// ValidateWireLayout reports an error unless actual equals WireSize. Nothing
// in this tree calls it; main does not run it at startup.
func ValidateWireLayout(actual int) error {
	if actual != WireSize {
		return fmt.Errorf("telemetry: unexpected ProcessEventWire size %d, want %d", actual, WireSize)
	}
	return nil
}
