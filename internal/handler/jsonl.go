package handler

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/linnix-systems/cognitod/internal/context"
	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// eventLine and snapshotLine are JSON-tagged render views of ProcessEvent/
// SystemSnapshot, matching the teacher's model/types.go convention of
// dedicated json-tagged output structs rather than marshaling internal wire
// types directly (ProcessEvent's fixed-size Comm array doesn't render
// usefully as JSON on its own).
type eventLine struct {
	Pid        uint32  `json:"pid"`
	Ppid       uint32  `json:"ppid"`
	EventType  string  `json:"event_type"`
	Comm       string  `json:"comm"`
	TsNs       uint64  `json:"ts_ns"`
	ExitTimeNs uint64  `json:"exit_time_ns,omitempty"`
	Seq        uint64  `json:"seq"`
	CPUPercent float64 `json:"cpu_percent,omitempty"`
	MemPercent float64 `json:"mem_percent,omitempty"`
	Hostname   string  `json:"hostname,omitempty"`
}

type snapshotLine struct {
	TimestampUnix   int64   `json:"timestamp_unix"`
	CPUPercent      float64 `json:"cpu_percent"`
	MemPercent      float64 `json:"mem_percent"`
	LoadAvg1        float64 `json:"load_avg_1"`
	LoadAvg5        float64 `json:"load_avg_5"`
	LoadAvg15       float64 `json:"load_avg_15"`
	PSICPUSome10    float64 `json:"psi_cpu_some_avg10"`
	PSIMemorySome10 float64 `json:"psi_memory_some_avg10"`
	PSIMemoryFull10 float64 `json:"psi_memory_full_avg10"`
	PSIIOSome10     float64 `json:"psi_io_some_avg10"`
	PSIIOFull10     float64 `json:"psi_io_full_avg10"`
}

// JSONLHandler appends one JSON object per line to an append-only file,
// matching the original's JsonlHandler.
type JSONLHandler struct {
	mu   sync.Mutex
	file *os.File
}

// NewJSONLHandler opens (creating if needed) path for append.
func NewJSONLHandler(path string) (*JSONLHandler, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open jsonl sink %q: %w", path, err)
	}
	return &JSONLHandler{file: f}, nil
}

func (h *JSONLHandler) Name() string { return "jsonl" }

func (h *JSONLHandler) OnEvent(event telemetry.ProcessEvent) {
	cpuPct, _ := event.CPUPercent()
	memPct, _ := event.MemPercent()
	line := eventLine{
		Pid:        event.Pid,
		Ppid:       event.Ppid,
		EventType:  event.EventType.String(),
		Comm:       event.CommString(),
		TsNs:       event.TsNs,
		ExitTimeNs: event.ExitTimeNs,
		Seq:        event.Seq,
		CPUPercent: cpuPct,
		MemPercent: memPct,
		Hostname:   event.Hostname,
	}
	h.writeLine(line)
}

func (h *JSONLHandler) OnSnapshot(snap context.SystemSnapshot) {
	line := snapshotLine{
		TimestampUnix:   snap.TimestampUnix,
		CPUPercent:      snap.CPUPercent,
		MemPercent:      snap.MemPercent,
		LoadAvg1:        snap.LoadAvg1,
		LoadAvg5:        snap.LoadAvg5,
		LoadAvg15:       snap.LoadAvg15,
		PSICPUSome10:    snap.PSICPUSomeAvg10,
		PSIMemorySome10: snap.PSIMemorySomeAvg10,
		PSIMemoryFull10: snap.PSIMemoryFullAvg10,
		PSIIOSome10:     snap.PSIIOSomeAvg10,
		PSIIOFull10:     snap.PSIIOFullAvg10,
	}
	h.writeLine(line)
}

func (h *JSONLHandler) writeLine(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	data = append(data, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	h.file.Write(data)
}

// Close closes the underlying file.
func (h *JSONLHandler) Close() error {
	return h.file.Close()
}
