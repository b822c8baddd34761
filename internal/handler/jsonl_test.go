package handler

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/linnix-systems/cognitod/internal/context"
	"github.com/linnix-systems/cognitod/internal/telemetry"
)

func TestJSONLHandlerWritesOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	h, err := NewJSONLHandler(path)
	if err != nil {
		t.Fatalf("NewJSONLHandler: %v", err)
	}

	event := telemetry.ProcessEvent{Pid: 123, Ppid: 1, EventType: telemetry.EventExec, TsNs: 42}
	event.SetCPUPercent(12.5)
	h.OnEvent(event)
	h.OnSnapshot(context.SystemSnapshot{CPUPercent: 55, LoadAvg1: 2})

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var got eventLine
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("unmarshal event line: %v", err)
	}
	if got.Pid != 123 || got.EventType != "exec" {
		t.Errorf("event line = %+v, want pid=123 event_type=exec", got)
	}

	var gotSnap snapshotLine
	if err := json.Unmarshal([]byte(lines[1]), &gotSnap); err != nil {
		t.Fatalf("unmarshal snapshot line: %v", err)
	}
	if gotSnap.CPUPercent != 55 || gotSnap.LoadAvg1 != 2 {
		t.Errorf("snapshot line = %+v, want cpu=55 load1=2", gotSnap)
	}
}

func TestJSONLHandlerAppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")

	h1, err := NewJSONLHandler(path)
	if err != nil {
		t.Fatalf("NewJSONLHandler: %v", err)
	}
	h1.OnEvent(telemetry.ProcessEvent{Pid: 1, EventType: telemetry.EventFork})
	h1.Close()

	h2, err := NewJSONLHandler(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	h2.OnEvent(telemetry.ProcessEvent{Pid: 2, EventType: telemetry.EventExit})
	h2.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := 0
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 appended lines, got %d", lines)
	}
}
