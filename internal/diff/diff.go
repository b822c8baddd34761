// Package diff compares two system snapshots and highlights regressions and
// improvements across CPU, memory, and PSI pressure metrics.
package diff

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/linnix-systems/cognitod/internal/context"
)

// DiffReport contains the comparison between two snapshots.
type DiffReport struct {
	Baseline     int64          `json:"baseline_unix"`
	Current      int64          `json:"current_unix"`
	Changes      []MetricChange `json:"changes"`
	Regressions  int            `json:"regressions"`
	Improvements int            `json:"improvements"`
}

// MetricChange represents a single metric difference between two snapshots.
type MetricChange struct {
	Metric       string  `json:"metric"`
	OldValue     float64 `json:"old_value"`
	NewValue     float64 `json:"new_value"`
	Delta        float64 `json:"delta"`
	DeltaPct     float64 `json:"delta_pct"`
	Direction    string  `json:"direction"`    // "regression", "improvement", "unchanged"
	Significance string  `json:"significance"` // "high", "medium", "low"
}

// snapshotLine mirrors internal/handler's JSONLHandler render shape: JSONL
// snapshot sinks are written with snake_case tags, not context.SystemSnapshot's
// bare Go field names.
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

// LoadSnapshot reads the last snapshot line (a line carrying
// "timestamp_unix"; event lines are skipped) from a JSONL file written by
// internal/handler's JSONLHandler and decodes it into a context.SystemSnapshot.
func LoadSnapshot(path string) (context.SystemSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return context.SystemSnapshot{}, fmt.Errorf("read %s: %w", path, err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], `"timestamp_unix"`) {
			last = lines[i]
			break
		}
	}
	if last == "" {
		return context.SystemSnapshot{}, fmt.Errorf("%s: no snapshot lines found", path)
	}

	var line snapshotLine
	if err := json.Unmarshal([]byte(last), &line); err != nil {
		return context.SystemSnapshot{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return context.SystemSnapshot{
		TimestampUnix:      line.TimestampUnix,
		CPUPercent:         line.CPUPercent,
		MemPercent:         line.MemPercent,
		LoadAvg1:           line.LoadAvg1,
		LoadAvg5:           line.LoadAvg5,
		LoadAvg15:          line.LoadAvg15,
		PSICPUSomeAvg10:    line.PSICPUSome10,
		PSIMemorySomeAvg10: line.PSIMemorySome10,
		PSIMemoryFullAvg10: line.PSIMemoryFull10,
		PSIIOSomeAvg10:     line.PSIIOSome10,
		PSIIOFullAvg10:     line.PSIIOFull10,
	}, nil
}

// Compare computes the differences between two snapshots. Every metric is
// treated as higher-is-worse, since CPU/memory/load/PSI pressure all
// represent increasing resource stress.
func Compare(baseline, current context.SystemSnapshot) *DiffReport {
	diff := &DiffReport{
		Baseline: baseline.TimestampUnix,
		Current:  current.TimestampUnix,
	}

	addChange(diff, "cpu_percent", baseline.CPUPercent, current.CPUPercent)
	addChange(diff, "mem_percent", baseline.MemPercent, current.MemPercent)
	addChange(diff, "load_avg_1", baseline.LoadAvg1, current.LoadAvg1)
	addChange(diff, "load_avg_5", baseline.LoadAvg5, current.LoadAvg5)
	addChange(diff, "load_avg_15", baseline.LoadAvg15, current.LoadAvg15)
	addChange(diff, "psi_cpu_some_avg10", baseline.PSICPUSomeAvg10, current.PSICPUSomeAvg10)
	addChange(diff, "psi_memory_some_avg10", baseline.PSIMemorySomeAvg10, current.PSIMemorySomeAvg10)
	addChange(diff, "psi_memory_full_avg10", baseline.PSIMemoryFullAvg10, current.PSIMemoryFullAvg10)
	addChange(diff, "psi_io_some_avg10", baseline.PSIIOSomeAvg10, current.PSIIOSomeAvg10)
	addChange(diff, "psi_io_full_avg10", baseline.PSIIOFullAvg10, current.PSIIOFullAvg10)

	for _, c := range diff.Changes {
		switch c.Direction {
		case "regression":
			diff.Regressions++
		case "improvement":
			diff.Improvements++
		}
	}

	return diff
}

func addChange(diff *DiffReport, metric string, oldVal, newVal float64) {
	delta := newVal - oldVal
	deltaPct := 0.0
	if oldVal != 0 {
		deltaPct = (delta / math.Abs(oldVal)) * 100
	}

	// Skip negligible changes.
	if math.Abs(deltaPct) < 1.0 && math.Abs(delta) < 0.1 {
		return
	}

	direction := "unchanged"
	switch {
	case deltaPct > 5:
		direction = "regression"
	case deltaPct < -5:
		direction = "improvement"
	}

	significance := "low"
	absPct := math.Abs(deltaPct)
	switch {
	case absPct >= 50:
		significance = "high"
	case absPct >= 20:
		significance = "medium"
	}

	diff.Changes = append(diff.Changes, MetricChange{
		Metric:       metric,
		OldValue:     oldVal,
		NewValue:     newVal,
		Delta:        delta,
		DeltaPct:     deltaPct,
		Direction:    direction,
		Significance: significance,
	})
}

// FormatDiff returns a human-readable diff summary.
func FormatDiff(d *DiffReport) string {
	var sb strings.Builder

	sb.WriteString("=== Snapshot Diff ===\n")
	sb.WriteString(fmt.Sprintf("Baseline: %d\n", d.Baseline))
	sb.WriteString(fmt.Sprintf("Current:  %d\n\n", d.Current))
	sb.WriteString(fmt.Sprintf("Regressions: %d, Improvements: %d\n\n", d.Regressions, d.Improvements))

	if d.Regressions > 0 {
		sb.WriteString("Regressions:\n")
		for _, c := range d.Changes {
			if c.Direction == "regression" {
				sb.WriteString(fmt.Sprintf("  [%s] %s: %.2f -> %.2f (%+.1f%%)\n",
					strings.ToUpper(c.Significance), c.Metric, c.OldValue, c.NewValue, c.DeltaPct))
			}
		}
		sb.WriteString("\n")
	}

	if d.Improvements > 0 {
		sb.WriteString("Improvements:\n")
		for _, c := range d.Changes {
			if c.Direction == "improvement" {
				sb.WriteString(fmt.Sprintf("  [%s] %s: %.2f -> %.2f (%+.1f%%)\n",
					strings.ToUpper(c.Significance), c.Metric, c.OldValue, c.NewValue, c.DeltaPct))
			}
		}
	}

	return sb.String()
}
