package rules

import (
	"fmt"
	"runtime"

	"github.com/linnix-systems/cognitod/internal/context"
)

// severityLadder turns a (warning, high, critical) threshold triple into a
// Severity func, matching the teacher's warning/critical banding in
// anomaly.go's DetectAnomalies, extended with a "high" rung to use the full
// severity enum spec §3 defines.
func severityLadder(warning, high, critical float64) func(float64) string {
	return func(v float64) string {
		switch {
		case v >= critical:
			return SeverityCritical
		case v >= high:
			return SeverityHigh
		case v >= warning:
			return SeverityMedium
		default:
			return ""
		}
	}
}

// DefaultRules returns the built-in rule set: CPU/memory utilization and PSI
// pressure thresholds over C5's SystemSnapshot, each cooldown-gated at 300s.
// Grounded on the teacher's DefaultThresholds() (cpu_utilization,
// memory_utilization, cpu_psi_pressure, io_psi_pressure), reworked from a
// single-report scan into per-tick snapshot evaluators.
func DefaultRules() []Rule {
	const defaultCooldownSeconds = 300

	return []Rule{
		{
			Name:     "cpu_utilization",
			Cooldown: defaultCooldownSeconds,
			Evaluate: func(snap context.SystemSnapshot, _ *context.Store) (float64, bool) {
				return snap.CPUPercent, true
			},
			Severity: severityLadder(70, 85, 95),
			Message: func(v float64) string {
				return fmt.Sprintf("CPU utilization at %.1f%%", v)
			},
		},
		{
			Name:     "memory_utilization",
			Cooldown: defaultCooldownSeconds,
			Evaluate: func(snap context.SystemSnapshot, _ *context.Store) (float64, bool) {
				return snap.MemPercent, true
			},
			Severity: severityLadder(75, 85, 95),
			Message: func(v float64) string {
				return fmt.Sprintf("Memory utilization at %.1f%%", v)
			},
		},
		{
			Name:     "load_average_per_cpu",
			Cooldown: defaultCooldownSeconds,
			Evaluate: func(snap context.SystemSnapshot, _ *context.Store) (float64, bool) {
				return snap.LoadAvg1 / float64(runtime.NumCPU()), true
			},
			Severity: severityLadder(1.0, 2.0, 4.0),
			Message: func(v float64) string {
				return fmt.Sprintf("1-minute load average per CPU: %.2f", v)
			},
		},
		{
			Name:     "cpu_psi_pressure",
			Cooldown: defaultCooldownSeconds,
			Evaluate: func(snap context.SystemSnapshot, _ *context.Store) (float64, bool) {
				return snap.PSICPUSomeAvg10, true
			},
			Severity: severityLadder(5, 15, 25),
			Message: func(v float64) string {
				return fmt.Sprintf("CPU PSI pressure: %.1f%% (some tasks stalling on CPU)", v)
			},
		},
		{
			Name:     "memory_psi_pressure",
			Cooldown: defaultCooldownSeconds,
			Evaluate: func(snap context.SystemSnapshot, _ *context.Store) (float64, bool) {
				return snap.PSIMemorySomeAvg10, true
			},
			Severity: severityLadder(5, 15, 25),
			Message: func(v float64) string {
				return fmt.Sprintf("Memory PSI pressure: %.1f%% (some tasks stalling)", v)
			},
		},
		{
			Name:     "io_psi_pressure",
			Cooldown: defaultCooldownSeconds,
			Evaluate: func(snap context.SystemSnapshot, _ *context.Store) (float64, bool) {
				return snap.PSIIOSomeAvg10, true
			},
			Severity: severityLadder(10, 25, 50),
			Message: func(v float64) string {
				return fmt.Sprintf("I/O PSI pressure: %.1f%% (tasks stalling on I/O)", v)
			},
		},
	}
}
