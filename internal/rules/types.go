// Package rules evaluates declarative threshold rules over C5's system
// snapshots and emits cooldown-gated, noise-budgeted Alerts onto a broadcast
// channel (spec §4.7). It generalizes the teacher's one-shot
// internal/model.Threshold/DetectAnomalies scoring (evaluated once against a
// single Report) into a live evaluator ticked repeatedly against a streaming
// context.Store.
package rules

import "github.com/linnix-systems/cognitod/internal/context"

// Severity levels an Alert may carry (spec §3 DATA MODEL).
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert is a single rule firing, matching spec §3's Alert record.
type Alert struct {
	ID            string
	Severity      string
	Rule          string
	Message       string
	Host          string
	TimestampUnix int64
}

// Rule is a named threshold check over a SystemSnapshot, mirroring the
// teacher's Threshold (Metric/Evaluator/Message), generalized with a cooldown
// and a severity ladder instead of a one-shot warning/critical pair.
type Rule struct {
	Name     string
	Cooldown int64 // seconds; an alert for this rule cannot re-fire sooner

	// Evaluate inspects the snapshot (and, for rate/duration rules, the
	// store) and reports the metric value plus whether it fired.
	Evaluate func(snap context.SystemSnapshot, store *context.Store) (value float64, firing bool)

	// Severity maps an evaluated value to a severity, or "" if it should
	// not fire at that value (sub-Medium threshold).
	Severity func(value float64) string

	// Message renders the human-readable alert body for a fired value.
	Message func(value float64) string
}
