package rules

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/linnix-systems/cognitod/internal/broadcast"
	"github.com/linnix-systems/cognitod/internal/context"
	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// alertBroadcastCapacity bounds the alert subscription channel, matching
// internal/context's broadcastCapacity reference bound (spec §5).
const alertBroadcastCapacity = 1024

// recentAlertsCapacity bounds the in-memory alert history exposed to
// queries (e.g. the MCP get_alerts tool), matching context.Store's own
// bounded GetRecent() history idiom.
const recentAlertsCapacity = 256

// Engine evaluates a fixed rule set against C5 snapshots on every Tick,
// gates re-firing per rule by cooldown, and bounds the emitted stream's
// cardinality by a configurable alerts/hour noise budget (spec §4.7).
type Engine struct {
	mu        sync.Mutex
	rules     []Rule
	lastFired map[string]time.Time
	emitted   []time.Time // rolling window of emission timestamps, for the noise budget
	recent    []Alert     // bounded history, newest last

	noiseBudgetPerHour int
	seq                uint64
	host               string

	bus *broadcast.Channel[Alert]
}

// NewEngine builds an Engine over rules, bounding emission to
// noiseBudgetPerHour alerts per rolling hour.
func NewEngine(rules []Rule, noiseBudgetPerHour int) *Engine {
	return &Engine{
		rules:              rules,
		lastFired:          make(map[string]time.Time),
		noiseBudgetPerHour: noiseBudgetPerHour,
		host:               telemetry.CachedHostname(os.Hostname),
		bus:                broadcast.New[Alert](alertBroadcastCapacity),
	}
}

// Broadcaster returns a fresh subscription onto the alert stream.
func (e *Engine) Broadcaster() *broadcast.Subscriber[Alert] {
	return e.bus.Subscribe()
}

// Tick evaluates every rule against snap (and store, for rules that need
// trailing activity data), returning and broadcasting whatever fired.
func (e *Engine) Tick(now time.Time, snap context.SystemSnapshot, store *context.Store) []Alert {
	e.mu.Lock()
	var fired []Alert
	for _, rule := range e.rules {
		value, ok := rule.Evaluate(snap, store)
		if !ok {
			continue
		}
		severity := rule.Severity(value)
		if severity == "" {
			continue
		}
		if last, seen := e.lastFired[rule.Name]; seen && now.Sub(last) < time.Duration(rule.Cooldown)*time.Second {
			continue
		}
		if !e.admitNoiseBudgetLocked(now) {
			continue
		}
		e.lastFired[rule.Name] = now
		e.seq++

		fired = append(fired, Alert{
			ID:            fmt.Sprintf("alert-%d", e.seq),
			Severity:      severity,
			Rule:          rule.Name,
			Message:       rule.Message(value),
			Host:          e.host,
			TimestampUnix: now.Unix(),
		})
	}
	e.recent = append(e.recent, fired...)
	if len(e.recent) > recentAlertsCapacity {
		e.recent = e.recent[len(e.recent)-recentAlertsCapacity:]
	}
	e.mu.Unlock()

	for _, alert := range fired {
		e.bus.Send(alert)
	}
	return fired
}

// RecentAlerts returns up to limit of the most recently fired alerts,
// newest first. A non-positive limit returns the full bounded history.
func (e *Engine) RecentAlerts(limit int) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Alert, n)
	for i := 0; i < n; i++ {
		out[i] = e.recent[len(e.recent)-1-i]
	}
	return out
}

// admitNoiseBudgetLocked evicts emission timestamps older than one hour from
// now, then admits the new emission if the rolling-hour budget isn't
// exhausted. Must be called with e.mu held.
func (e *Engine) admitNoiseBudgetLocked(now time.Time) bool {
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(e.emitted) && e.emitted[i].Before(cutoff) {
		i++
	}
	e.emitted = e.emitted[i:]

	if e.noiseBudgetPerHour > 0 && len(e.emitted) >= e.noiseBudgetPerHour {
		return false
	}
	e.emitted = append(e.emitted, now)
	return true
}
