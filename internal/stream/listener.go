// Package stream implements the stream listener (C4): it continuously
// drains the sequenced ring (through RingSource; no legacy perf-array
// Source exists in this package) into userspace, applies the rate-cap drop policy,
// reconstructs parent lineage for events missing a ppid, and fans each
// surviving event out to the handler chain and the context store.
// Grounded on the original's runtime/stream_listener.rs, whose
// start_perf_listener loop (lineage lookup, metrics, handler dispatch,
// context insertion) this package's Listener.Run follows closely,
// adapted from per-CPU goroutines-per-buffer to a single poll loop over
// an abstract Source.
package stream

import (
	"context"
	"log"
	"time"

	"github.com/linnix-systems/cognitod/internal/metrics"
	"github.com/linnix-systems/cognitod/internal/ring"
	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// Source is the listener's view of an event transport: it hands the
// listener a batch of decoded events. RingSource, over the sequenced ring,
// is the only implementation; there is no legacy perf-array reader.
type Source interface {
	PollBatch(max int) []telemetry.ProcessEvent
}

// CounterSource is an optional capability: a Source that also exposes the
// ring's own protocol-anomaly counters (spec §7 "protocol anomalies:
// counted"). RingSource implements it; a Source with no equivalent
// counters simply doesn't, and the listener skips the reporting step.
type CounterSource interface {
	Counters() ring.Counters
}

// ContextSink receives every event that survives rate-capping, matching
// C5's add() contract (spec §4.5).
type ContextSink interface {
	Add(event telemetry.ProcessEvent)
}

// Handlers is the uniform handler-chain capability (spec §9): every
// surviving event is offered to it before insertion into the context
// store.
type Handlers interface {
	OnEvent(ctx context.Context, event telemetry.ProcessEvent)
}

// Listener drains a Source in a loop, applying rate-cap, lineage
// reconstruction, and fan-out.
type Listener struct {
	source   Source
	metrics  *metrics.Metrics
	lineage  *LineageCache
	handlers Handlers
	sink     ContextSink
	rateCap  uint64
	hostname string

	batchSize   int
	idleBackoff time.Duration

	counterSource CounterSource
	lastCounters  ring.Counters
}

// Option configures a Listener.
type Option func(*Listener)

// WithBatchSize overrides the default poll batch size.
func WithBatchSize(n int) Option {
	return func(l *Listener) { l.batchSize = n }
}

// WithIdleBackoff overrides the sleep applied after an empty poll.
func WithIdleBackoff(d time.Duration) Option {
	return func(l *Listener) { l.idleBackoff = d }
}

// NewListener builds a Listener over source, feeding surviving events to
// handlers then sink.
func NewListener(source Source, m *metrics.Metrics, lineage *LineageCache, handlers Handlers, sink ContextSink, rateCap uint64, hostname string, opts ...Option) *Listener {
	l := &Listener{
		source:      source,
		metrics:     m,
		lineage:     lineage,
		handlers:    handlers,
		sink:        sink,
		rateCap:     rateCap,
		hostname:    hostname,
		batchSize:   64,
		idleBackoff: time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.counterSource, _ = source.(CounterSource)
	return l
}

// Run drains the source until ctx is canceled.
func (l *Listener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch := l.source.PollBatch(l.batchSize)
		l.reportRingCounters()
		if len(batch) == 0 {
			time.Sleep(l.idleBackoff)
			continue
		}

		for _, event := range batch {
			l.process(ctx, event)
		}
	}
}

// reportRingCounters folds the ring's cumulative ordering-violation and
// reaper-skip counts into the pipeline's own metrics as a delta against
// the last-seen snapshot. A no-op when source isn't a CounterSource.
func (l *Listener) reportRingCounters() {
	if l.counterSource == nil {
		return
	}
	current := l.counterSource.Counters()
	l.metrics.AddOrderingViolations(current.OrderingViolations - l.lastCounters.OrderingViolations)
	l.metrics.AddReaperSkips(current.EventsReaped - l.lastCounters.EventsReaped)
	l.lastCounters = current
}

func (l *Listener) process(ctx context.Context, event telemetry.ProcessEvent) {
	nowSec := time.Now().Unix()
	if !l.metrics.RecordEvent(nowSec, l.rateCap, event.EventType) {
		return
	}

	event = event.WithHostname(l.hostname)

	switch {
	case event.EventType == telemetry.EventFork:
		l.lineage.RecordFork(event.Pid, event.Ppid)
	case event.Ppid == 0:
		if ppid, ok := l.lineage.Lookup(event.Pid); ok {
			event.Ppid = ppid
			l.metrics.IncLineageHit()
		} else {
			l.metrics.IncLineageMiss()
		}
	}

	l.lineage.RecordActivity(event.CommString(), event.TsNs)

	log.Printf("[stream] type=%s pid=%d ppid=%d uid=%d gid=%d comm=%s",
		event.EventType, event.Pid, event.Ppid, event.Uid, event.Gid, event.CommString())

	if l.handlers != nil {
		l.handlers.OnEvent(ctx, event)
	}
	l.sink.Add(event)
}
