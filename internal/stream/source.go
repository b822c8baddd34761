package stream

import (
	"time"

	"github.com/linnix-systems/cognitod/internal/ring"
	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// RingSource adapts a *ring.Ring to the Source interface, supplying the
// wall-clock reader PollBatch needs to judge reaper timeouts.
type RingSource struct {
	r *ring.Ring
}

// NewRingSource wraps r.
func NewRingSource(r *ring.Ring) *RingSource { return &RingSource{r: r} }

// PollBatch delegates to the ring, using the real wall clock.
func (s *RingSource) PollBatch(max int) []telemetry.ProcessEvent {
	return s.r.PollBatch(max, func() uint64 { return uint64(time.Now().UnixNano()) })
}

// Counters exposes the ring's own protocol-anomaly counters so callers
// can fold ordering violations and reaper skips into the pipeline's
// metrics.Metrics (spec §7 "Protocol anomalies: counted").
func (s *RingSource) Counters() ring.Counters { return s.r.Counters() }
