package ring

import (
	"context"
	"math/rand"
	"time"

	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// FakeGenerator drives a Producer with synthetic events for hosts without
// BPF capability (dry-run/local development) and for tests that want a
// steady stream without a live kernel. Grounded on the original's
// fake_events.rs generate()/stream(): a rate-limited generator cycling
// through a small set of event kinds with randomized pid/byte counts.
type FakeGenerator struct {
	producer  *Producer
	rate      time.Duration
	maxBytes  uint64
	rng       *rand.Rand
	nextPid   uint32
}

// NewFakeGenerator builds a generator emitting at ratePerSec events/sec
// (matching FAKE_EVENT_RATE), each carrying up to maxBytes in its payload
// fields (matching FAKE_EVENT_MAX_BYTES). A rate of zero falls back to
// one event per second, mirroring the original's clamp.
func NewFakeGenerator(p *Producer, ratePerSec uint64, maxBytes uint64, seed int64) *FakeGenerator {
	period := time.Second
	if ratePerSec > 0 {
		period = time.Duration(float64(time.Second) / float64(ratePerSec))
		if period < time.Millisecond {
			period = time.Millisecond
		}
	}
	return &FakeGenerator{
		producer: p,
		rate:     period,
		maxBytes: maxBytes,
		rng:      rand.New(rand.NewSource(seed)),
		nextPid:  2000,
	}
}

// Run emits synthetic events until ctx is canceled.
func (g *FakeGenerator) Run(ctx context.Context, nowNs func() uint64) {
	ticker := time.NewTicker(g.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.producer.Emit(g.generate(nowNs()))
		}
	}
}

func (g *FakeGenerator) generate(tsNs uint64) telemetry.ProcessEvent {
	pid := g.nextPid
	g.nextPid++

	switch g.rng.Intn(3) {
	case 0:
		return telemetry.ProcessEvent{
			Pid:       pid,
			EventType: telemetry.EventNet,
			TsNs:      tsNs,
			Data:      uint64(g.rng.Int63n(int64(g.maxBytes) + 1)),
		}
	case 1:
		return telemetry.ProcessEvent{
			Pid:       pid,
			EventType: telemetry.EventFileIO,
			TsNs:      tsNs,
			Data:      uint64(g.rng.Int63n(int64(g.maxBytes) + 1)),
		}
	default:
		return telemetry.ProcessEvent{
			Pid:       pid,
			EventType: telemetry.EventSyscall,
			TsNs:      tsNs,
			Aux:       uint32(g.rng.Intn(400)),
		}
	}
}
