package ring

import (
	"sync/atomic"

	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// ticketCounter is the producer-side `global_counter` (spec §4.2): tickets
// are reserved with atomic_fetch_add and never reused.
type ticketCounter struct {
	v uint64
}

func (c *ticketCounter) next() uint64 { return atomic.AddUint64(&c.v, 1) - 1 }

// Producer writes events into a Ring following the exact WRITING→READY
// protocol a kernel probe would: reserve a ticket, stamp flags/ticket_id
// /reserved_at_ns, copy the payload, then flip to READY. Used by the fake
// event generator (no kernel capability hosts) and by ring tests to
// exercise ordering, gap, and reaper-timeout behavior deterministically.
type Producer struct {
	r       *Ring
	tickets ticketCounter
	nowNs   func() uint64
}

// NewProducer binds a fresh ticket counter to r. Each Producer owns its
// counter and there is no option to share one, so tickets are only unique
// when a single Producer writes to a Ring.
func NewProducer(r *Ring, nowNs func() uint64) *Producer {
	return &Producer{r: r, nowNs: nowNs}
}

// Emit reserves the next ticket and writes event through to READY,
// completing in one call. Returns the ticket assigned.
func (p *Producer) Emit(event telemetry.ProcessEvent) uint64 {
	ticket := p.tickets.next()
	slot := writeSlot(p.r.slotBytes(ticket))

	slot.setFlags(telemetry.SlotWriting)
	slot.setTicketID(ticket)
	slot.setReservedAtNs(p.nowNs())
	slot.setEvent(event.Wire())
	slot.setFlags(telemetry.SlotReady)

	return ticket
}

// BeginWrite reserves a ticket and marks the slot WRITING without
// completing it, for tests that need to simulate a stalled or crashed
// producer (spec §4.2 "Failure semantics").
func (p *Producer) BeginWrite() (ticket uint64, finish func(event telemetry.ProcessEvent)) {
	ticket = p.tickets.next()
	slot := writeSlot(p.r.slotBytes(ticket))
	slot.setFlags(telemetry.SlotWriting)
	slot.setTicketID(ticket)
	slot.setReservedAtNs(p.nowNs())

	return ticket, func(event telemetry.ProcessEvent) {
		slot.setEvent(event.Wire())
		slot.setFlags(telemetry.SlotReady)
	}
}
