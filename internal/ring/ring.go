// Package ring implements the userspace consumer side of the sequenced
// MPSC ring buffer: a ticket-ordered protocol for draining kernel-produced
// ProcessEvent records without locks and without the reader ever writing
// the slot back. Grounded on the teacher's internal/ebpf/loader.go (map
// lifecycle management) and on the original runtime/sequencer.rs, whose
// doc comment this package's protocol follows verbatim:
//
//   - Strict ordering: events are delivered in ticket order.
//   - Reaper timeout: a producer stuck mid-write longer than the timeout
//     is skipped, at a cost of exactly one event.
//   - Read-only reader: the consumer never writes EMPTY back, so producers
//     and the reader never fight over the same cache line.
package ring

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// ErrOrderingViolation marks a delivered gap: the reader observed a READY
// slot whose ticket_id was ahead of its cursor (spec §4.2 case 4). The
// pipeline does not stop; the caller counts it and resyncs.
var ErrOrderingViolation = errors.New("ring: ordering violation")

// Counters are the per-consumer statistics exposed alongside poll_batch.
type Counters struct {
	EventsProcessed   uint64
	EventsReaped      uint64
	EventsAbandoned   uint64
	PollCycles        uint64
	MaxBatchSize      uint64
	OrderingViolations uint64
}

// Snapshot returns an atomically-consistent-enough copy for reporting.
// Counters are read with plain loads; callers tolerate the same relaxed
// consistency the teacher's observer.Tracker accepts for its own stats.
func (c *Counters) Snapshot() Counters { return *c }

// Ring is a memory-mapped region of N cache-line-aligned SequencedSlots,
// read by a single consumer goroutine (spec §4.2 "Mapping").
type Ring struct {
	mem           []byte
	capacity      uint64
	mask          uint64
	cursor        uint64
	reaperTimeout time.Duration
	counters      Counters
	globalCounter *uint64 // producer-side ticket counter, shared region or test stub
}

// Option configures a Ring at construction.
type Option func(*Ring)

// WithReaperTimeout overrides ReaperTimeoutNsDefault.
func WithReaperTimeout(d time.Duration) Option {
	return func(r *Ring) { r.reaperTimeout = d }
}

// WithAttachCursor seeds the reader's cursor from the producer-side
// counter instead of zero, for attach-to-running-kernel scenarios (spec
// §4.2 "Mapping" explicitly leaves this optional; not required for first
// boot, but the hook exists so callers can opt in).
func WithAttachCursor(counter *uint64) Option {
	return func(r *Ring) {
		r.globalCounter = counter
		r.cursor = atomic.LoadUint64(counter)
	}
}

// capacityBytes returns the byte length of an N-slot region.
func capacityBytes(capacity uint64) int64 {
	return int64(capacity) * telemetry.SlotSize
}

// NewMapped mmaps fd read-write for `capacity` slots (must be a power of
// two), zeroes it on first attach, and advises huge pages (spec §4.2
// "Mapping"). Used in production against a cilium/ebpf array map's fd.
func NewMapped(fd int, capacity uint64, opts ...Option) (*Ring, error) {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("ring: capacity %d is not a power of two", capacity)
	}

	mem, err := unix.Mmap(fd, 0, int(capacityBytes(capacity)), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("ring: mmap: %w", err)
	}

	for i := range mem {
		mem[i] = 0
	}

	if err := unix.Madvise(mem, unix.MADV_HUGEPAGE); err != nil {
		// Best-effort; huge pages are a performance optimization, not
		// correctness-bearing (spec §4.2 makes them optional).
		_ = err
	}

	r := newRing(mem, capacity, opts...)
	return r, nil
}

// NewAnonymous allocates an anonymous mmap region, used by tests and by
// the fake producer harness where no kernel map fd exists.
func NewAnonymous(capacity uint64, opts ...Option) (*Ring, error) {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("ring: capacity %d is not a power of two", capacity)
	}
	mem, err := unix.Mmap(-1, 0, int(capacityBytes(capacity)), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("ring: anonymous mmap: %w", err)
	}
	return newRing(mem, capacity, opts...), nil
}

func newRing(mem []byte, capacity uint64, opts ...Option) *Ring {
	r := &Ring{
		mem:           mem,
		capacity:      capacity,
		mask:          capacity - 1,
		reaperTimeout: telemetry.ReaperTimeoutNsDefault * time.Nanosecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close unmaps the ring's backing region.
func (r *Ring) Close() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem = nil
	return err
}

// Counters returns a copy of the current statistics.
func (r *Ring) Counters() Counters { return r.counters.Snapshot() }

// Cursor returns the reader's current ticket cursor.
func (r *Ring) Cursor() uint64 { return r.cursor }

func (r *Ring) slotBytes(ticket uint64) []byte {
	idx := ticket & r.mask
	start := idx * telemetry.SlotSize
	return r.mem[start : start+telemetry.SlotSize]
}

func (r *Ring) slotAt(ticket uint64) readSlot {
	return readSlot(r.slotBytes(ticket))
}

// PollBatch drains up to max ready events in strict ticket order (spec
// §4.2 "Batch interface"). It implements the reader's six-case decision
// table exactly once per invocation per slot; the caller is expected to
// call PollBatch repeatedly (e.g. in a loop with a short sleep on empty
// batches).
func (r *Ring) PollBatch(max int, nowNs func() uint64) []telemetry.ProcessEvent {
	if max <= 0 {
		return nil
	}
	out := make([]telemetry.ProcessEvent, 0, max)
	r.counters.PollCycles++

	for len(out) < max {
		slot := r.slotAt(r.cursor)
		flags := slot.Flags()

		switch flags {
		case telemetry.SlotReady:
			ticketID := slot.TicketID()
			switch {
			case ticketID == r.cursor:
				out = append(out, slot.Event())
				r.counters.EventsProcessed++
				r.cursor++
			case ticketID < r.cursor:
				// Case 3: stale, producer hasn't lapped yet. Stop.
				goto done
			default:
				// Case 4: gap. Record violation and resync the cursor to
				// ticketID; the next loop iteration re-reads this slot and
				// delivers it within the same PollBatch call.
				r.counters.OrderingViolations++
				r.cursor = ticketID
			}

		case telemetry.SlotWriting:
			ticketID := slot.TicketID()
			if ticketID != r.cursor {
				goto done
			}
			reservedAt := slot.ReservedAtNs()
			if nowNs() - reservedAt < uint64(r.reaperTimeout.Nanoseconds()) {
				goto done
			}
			// Case 5: reaper timeout exceeded. Skip exactly one ticket.
			r.counters.EventsReaped++
			r.counters.EventsAbandoned++
			r.cursor++

		default:
			// Case 6: EMPTY or unknown flag with ticket_id < cursor: caught up.
			goto done
		}
	}

done:
	if len(out) > int(r.counters.MaxBatchSize) {
		r.counters.MaxBatchSize = uint64(len(out))
	}
	return out
}
