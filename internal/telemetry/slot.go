package telemetry

// SlotFlag is the one-byte state of a SequencedSlot (spec §3).
type SlotFlag uint8

const (
	SlotEmpty SlotFlag = iota
	SlotWriting
	SlotReady
	SlotAbandoned
)

func (f SlotFlag) String() string {
	switch f {
	case SlotEmpty:
		return "EMPTY"
	case SlotWriting:
		return "WRITING"
	case SlotReady:
		return "READY"
	case SlotAbandoned:
		return "ABANDONED"
	default:
		return "UNKNOWN"
	}
}

// SlotSize is the cache-line-aligned size of one ring slot (spec §3).
const SlotSize = 128

// slotHeaderSize is flags(1, padded to 8) + ticket_id(8) + reserved_at_ns(8).
const slotHeaderSize = 24

// SequencedSlot is the in-memory view of one ring slot: a state flag, the
// ticket that reserved it, the reservation timestamp used by the reaper, and
// the embedded ProcessEvent. Padding brings every slot to SlotSize bytes so
// producers on different CPUs never share a cache line (spec §3).
type SequencedSlot struct {
	Flags         SlotFlag
	TicketID      uint64
	ReservedAtNs  uint64
	Event         ProcessEventWire
}

// RingCapacityDefault is the reference ring size: a fixed power of two
// (spec §3). 2^20 slots.
const RingCapacityDefault = 1 << 20

// ReaperTimeoutNsDefault bounds how long the reader waits on a WRITING slot
// before reaping it (spec §4.2, reference value 10ms).
const ReaperTimeoutNsDefault = 10 * 1_000_000
