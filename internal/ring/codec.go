package ring

import (
	"encoding/binary"

	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// Byte offsets within a 128-byte SequencedSlot: flags(1, padded)+ticket_id(8)
// +reserved_at_ns(8) = 24-byte header, followed by the 96-byte wire event.
const (
	offFlags        = 0
	offTicketID      = 8
	offReservedAtNs  = 16
	offEvent         = 24
)

// readSlot is a raw view over one slot's backing bytes. It only ever reads;
// per spec §4.2 the consumer must never write the slot back.
type readSlot []byte

func (s readSlot) Flags() telemetry.SlotFlag { return telemetry.SlotFlag(s[offFlags]) }

func (s readSlot) TicketID() uint64 {
	return binary.LittleEndian.Uint64(s[offTicketID : offTicketID+8])
}

func (s readSlot) ReservedAtNs() uint64 {
	return binary.LittleEndian.Uint64(s[offReservedAtNs : offReservedAtNs+8])
}

func (s readSlot) Event() telemetry.ProcessEvent {
	w := telemetry.DecodeProcessEventWire(s[offEvent : offEvent+telemetry.WireSize])
	return telemetry.NewProcessEvent(w)
}

// writeSlot is the producer-side view, used only by the fake event
// generator and by tests exercising the ring protocol without a live
// kernel (spec §9 supplemented feature: fake producer for dry-run hosts).
type writeSlot []byte

func (s writeSlot) setFlags(f telemetry.SlotFlag) { s[offFlags] = byte(f) }

func (s writeSlot) setTicketID(v uint64) {
	binary.LittleEndian.PutUint64(s[offTicketID:offTicketID+8], v)
}

func (s writeSlot) setReservedAtNs(v uint64) {
	binary.LittleEndian.PutUint64(s[offReservedAtNs:offReservedAtNs+8], v)
}

func (s writeSlot) setEvent(w telemetry.ProcessEventWire) {
	telemetry.EncodeProcessEventWire(s[offEvent:offEvent+telemetry.WireSize], w)
}
