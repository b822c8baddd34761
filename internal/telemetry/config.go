package telemetry

import "encoding/binary"

// RSSSource selects which kernel rss_stat accounting path the probes read.
type RSSSource uint32

const (
	RSSSourceDisabled RSSSource = iota
	RSSSourceSignal
	RSSSourceMM
)

func (s RSSSource) String() string {
	switch s {
	case RSSSourceSignal:
		return "SIGNAL"
	case RSSSourceMM:
		return "MM"
	default:
		return "DISABLED"
	}
}

// Config is the fully populated set of byte offsets and constants the
// kernel probes need to read task_struct fields across kernel versions
// without recompilation (spec §4.1, §4.3). internal/probes.InjectConfig
// writes it into the SEQUENCER_CONFIG map; nothing in this tree calls
// InjectConfig, and the probe Loader does not inject it.
type Config struct {
	// task_struct member offsets, in bytes.
	RealParentOffset uint32
	TgidOffset       uint32
	PidOffset        uint32
	CommOffset       uint32
	SeOffset         uint32 // task_struct.se (sched_entity)
	SignalOffset     uint32
	MMOffset         uint32

	// sched_entity.sum_exec_runtime offset, relative to se.
	SumExecRuntimeOffset uint32

	// RSS accounting.
	RSSSource      RSSSource
	RSSStatOffset  uint32 // offset of rss_stat within signal_struct or mm_struct
	RSSCountOffset uint32 // offset of the `count` array within rss_stat
	RSSStride      uint32 // byte stride between rss_stat array elements
	RSSFileIndex   uint32 // MM_FILEPAGES enum value
	RSSAnonIndex   uint32 // MM_ANONPAGES enum value

	PageSizeBytes  uint64
	TotalMemoryKB  uint64
}

// configWireSize is the fixed byte length EncodeConfig produces: 14
// uint32 fields (56 bytes) followed by 2 uint64 fields (16 bytes).
const configWireSize = 14*4 + 2*8

// EncodeConfig serializes Config into the fixed little-endian layout the
// kernel-side global expects (spec §4.1 "injected into a well-known
// read-only global before the probes are loaded").
func (c Config) EncodeConfig() []byte {
	b := make([]byte, configWireSize)
	le := binary.LittleEndian
	le.PutUint32(b[0:4], c.RealParentOffset)
	le.PutUint32(b[4:8], c.TgidOffset)
	le.PutUint32(b[8:12], c.PidOffset)
	le.PutUint32(b[12:16], c.CommOffset)
	le.PutUint32(b[16:20], c.SeOffset)
	le.PutUint32(b[20:24], c.SignalOffset)
	le.PutUint32(b[24:28], c.MMOffset)
	le.PutUint32(b[28:32], c.SumExecRuntimeOffset)
	le.PutUint32(b[32:36], uint32(c.RSSSource))
	le.PutUint32(b[36:40], c.RSSStatOffset)
	le.PutUint32(b[40:44], c.RSSCountOffset)
	le.PutUint32(b[44:48], c.RSSStride)
	le.PutUint32(b[48:52], c.RSSFileIndex)
	le.PutUint32(b[52:56], c.RSSAnonIndex)
	le.PutUint64(b[56:64], c.PageSizeBytes)
	le.PutUint64(b[64:72], c.TotalMemoryKB)
	return b
}
