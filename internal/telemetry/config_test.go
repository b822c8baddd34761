package telemetry

import (
	"encoding/binary"
	"testing"
)

func TestEncodeConfigFixedSize(t *testing.T) {
	cfg := Config{
		RealParentOffset:     1000,
		TgidOffset:           1108,
		PidOffset:            1112,
		CommOffset:           1472,
		SeOffset:             600,
		SignalOffset:         1520,
		MMOffset:             800,
		SumExecRuntimeOffset: 24,
		RSSSource:            RSSSourceMM,
		RSSStatOffset:        168,
		RSSCountOffset:       0,
		RSSStride:            8,
		RSSFileIndex:         0,
		RSSAnonIndex:         1,
		PageSizeBytes:        4096,
		TotalMemoryKB:        16_000_000,
	}

	raw := cfg.EncodeConfig()
	if len(raw) != configWireSize {
		t.Fatalf("EncodeConfig length = %d, want %d", len(raw), configWireSize)
	}

	if got := binary.LittleEndian.Uint32(raw[0:4]); got != cfg.RealParentOffset {
		t.Errorf("RealParentOffset round-trip failed: got %d, want %d", got, cfg.RealParentOffset)
	}
	if got := binary.LittleEndian.Uint64(raw[56:64]); got != cfg.PageSizeBytes {
		t.Errorf("PageSizeBytes round-trip failed: got %d, want %d", got, cfg.PageSizeBytes)
	}
}

func TestRSSSourceString(t *testing.T) {
	cases := map[RSSSource]string{
		RSSSourceDisabled: "DISABLED",
		RSSSourceSignal:   "SIGNAL",
		RSSSourceMM:       "MM",
	}
	for src, want := range cases {
		if got := src.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", src, got, want)
		}
	}
}
