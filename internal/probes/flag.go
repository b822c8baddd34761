package probes

import (
	"fmt"

	"github.com/cilium/ebpf"
)

// FeatureFlag wraps the single-element SEQUENCER_ENABLED array map that
// selects perf-array vs. sequencer dispatch at event time (spec §4.2
// "Feature flag"). Userspace toggles it only after the ring has been
// mapped and zeroed.
type FeatureFlag struct {
	m *ebpf.Map
}

// NewFeatureFlag looks up SEQUENCER_ENABLED within coll.
func NewFeatureFlag(coll *ebpf.Collection) (*FeatureFlag, error) {
	m, ok := coll.Maps["SEQUENCER_ENABLED"]
	if !ok {
		return nil, fmt.Errorf("probes: map SEQUENCER_ENABLED not found in collection")
	}
	return &FeatureFlag{m: m}, nil
}

var flagKey uint32 = 0

// Enable switches dispatch to the sequenced ring. Must only be called
// after the ring region has been mapped and zeroed.
func (f *FeatureFlag) Enable() error {
	var v uint32 = 1
	return f.m.Update(&flagKey, &v, ebpf.UpdateAny)
}

// Disable reverts dispatch to the legacy perf array.
func (f *FeatureFlag) Disable() error {
	var v uint32 = 0
	return f.m.Update(&flagKey, &v, ebpf.UpdateAny)
}

// Enabled reports the current dispatch mode.
func (f *FeatureFlag) Enabled() (bool, error) {
	var v uint32
	if err := f.m.Lookup(&flagKey, &v); err != nil {
		return false, err
	}
	return v != 0, nil
}

// InjectConfig writes a telemetry.Config into the probe layer's
// SEQUENCER_CONFIG single-element map, the well-known read-only global
// spec §4.1 describes. Must happen before any program that reads it is
// attached.
func InjectConfig(coll *ebpf.Collection, cfg configEncoder) error {
	m, ok := coll.Maps["SEQUENCER_CONFIG"]
	if !ok {
		return fmt.Errorf("probes: map SEQUENCER_CONFIG not found in collection")
	}
	var key uint32 = 0
	raw := cfg.EncodeConfig()
	return m.Update(&key, raw, ebpf.UpdateAny)
}

// configEncoder is satisfied by telemetry.Config via its EncodeConfig
// method (internal/telemetry/config.go), kept as an interface here so
// this package does not need to know the wire layout.
type configEncoder interface {
	EncodeConfig() []byte
}
