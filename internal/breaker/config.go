package breaker

import "time"

// Mode controls whether a sustained breach is allowed to auto-execute.
const (
	ModeMonitor = "monitor"
	ModeEnforce = "enforce"
)

// Config is the circuit breaker's threshold table (spec §4.9), grounded on
// the teacher's orchestrator.ProfileConfig preset-table idiom.
type Config struct {
	CPUUsageThreshold      float64
	CPUPSIThreshold        float64
	MemoryPSIFullThreshold float64

	GracePeriod   time.Duration
	CheckInterval time.Duration

	Mode                 string
	RequireHumanApproval bool
}

// DefaultConfig returns conservative defaults matching the original's own
// circuit-breaker defaults: 90% CPU sustained alongside 50% CPU PSI, or 50%
// memory-full PSI, for 15s, checked every 5s.
func DefaultConfig() Config {
	return Config{
		CPUUsageThreshold:      90,
		CPUPSIThreshold:        50,
		MemoryPSIFullThreshold: 50,
		GracePeriod:            15 * time.Second,
		CheckInterval:          5 * time.Second,
		Mode:                   ModeMonitor,
		RequireHumanApproval:   true,
	}
}
