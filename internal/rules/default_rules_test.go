package rules

import (
	"testing"
	"time"

	"github.com/linnix-systems/cognitod/internal/context"
)

func TestDefaultRulesCoverCorePSIAndUtilizationMetrics(t *testing.T) {
	names := make(map[string]bool)
	for _, r := range DefaultRules() {
		names[r.Name] = true
	}
	for _, want := range []string{"cpu_utilization", "memory_utilization", "cpu_psi_pressure", "io_psi_pressure"} {
		if !names[want] {
			t.Errorf("missing default rule %q", want)
		}
	}
}

func TestSeverityLadderOrdering(t *testing.T) {
	ladder := severityLadder(10, 20, 30)
	cases := []struct {
		value float64
		want  string
	}{
		{5, ""},
		{10, SeverityMedium},
		{20, SeverityHigh},
		{30, SeverityCritical},
	}
	for _, c := range cases {
		if got := ladder(c.value); got != c.want {
			t.Errorf("severityLadder(%v) = %q, want %q", c.value, got, c.want)
		}
	}
}

func TestDefaultRulesEvaluateAgainstSnapshot(t *testing.T) {
	store := context.NewStore(time.Minute, 16, nil, "")
	snap := context.SystemSnapshot{CPUPercent: 99, PSICPUSomeAvg10: 30}

	engine := NewEngine(DefaultRules(), 0)
	alerts := engine.Tick(time.Unix(1, 0), snap, store)
	if len(alerts) == 0 {
		t.Fatal("expected at least one default rule to fire against a hot snapshot")
	}
}
