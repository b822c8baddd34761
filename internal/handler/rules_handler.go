package handler

import (
	"log"
	"time"

	"github.com/linnix-systems/cognitod/internal/context"
	"github.com/linnix-systems/cognitod/internal/rules"
	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// RulesHandler adapts C7's rules.Engine to the Handler capability: every
// snapshot delivered to OnSnapshot is ticked through the rule engine, and
// any fired alerts are logged. Events are ignored here since C5 already
// records every admitted event before handlers run; rules only act on
// periodic snapshots (spec §4.7).
type RulesHandler struct {
	engine *rules.Engine
	store  *context.Store
	now    func() time.Time
}

// NewRulesHandler builds a RulesHandler evaluating engine's rules against
// store's snapshots.
func NewRulesHandler(engine *rules.Engine, store *context.Store) *RulesHandler {
	return &RulesHandler{engine: engine, store: store, now: time.Now}
}

func (h *RulesHandler) Name() string { return "rules" }

func (h *RulesHandler) OnEvent(telemetry.ProcessEvent) {}

func (h *RulesHandler) OnSnapshot(snap context.SystemSnapshot) {
	for _, alert := range h.engine.Tick(h.now(), snap, h.store) {
		log.Printf("[rules] %s: %s (%s)", alert.Severity, alert.Message, alert.Rule)
	}
}
