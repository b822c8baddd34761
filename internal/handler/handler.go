// Package handler provides the uniform {OnEvent, OnSnapshot} capability
// spec.md §9 calls for: "Handlers (log sink, rules, incident sink) are
// modeled as a uniform capability... dispatch is a flat iteration."
// Grounded on the original's handler/mod.rs (Handler trait + HandlerList).
package handler

import (
	"github.com/linnix-systems/cognitod/internal/context"
	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// Handler is implemented by every event/snapshot sink (JSONL file, rule
// engine adapter; notification sinks like the original's docker/cloudflare/
// discord/ddos/warmth handlers remain out of scope per spec.md §1/§6).
type Handler interface {
	Name() string
	OnEvent(event telemetry.ProcessEvent)
	OnSnapshot(snap context.SystemSnapshot)
}

// List dispatches to every registered Handler in registration order,
// matching HandlerList's flat iteration.
type List struct {
	handlers []Handler
}

// Register appends h to the dispatch list.
func (l *List) Register(h Handler) {
	l.handlers = append(l.handlers, h)
}

// OnEvent fans event out to every registered handler.
func (l *List) OnEvent(event telemetry.ProcessEvent) {
	for _, h := range l.handlers {
		h.OnEvent(event)
	}
}

// OnSnapshot fans snap out to every registered handler.
func (l *List) OnSnapshot(snap context.SystemSnapshot) {
	for _, h := range l.handlers {
		h.OnSnapshot(snap)
	}
}
