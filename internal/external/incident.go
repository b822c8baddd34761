package external

import (
	"context"
	"time"

	"github.com/linnix-systems/cognitod/internal/enforcement"
	"github.com/linnix-systems/cognitod/internal/psi"
	"github.com/linnix-systems/cognitod/internal/rules"
)

// Incident is the durable record an IncidentArchive stores: a PSI stall
// event, its blame attribution, and whatever enforcement actions were
// proposed in response, bundled under one correlation id (spec §4.6's "the
// full list is persisted to the external incident archive").
type Incident struct {
	ID            string
	Stall         psi.StallEvent
	Attribution   []psi.BlameAttribution
	Actions       []enforcement.EnforcementAction
	TimestampUnix int64
}

// IncidentArchive is the durable store for incidents and their attribution,
// created by C6 and consumed by C8's action history and any external
// dashboard. No concrete implementation ships here — spec §1/§6 keep
// durable storage deliberately out of scope; the interface exists so a
// caller can plug one in without reshaping the rest of the daemon.
type IncidentArchive interface {
	InsertIncident(ctx context.Context, i Incident) (id string, err error)
	AttachAttribution(ctx context.Context, incidentID string, attr psi.BlameAttribution) error
	QueryByWindow(ctx context.Context, since, until time.Time, victim string) ([]Incident, error)
}

// NotificationSink delivers a fired rules.Alert to an outside channel
// (email, chat, pager). Grounded on the original's notification handlers
// (docker/cloudflare/discord/ddos/warmth); none of those transports are
// reimplemented here, only the shape a caller would plug one in behind.
type NotificationSink interface {
	Notify(ctx context.Context, alert rules.Alert) error
}

// IncidentSummarizer produces a human-readable narrative for an incident,
// e.g. via an LLM call. Out of scope to implement; the interface documents
// where such a summarizer would be wired into C6/C8's output.
type IncidentSummarizer interface {
	Summarize(ctx context.Context, incident Incident) (string, error)
}
