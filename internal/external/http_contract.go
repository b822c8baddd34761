package external

// This file documents the HTTP surface spec §6 describes, as doc comments
// only — no router, no handlers. A concrete API server (net/http plus
// whatever mux the caller prefers) is out of scope per spec §1's "no HTTP
// API server" Non-goal; what follows is the contract such a server would
// have to honor, so that one can be added later without renegotiating the
// wire shape.
//
// Every endpoint below except /healthz requires a bearer token: the caller
// sends "Authorization: Bearer <token>", and the server compares it against
// the configured API_TOKEN (see internal/config) using a constant-time
// comparison. A missing or mismatched token gets 401 Unauthorized.
//
//	GET  /status          - daemon uptime, mode (monitor/enforce), build info
//	GET  /metrics          - Prometheus exposition of internal/metrics.Metrics' counters
//	GET  /processes        - current live process table (context.Store.LiveSnapshot)
//	GET  /graph/{pid}      - process lineage ancestry for pid, from the live table's ppid links
//	GET  /events           - recent ring-buffer events, newest first
//	GET  /stream           - Server-Sent-Events / chunked stream of live events
//	GET  /alerts           - recent rule firings (rules.Engine's broadcast history)
//	GET  /incidents        - list incidents in a time window (IncidentArchive.QueryByWindow)
//	GET  /incidents/{id}   - a single incident, with attribution and actions
//	GET  /actions          - enforcement queue contents (enforcement.Queue.GetAll)
//	GET  /actions/{id}     - a single action's status and audit log
//	POST /actions/{id}/approve - approve a pending action (enforcement.Queue.Approve)
//	POST /actions/{id}/reject  - reject a pending action (enforcement.Queue.Reject)
//	GET  /healthz          - liveness probe; no auth required
//
// Responses are JSON; list endpoints accept "since"/"until" RFC3339 query
// parameters where a time window applies.
