// Package enforcement implements the two-phase propose→approve→execute
// action queue (spec §4.8): a SafetyGuard precondition gates every proposal,
// a bounded-TTL Pending/Approved/Rejected/Expired/Executed lifecycle governs
// each action, and every proposal, approval, rejection and auto-approval is
// written to an audit log.
package enforcement

import "time"

// ActionKind discriminates the tagged ActionType union, mirroring the Rust
// original's #[serde(tag = "type")] enum.
type ActionKind string

const (
	KindKillProcess     ActionKind = "kill_process"
	KindFreezeProcess   ActionKind = "freeze_process"
	KindUnfreezeProcess ActionKind = "unfreeze_process"
	KindThrottleCgroup  ActionKind = "throttle_cgroup"
)

// ActionType is a single proposed enforcement action. Only the fields
// relevant to Kind are populated, matching the Rust enum's per-variant
// payload.
type ActionType struct {
	Kind ActionKind

	// KillProcess / FreezeProcess / UnfreezeProcess
	Pid    uint32
	Signal int32 // KillProcess only; defaults to SIGKILL (9) if zero

	// ThrottleCgroup
	CgroupPath string
	QuotaUs    uint64
	PeriodUs   uint64
}

// ActionStatus is the action's lifecycle state (spec §4.8).
type ActionStatus string

const (
	StatusPending  ActionStatus = "pending"
	StatusApproved ActionStatus = "approved"
	StatusRejected ActionStatus = "rejected"
	StatusExpired  ActionStatus = "expired"
	StatusExecuted ActionStatus = "executed"
)

// EnforcementAction is one entry in the queue: a proposed action plus its
// audit trail and lifecycle state.
type EnforcementAction struct {
	ID         string
	Action     ActionType
	Reason     string
	Source     string
	Confidence *float64
	Status     ActionStatus
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ApprovedBy string
	ApprovedAt time.Time
}
