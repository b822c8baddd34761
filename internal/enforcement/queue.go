package enforcement

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSafetyViolation is returned when the SafetyGuard rejects a proposal.
var ErrSafetyViolation = errors.New("enforcement: safety violation")

// ErrLifecycleViolation is returned when an operation is attempted from an
// illegal lifecycle state (e.g. approving a non-pending action).
var ErrLifecycleViolation = errors.New("enforcement: lifecycle violation")

const autoApproveActor = "circuit_breaker"

// auditLog mirrors the original's dedicated `target: "linnix_audit"` logger.
var auditLog = log.New(os.Stderr, "[audit] ", log.LstdFlags)

// Queue is the two-phase propose→approve→execute action store (spec §4.8),
// ported from enforcement.rs's EnforcementQueue.
type Queue struct {
	mu      sync.Mutex
	actions map[string]*EnforcementAction
	ttl     time.Duration
	guard   *SafetyGuard
	now     func() time.Time
}

// NewQueue builds a Queue enforcing guard on every proposal, expiring
// Pending actions ttl after creation.
func NewQueue(ttl time.Duration, guard *SafetyGuard) *Queue {
	return &Queue{
		actions: make(map[string]*EnforcementAction),
		ttl:     ttl,
		guard:   guard,
		now:     time.Now,
	}
}

// Propose runs the safety guard and enqueues a Pending action.
func (q *Queue) Propose(action ActionType, reason, source string, confidence *float64) (string, error) {
	return q.proposeInternal(action, reason, source, confidence, false)
}

// ProposeAuto runs the safety guard and, if autoApprove, enqueues the action
// already Approved by "circuit_breaker" (still subject to the same safety
// checks and audit trail as a manual proposal).
func (q *Queue) ProposeAuto(action ActionType, reason, source string, confidence *float64, autoApprove bool) (string, error) {
	return q.proposeInternal(action, reason, source, confidence, autoApprove)
}

func (q *Queue) proposeInternal(action ActionType, reason, source string, confidence *float64, autoApprove bool) (string, error) {
	if err := q.guard.check(action); err != nil {
		return "", fmt.Errorf("%w: %s", ErrSafetyViolation, err)
	}

	id := "action-" + uuid.NewString()
	now := q.now()

	status := StatusPending
	var approvedBy string
	var approvedAt time.Time
	if autoApprove {
		status = StatusApproved
		approvedBy = autoApproveActor
		approvedAt = now
	}

	entry := &EnforcementAction{
		ID:         id,
		Action:     action,
		Reason:     reason,
		Source:     source,
		Confidence: confidence,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(q.ttl),
		ApprovedBy: approvedBy,
		ApprovedAt: approvedAt,
	}

	q.mu.Lock()
	q.actions[id] = entry
	q.mu.Unlock()

	if autoApprove {
		auditLog.Printf("CIRCUIT_BREAKER auto-approved %s source=%s reason=%s actor=%s action=%s", id, source, reason, autoApproveActor, action.Kind)
	} else {
		auditLog.Printf("PROPOSED %s source=%s reason=%s action=%s", id, source, reason, action.Kind)
	}
	return id, nil
}

// Approve transitions a Pending action to Approved, lazily expiring it
// instead if its TTL has already elapsed.
func (q *Queue) Approve(id, approver string) (EnforcementAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	action, ok := q.actions[id]
	if !ok {
		return EnforcementAction{}, fmt.Errorf("action not found: %s", id)
	}
	if action.Status != StatusPending {
		return EnforcementAction{}, fmt.Errorf("%w: not pending: %s", ErrLifecycleViolation, action.Status)
	}

	now := q.now()
	if now.After(action.ExpiresAt) {
		action.Status = StatusExpired
		return EnforcementAction{}, fmt.Errorf("%w: expired", ErrLifecycleViolation)
	}

	action.Status = StatusApproved
	action.ApprovedBy = approver
	action.ApprovedAt = now

	auditLog.Printf("APPROVED %s by %s source=%s reason=%s action=%s", id, approver, action.Source, action.Reason, action.Action.Kind)
	return *action, nil
}

// Reject transitions a Pending action to Rejected.
func (q *Queue) Reject(id, rejector string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	action, ok := q.actions[id]
	if !ok {
		return fmt.Errorf("action not found: %s", id)
	}
	if action.Status != StatusPending {
		return fmt.Errorf("%w: not pending: %s", ErrLifecycleViolation, action.Status)
	}

	action.Status = StatusRejected
	auditLog.Printf("REJECTED %s by %s source=%s reason=%s action=%s", id, rejector, action.Source, action.Reason, action.Action.Kind)
	return nil
}

// Complete transitions an Approved action to Executed.
func (q *Queue) Complete(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	action, ok := q.actions[id]
	if !ok {
		return fmt.Errorf("action not found: %s", id)
	}
	if action.Status != StatusApproved {
		return fmt.Errorf("%w: not approved: %s", ErrLifecycleViolation, action.Status)
	}

	action.Status = StatusExecuted
	log.Printf("[enforcement] completed %s", id)
	return nil
}

// GetByID returns a single action by id.
func (q *Queue) GetByID(id string) (EnforcementAction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	action, ok := q.actions[id]
	if !ok {
		return EnforcementAction{}, false
	}
	return *action, true
}

// GetPending lazily expires overdue Pending entries, then returns whatever
// remains Pending.
func (q *Queue) GetPending() []EnforcementAction {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var pending []EnforcementAction
	for _, action := range q.actions {
		if action.Status == StatusPending && now.After(action.ExpiresAt) {
			action.Status = StatusExpired
		}
		if action.Status == StatusPending {
			pending = append(pending, *action)
		}
	}
	return pending
}

// GetAll returns every action regardless of status.
func (q *Queue) GetAll() []EnforcementAction {
	q.mu.Lock()
	defer q.mu.Unlock()

	all := make([]EnforcementAction, 0, len(q.actions))
	for _, action := range q.actions {
		all = append(all, *action)
	}
	return all
}

// check runs the safety precondition for action's kind.
func (g *SafetyGuard) check(action ActionType) error {
	switch action.Kind {
	case KindKillProcess, KindFreezeProcess:
		return g.IsSafeToKill(action.Pid)
	case KindUnfreezeProcess:
		return nil
	case KindThrottleCgroup:
		return g.IsSafeCgroup(action.CgroupPath)
	default:
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}
}
