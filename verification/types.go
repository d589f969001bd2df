// Package verification implements the CPF-verification aggregate and its
// state machine: bounded retries, expiry, duplicate resolution, and
// per-user rate limits (spec.md §4.2).
package verification

import (
	"fmt"
	"time"

	"github.com/gustsr/sentinela/cpf"
	"github.com/gustsr/sentinela/domainevent"
)

// Type is the reason a verification was started.
type Type string

const (
	TypeAutoCheckup     Type = "auto_checkup"
	TypeSupportRequest  Type = "support_request"
	TypeManualReview    Type = "manual_review"
	TypeSecurityCheck   Type = "security_check"
)

// Status is the VerificationRequest's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether s admits no further mutation beyond timestamps.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

// MaxAttempts bounds VerificationRequest.Attempts (spec.md §3 invariant).
const MaxAttempts = 3

// DefaultExpiry is how long after creation a Pending/InProgress request
// expires if untouched (spec.md §3: default created_at + 24h).
const DefaultExpiry = 24 * time.Hour

// Attempt is an append-only record of one CPF submission.
type Attempt struct {
	AttemptedAt   time.Time `json:"attempted_at"`
	CPFProvided   string    `json:"cpf_provided"` // masked before leaving the aggregate
	Success       bool      `json:"success"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// UpstreamSnapshot captures the upstream client record at the moment a
// verification succeeded.
type UpstreamSnapshot struct {
	ClientName    string `json:"client_name"`
	ServiceName   string `json:"service_name"`
	ServiceStatus string `json:"service_status"`
	ServiceID     string `json:"service_id"`
}

// Request is the VerificationRequest aggregate root.
type Request struct {
	ID           string
	UserID       string
	Username     string
	Type         Type
	SourceAction string
	Status       Status

	CreatedAt   time.Time
	ExpiresAt   time.Time
	CompletedAt time.Time

	Attempts []Attempt

	VerifiedCPF cpf.CPF
	Upstream    *UpstreamSnapshot

	// pendingEvents accumulates events raised during the current operation;
	// the use case publishes them only after a successful Save, then the
	// caller clears them via ClearPendingEvents.
	pendingEvents []domainevent.Event
}

// PendingEvents returns the events collected since the last clear.
func (r *Request) PendingEvents() []domainevent.Event {
	return r.pendingEvents
}

// ClearPendingEvents empties the pending-event list; called by the engine
// after a successful Save, just before it publishes the events.
func (r *Request) ClearPendingEvents() {
	r.pendingEvents = nil
}

func (r *Request) raise(evt domainevent.Event) {
	r.pendingEvents = append(r.pendingEvents, evt)
}

// AttemptsLeft returns how many more attempts the user may make.
func (r *Request) AttemptsLeft() int {
	left := MaxAttempts - len(r.Attempts)
	if left < 0 {
		return 0
	}
	return left
}

// IsExpired reports whether now is past ExpiresAt.
func (r *Request) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// CompleteSuccess is SubmitCPF's path to Completed. It enforces the
// invariants a bare field assignment would silently skip: the verified
// CPF must re-pass checksum validation (defense in depth against a
// caller that bypassed SubmitCPF's own parse step), and the aggregate
// must not already be terminal. ResolveDuplicate's merge strategy sets
// Completed without it, so a merged request carries no verified CPF or
// upstream snapshot.
func (r *Request) CompleteSuccess(parsed cpf.CPF, snapshot UpstreamSnapshot, now time.Time) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("verification: cannot complete a %s request", r.Status)
	}
	if _, err := cpf.Parse(parsed.Canonical()); err != nil {
		return fmt.Errorf("verification: checksum re-validation failed: %w", err)
	}
	r.VerifiedCPF = parsed
	r.Upstream = &snapshot
	r.Status = StatusCompleted
	r.CompletedAt = now
	return nil
}
