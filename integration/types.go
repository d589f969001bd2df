// Package integration implements the Integration Scheduler: a priority
// queue of jobs dispatched against the upstream system under a shared rate
// budget, circuit breaker, and TTL cache (spec.md §4.6).
package integration

import (
	"time"

	"github.com/gustsr/sentinela/domainevent"
)

// Type is the kind of work an IntegrationRequest performs.
type Type string

const (
	TypeTicketSync       Type = "ticket_sync"
	TypeUserVerification Type = "user_verification"
	TypeClientDataFetch  Type = "client_data_fetch"
	TypeBulkSync         Type = "bulk_sync"
	TypeStatusUpdate     Type = "status_update"
)

// Priority orders the queue; lower PriorityValue dispatches first.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// Value maps Priority onto the queue's ordering scalar: Critical < High <
// Normal < Low (spec.md §4.6).
func (p Priority) Value() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Status is the IntegrationRequest's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether s admits no further scheduling.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// DefaultMaxRetries is IntegrationRequest.MaxRetries' default.
const DefaultMaxRetries = 3

// Attempt is an append-only record of one dispatch try.
type Attempt struct {
	AttemptedAt time.Time `json:"attempted_at"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
}

// Request is the IntegrationRequest aggregate root.
type Request struct {
	ID       string
	Type     Type
	Priority Priority
	Status   Status

	Payload  map[string]any
	Metadata map[string]string

	MaxRetries  int
	Timeout     time.Duration
	ForceRetry  bool

	ScheduledAt time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	UpstreamResponse map[string]any
	ErrorDetail      string

	Attempts []Attempt

	CreatedAt time.Time

	pendingEvents []domainevent.Event
}

// PendingEvents returns events raised since the last clear.
func (r *Request) PendingEvents() []domainevent.Event { return r.pendingEvents }

// ClearPendingEvents empties the pending-event list.
func (r *Request) ClearPendingEvents() { r.pendingEvents = nil }

func (r *Request) raise(evt domainevent.Event) {
	r.pendingEvents = append(r.pendingEvents, evt)
}

// AttemptCount returns the number of dispatch attempts made so far.
func (r *Request) AttemptCount() int { return len(r.Attempts) }

// CanRetry reports whether another attempt is permitted.
func (r *Request) CanRetry() bool {
	return r.ForceRetry || r.AttemptCount() < r.MaxRetries
}
