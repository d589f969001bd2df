// Package ticket implements the Ticket aggregate: its status transition
// graph, urgency elevation, and upstream sync bookkeeping (spec.md §4.4,
// §4.6's "Ticket operations").
package ticket

import (
	"time"

	"github.com/gustsr/sentinela/domainevent"
)

// Status is the Ticket's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
	StatusCancelled  Status = "cancelled"
)

// transitions is the status transition graph from spec.md §3. Closed and
// Cancelled are terminal (no outgoing edges).
var transitions = map[Status][]Status{
	StatusPending:    {StatusOpen, StatusInProgress, StatusCancelled},
	StatusOpen:       {StatusInProgress, StatusResolved, StatusCancelled},
	StatusInProgress: {StatusPending, StatusResolved, StatusCancelled},
	StatusResolved:   {StatusClosed, StatusOpen},
}

// CanTransition reports whether to is a legal next state from from.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s admits no further status transitions.
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// Urgency is the Ticket's priority tier.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// urgencyRank gives Urgency a total order for ElevateUrgency's monotonic
// check.
var urgencyRank = map[Urgency]int{
	UrgencyLow:      0,
	UrgencyNormal:   1,
	UrgencyHigh:     2,
	UrgencyCritical: 3,
}

// SyncStatus tracks upstream synchronization state, independent of Status.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

// OwnerSnapshot is the immutable copy of the requesting user held by the
// ticket; later User mutations never retroactively change a ticket
// (spec.md §3 "Ownership").
type OwnerSnapshot struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	CPFMasked string `json:"cpf_masked"`
}

// Message is one entry in the ticket's bounded message history.
type Message struct {
	At     time.Time `json:"at"`
	Author string    `json:"author"`
	Body   string    `json:"body"`
}

// MaxAttachments and MaxMessages bound the Ticket's embedded lists
// (spec.md §3: "bounded attachment list (max 5), bounded message
// history").
const (
	MaxAttachments = 5
	MaxMessages    = 50
)

// Ticket is the aggregate root.
type Ticket struct {
	ID       string
	Owner    OwnerSnapshot
	Category string
	Game     string
	Timing   string

	Description string
	Urgency     Urgency
	Status      Status

	Assignee        string
	ResolutionNotes string

	UpstreamID       string
	UpstreamProtocol string
	SyncStatus       SyncStatus

	Attachments []string
	Messages    []Message

	CreatedAt time.Time
	UpdatedAt time.Time

	pendingEvents []domainevent.Event
}

// PendingEvents returns events raised since the last clear.
func (t *Ticket) PendingEvents() []domainevent.Event { return t.pendingEvents }

// ClearPendingEvents empties the pending-event list.
func (t *Ticket) ClearPendingEvents() { t.pendingEvents = nil }

func (t *Ticket) raise(evt domainevent.Event) {
	t.pendingEvents = append(t.pendingEvents, evt)
}
