// Package conversation implements the SupportConversation aggregate: the
// linear support-ticket intake wizard that produces a ticket.Ticket on
// completion (spec.md §4.4).
package conversation

import (
	"time"

	"github.com/gustsr/sentinela/domainevent"
)

// State is the conversation's position in its linear wizard.
type State string

const (
	StateCategorySelection   State = "category_selection"
	StateGameSelection       State = "game_selection"
	StateTimingSelection     State = "timing_selection"
	StateDescriptionInput    State = "description_input"
	StateAttachmentsOptional State = "attachments_optional"
	StateConfirmation        State = "confirmation"
	StateCompleted           State = "completed"
	StateCancelled           State = "cancelled"
)

// stateOrder gives State its linear progression; only Cancel may move
// backward, and only to StateCancelled.
var stateOrder = []State{
	StateCategorySelection,
	StateGameSelection,
	StateTimingSelection,
	StateDescriptionInput,
	StateAttachmentsOptional,
	StateConfirmation,
	StateCompleted,
}

func stepIndex(s State) int {
	for i, st := range stateOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// GameTitle is the affected-game value object, supplemented from
// original_source/'s game catalog (spec.md's distillation names only
// "affected game" as a free-text field).
type GameTitle string

// ProblemTiming is when the reported problem started, used to derive
// urgency on ticket creation.
type ProblemTiming string

const (
	TimingNow       ProblemTiming = "now"
	TimingYesterday ProblemTiming = "yesterday"
	TimingThisWeek  ProblemTiming = "this_week"
	TimingLongTime  ProblemTiming = "long_time"
	TimingAlways    ProblemTiming = "always"
)

// MaxAttachments bounds FormData.Attachments (spec.md §3: "attachments ≤
// 3").
const MaxAttachments = 3

// MinDescriptionLength is SetDescription's trimmed-length floor.
const MinDescriptionLength = 10

// IdleTimeout cancels a conversation idle past this duration.
const IdleTimeout = 30 * time.Minute

// FormData accumulates the wizard's answers.
type FormData struct {
	Category    string        `json:"category"`
	Game        GameTitle     `json:"game"`
	Timing      ProblemTiming `json:"timing"`
	Description string        `json:"description"`
	Attachments []string      `json:"attachments"`
}

// Complete reports whether every required field has been filled.
func (f FormData) Complete() bool {
	return f.Category != "" && f.Game != "" && f.Timing != "" && f.Description != ""
}

// Conversation is the aggregate root.
type Conversation struct {
	ID       string
	UserID   string
	Username string

	State State
	Form  FormData

	IsActive bool
	TicketID string

	CreatedAt    time.Time
	LastActivity time.Time

	pendingEvents []domainevent.Event
}

// PendingEvents returns events raised since the last clear.
func (c *Conversation) PendingEvents() []domainevent.Event { return c.pendingEvents }

// ClearPendingEvents empties the pending-event list.
func (c *Conversation) ClearPendingEvents() { c.pendingEvents = nil }

func (c *Conversation) raise(evt domainevent.Event) {
	c.pendingEvents = append(c.pendingEvents, evt)
}

// IsIdle reports whether now is past LastActivity + IdleTimeout.
func (c *Conversation) IsIdle(now time.Time) bool {
	return now.Sub(c.LastActivity) > IdleTimeout
}
