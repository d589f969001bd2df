package conversation

import (
	"time"

	"github.com/gustsr/sentinela/domainevent"
)

// Started is emitted by StartConversation.
type Started struct {
	domainevent.Base
	ConversationID string
	UserID         string
}

func newStarted(c *Conversation, at time.Time) Started {
	return Started{Base: domainevent.NewBase("ConversationStarted", at), ConversationID: c.ID, UserID: c.UserID}
}

// StepCompleted is emitted after every successful wizard step.
type StepCompleted struct {
	domainevent.Base
	ConversationID string
	Step           State
}

func newStepCompleted(c *Conversation, step State, at time.Time) StepCompleted {
	return StepCompleted{Base: domainevent.NewBase("ConversationStepCompleted", at), ConversationID: c.ID, Step: step}
}

// Completed is emitted when ConfirmAndCreateTicket succeeds.
type Completed struct {
	domainevent.Base
	ConversationID string
	TicketID       string
}

func newCompleted(c *Conversation, at time.Time) Completed {
	return Completed{Base: domainevent.NewBase("ConversationCompleted", at), ConversationID: c.ID, TicketID: c.TicketID}
}

// Cancelled is emitted by CancelConversation and TimeoutSweep.
type Cancelled struct {
	domainevent.Base
	ConversationID string
	Reason         string
}

func newCancelled(c *Conversation, reason string, at time.Time) Cancelled {
	return Cancelled{Base: domainevent.NewBase("ConversationCancelled", at), ConversationID: c.ID, Reason: reason}
}

// TimedOut is emitted by TimeoutSweep for each conversation it cancels for
// idleness.
type TimedOut struct {
	domainevent.Base
	ConversationID string
}

func newTimedOut(c *Conversation, at time.Time) TimedOut {
	return TimedOut{Base: domainevent.NewBase("ConversationTimedOut", at), ConversationID: c.ID}
}
