package ticket

import (
	"time"

	"github.com/gustsr/sentinela/domainevent"
)

// Created is emitted when ConfirmAndCreateTicket persists a new ticket.
type Created struct {
	domainevent.Base
	TicketID string
	UserID   string
	Urgency  Urgency
}

func newCreated(t *Ticket, at time.Time) Created {
	return Created{Base: domainevent.NewBase("TicketCreated", at), TicketID: t.ID, UserID: t.Owner.UserID, Urgency: t.Urgency}
}

// Assigned is emitted by Assign.
type Assigned struct {
	domainevent.Base
	TicketID string
	Assignee string
}

func newAssigned(t *Ticket, at time.Time) Assigned {
	return Assigned{Base: domainevent.NewBase("TicketAssigned", at), TicketID: t.ID, Assignee: t.Assignee}
}

// StatusChanged is emitted by ChangeStatus.
type StatusChanged struct {
	domainevent.Base
	TicketID string
	From     Status
	To       Status
}

func newStatusChanged(t *Ticket, from, to Status, at time.Time) StatusChanged {
	return StatusChanged{Base: domainevent.NewBase("TicketStatusChanged", at), TicketID: t.ID, From: from, To: to}
}

// SyncedWithUpstream is emitted by SyncWithUpstream on success.
type SyncedWithUpstream struct {
	domainevent.Base
	TicketID   string
	UpstreamID string
}

func newSyncedWithUpstream(t *Ticket, at time.Time) SyncedWithUpstream {
	return SyncedWithUpstream{Base: domainevent.NewBase("TicketSyncedWithUpstream", at), TicketID: t.ID, UpstreamID: t.UpstreamID}
}

// Closed is emitted by CloseWithResolution.
type Closed struct {
	domainevent.Base
	TicketID string
}

func newClosed(t *Ticket, at time.Time) Closed {
	return Closed{Base: domainevent.NewBase("TicketClosed", at), TicketID: t.ID}
}

// Reopened is emitted when a Resolved ticket transitions back to Open.
type Reopened struct {
	domainevent.Base
	TicketID string
}

func newReopened(t *Ticket, at time.Time) Reopened {
	return Reopened{Base: domainevent.NewBase("TicketReopened", at), TicketID: t.ID}
}

// UrgencyElevated is emitted by ElevateUrgency.
type UrgencyElevated struct {
	domainevent.Base
	TicketID string
	From     Urgency
	To       Urgency
}

func newUrgencyElevated(t *Ticket, from, to Urgency, at time.Time) UrgencyElevated {
	return UrgencyElevated{Base: domainevent.NewBase("TicketUrgencyElevated", at), TicketID: t.ID, From: from, To: to}
}
