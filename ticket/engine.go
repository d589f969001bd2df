package ticket

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gustsr/sentinela/clockwork"
	"github.com/gustsr/sentinela/domainevent"
	"github.com/gustsr/sentinela/errcode"
)

// UpstreamSync is the subset of the upstream client the ticket engine
// needs for SyncWithUpstream. Satisfied structurally by upstream.Client.
type UpstreamSync interface {
	CreateTicket(ctx context.Context, t *Ticket) (upstreamID, protocol string, err error)
}

// Engine implements the ticket operations of spec.md §4.4's "Ticket
// operations" paragraph.
type Engine struct {
	repo     Repository
	upstream UpstreamSync
	bus      *domainevent.Bus
	clock    clockwork.Clock
}

// NewEngine builds a ticket Engine.
func NewEngine(repo Repository, upstream UpstreamSync, bus *domainevent.Bus, clock clockwork.Clock) *Engine {
	return &Engine{repo: repo, upstream: upstream, bus: bus, clock: clock}
}

// Result is the uniform outcome every engine operation returns.
type Result struct {
	OK     bool
	Code   errcode.Code
	Ticket *Ticket
}

func fail(code errcode.Code) Result { return Result{OK: false, Code: code} }

func (e *Engine) publish(ctx context.Context, t *Ticket) {
	events := t.PendingEvents()
	if len(events) == 0 {
		return
	}
	t.ClearPendingEvents()
	if e.bus == nil {
		return
	}
	e.bus.PublishMany(ctx, events)
}

func (e *Engine) save(ctx context.Context, t *Ticket, now time.Time) error {
	t.UpdatedAt = now
	if err := e.repo.Save(ctx, t); err != nil {
		return fmt.Errorf("ticket: save: %w", err)
	}
	e.publish(ctx, t)
	return nil
}

func (e *Engine) load(ctx context.Context, id string) (*Ticket, Result, error) {
	t, found, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, Result{}, fmt.Errorf("ticket: get: %w", err)
	}
	if !found {
		return nil, fail(errcode.UserNotFound), nil
	}
	return t, Result{}, nil
}

// New constructs a Pending ticket from confirmed conversation form data and
// raises TicketCreated. Called by the conversation engine's
// ConfirmAndCreateTicket, before the ticket is persisted.
func New(id string, owner OwnerSnapshot, category, game, timing, description string, urgency Urgency, now time.Time) *Ticket {
	t := &Ticket{
		ID:          id,
		Owner:       owner,
		Category:    category,
		Game:        game,
		Timing:      timing,
		Description: description,
		Urgency:     urgency,
		Status:      StatusPending,
		SyncStatus:  SyncPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.raise(newCreated(t, now))
	return t
}

// Assign assigns a non-terminal ticket to assignee. The first assignment
// of a Pending ticket also transitions it to InProgress.
func (e *Engine) Assign(ctx context.Context, ticketID, assignee string) (Result, error) {
	t, bad, err := e.load(ctx, ticketID)
	if err != nil || t == nil {
		return bad, err
	}
	if t.Status.IsTerminal() {
		return fail(errcode.InvalidTransition), nil
	}

	now := e.clock.Now()
	wasPending := t.Status == StatusPending
	t.Assignee = assignee
	if wasPending {
		t.Status = StatusInProgress
		t.raise(newStatusChanged(t, StatusPending, StatusInProgress, now))
	}
	t.raise(newAssigned(t, now))

	if err := e.save(ctx, t, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Ticket: t}, nil
}

// ChangeStatus moves the ticket along the transition graph, rejecting
// illegal edges with invalid_transition.
func (e *Engine) ChangeStatus(ctx context.Context, ticketID string, to Status) (Result, error) {
	t, bad, err := e.load(ctx, ticketID)
	if err != nil || t == nil {
		return bad, err
	}
	if !CanTransition(t.Status, to) {
		return fail(errcode.InvalidTransition), nil
	}

	now := e.clock.Now()
	from := t.Status
	t.Status = to
	t.raise(newStatusChanged(t, from, to, now))
	if from == StatusResolved && to == StatusOpen {
		t.raise(newReopened(t, now))
	}

	if err := e.save(ctx, t, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Ticket: t}, nil
}

// ElevateUrgency raises the ticket's urgency, rejecting any attempt to
// lower it.
func (e *Engine) ElevateUrgency(ctx context.Context, ticketID string, to Urgency) (Result, error) {
	t, bad, err := e.load(ctx, ticketID)
	if err != nil || t == nil {
		return bad, err
	}
	if urgencyRank[to] <= urgencyRank[t.Urgency] {
		return fail(errcode.InvalidPriority), nil
	}

	now := e.clock.Now()
	from := t.Urgency
	t.Urgency = to
	t.raise(newUrgencyElevated(t, from, to, now))

	if err := e.save(ctx, t, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Ticket: t}, nil
}

// CloseWithResolution closes a Resolved ticket, recording resolution notes.
func (e *Engine) CloseWithResolution(ctx context.Context, ticketID, notes string) (Result, error) {
	t, bad, err := e.load(ctx, ticketID)
	if err != nil || t == nil {
		return bad, err
	}
	if t.Status != StatusResolved {
		return fail(errcode.InvalidTransition), nil
	}
	if strings.TrimSpace(notes) == "" {
		return fail(errcode.InvalidTransition), nil
	}

	now := e.clock.Now()
	t.ResolutionNotes = notes
	t.Status = StatusClosed
	t.raise(newStatusChanged(t, StatusResolved, StatusClosed, now))
	t.raise(newClosed(t, now))

	if err := e.save(ctx, t, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Ticket: t}, nil
}

// Cancel cancels a non-terminal ticket.
func (e *Engine) Cancel(ctx context.Context, ticketID string) (Result, error) {
	t, bad, err := e.load(ctx, ticketID)
	if err != nil || t == nil {
		return bad, err
	}
	if t.Status.IsTerminal() {
		return fail(errcode.CannotCancelTerminal), nil
	}

	now := e.clock.Now()
	from := t.Status
	t.Status = StatusCancelled
	t.raise(newStatusChanged(t, from, StatusCancelled, now))

	if err := e.save(ctx, t, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Ticket: t}, nil
}

// MarkSyncFailed records a failed upstream sync attempt without touching
// Status.
func (e *Engine) MarkSyncFailed(ctx context.Context, ticketID string) (Result, error) {
	t, bad, err := e.load(ctx, ticketID)
	if err != nil || t == nil {
		return bad, err
	}

	now := e.clock.Now()
	t.SyncStatus = SyncFailed
	if err := e.save(ctx, t, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Ticket: t}, nil
}

// SyncWithUpstream creates the ticket upstream and records the returned id
// and protocol atomically. Once set, UpstreamID is immutable (spec.md §3
// invariant) — a second call on an already-synced ticket is a no-op
// success.
func (e *Engine) SyncWithUpstream(ctx context.Context, ticketID string) (Result, error) {
	t, bad, err := e.load(ctx, ticketID)
	if err != nil || t == nil {
		return bad, err
	}
	if t.UpstreamID != "" {
		return Result{OK: true, Ticket: t}, nil
	}

	upstreamID, protocol, syncErr := e.upstream.CreateTicket(ctx, t)
	now := e.clock.Now()
	if syncErr != nil {
		t.SyncStatus = SyncFailed
		if err := e.save(ctx, t, now); err != nil {
			return Result{}, err
		}
		return fail(errcode.UpstreamUnavailable), nil
	}

	t.UpstreamID = upstreamID
	t.UpstreamProtocol = protocol
	t.SyncStatus = SyncSynced
	t.raise(newSyncedWithUpstream(t, now))

	if err := e.save(ctx, t, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Ticket: t}, nil
}
