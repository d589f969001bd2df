package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gustsr/sentinela/clockwork"
	"github.com/gustsr/sentinela/domainevent"
	"github.com/gustsr/sentinela/errcode"
	"github.com/gustsr/sentinela/ticket"
)

// Engine implements the conversation operations of spec.md §4.4.
type Engine struct {
	repo    Repository
	tickets ticket.Repository
	bus     *domainevent.Bus
	clock   clockwork.Clock
	ids     clockwork.IDGen
}

// NewEngine builds a conversation Engine.
func NewEngine(repo Repository, tickets ticket.Repository, bus *domainevent.Bus, clock clockwork.Clock, ids clockwork.IDGen) *Engine {
	return &Engine{repo: repo, tickets: tickets, bus: bus, clock: clock, ids: ids}
}

// Result is the uniform outcome every engine operation returns.
type Result struct {
	OK           bool
	Code         errcode.Code
	Conversation *Conversation
}

func fail(code errcode.Code) Result { return Result{OK: false, Code: code} }

func (e *Engine) publish(ctx context.Context, c *Conversation) {
	events := c.PendingEvents()
	if len(events) == 0 {
		return
	}
	c.ClearPendingEvents()
	if e.bus == nil {
		return
	}
	e.bus.PublishMany(ctx, events)
}

func (e *Engine) save(ctx context.Context, c *Conversation, now time.Time) error {
	c.LastActivity = now
	if err := e.repo.Save(ctx, c); err != nil {
		return fmt.Errorf("conversation: save: %w", err)
	}
	e.publish(ctx, c)
	return nil
}

func (e *Engine) load(ctx context.Context, id string) (*Conversation, Result, error) {
	c, found, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, Result{}, fmt.Errorf("conversation: get: %w", err)
	}
	if !found || !c.IsActive {
		return nil, fail(errcode.ConversationStepMismatch), nil
	}
	return c, Result{}, nil
}

// advance validates that the conversation is currently at `from` before
// moving it to `to`, recording a StepCompleted event for `from`.
func (e *Engine) advance(c *Conversation, from, to State, now time.Time) bool {
	if c.State != from {
		return false
	}
	c.raise(newStepCompleted(c, from, now))
	c.State = to
	return true
}

// StartConversation begins a new wizard for userID, rejecting a second
// concurrent conversation.
func (e *Engine) StartConversation(ctx context.Context, userID, username string) (Result, error) {
	existing, found, err := e.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("conversation: find active: %w", err)
	}
	if found && existing.IsActive {
		return fail(errcode.ConversationAlreadyActive), nil
	}

	now := e.clock.Now()
	c := &Conversation{
		ID:           e.ids.NewID(),
		UserID:       userID,
		Username:     username,
		State:        StateCategorySelection,
		IsActive:     true,
		CreatedAt:    now,
		LastActivity: now,
	}
	c.raise(newStarted(c, now))

	if err := e.save(ctx, c, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Conversation: c}, nil
}

// SelectCategory records the support category and advances to game
// selection.
func (e *Engine) SelectCategory(ctx context.Context, conversationID, category string) (Result, error) {
	c, bad, err := e.load(ctx, conversationID)
	if err != nil || c == nil {
		return bad, err
	}
	now := e.clock.Now()
	if !e.advance(c, StateCategorySelection, StateGameSelection, now) {
		return fail(errcode.ConversationStepMismatch), nil
	}
	c.Form.Category = category

	if err := e.save(ctx, c, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Conversation: c}, nil
}

// SelectGame records the affected game and advances to timing selection.
func (e *Engine) SelectGame(ctx context.Context, conversationID string, game GameTitle) (Result, error) {
	c, bad, err := e.load(ctx, conversationID)
	if err != nil || c == nil {
		return bad, err
	}
	now := e.clock.Now()
	if !e.advance(c, StateGameSelection, StateTimingSelection, now) {
		return fail(errcode.ConversationStepMismatch), nil
	}
	c.Form.Game = game

	if err := e.save(ctx, c, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Conversation: c}, nil
}

// SelectTiming records when the problem started and advances to
// description input.
func (e *Engine) SelectTiming(ctx context.Context, conversationID string, timing ProblemTiming) (Result, error) {
	c, bad, err := e.load(ctx, conversationID)
	if err != nil || c == nil {
		return bad, err
	}
	now := e.clock.Now()
	if !e.advance(c, StateTimingSelection, StateDescriptionInput, now) {
		return fail(errcode.ConversationStepMismatch), nil
	}
	c.Form.Timing = timing

	if err := e.save(ctx, c, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Conversation: c}, nil
}

// SetDescription records the problem description, requiring trimmed
// length >= 10, and advances to the optional-attachments step.
func (e *Engine) SetDescription(ctx context.Context, conversationID, description string) (Result, error) {
	c, bad, err := e.load(ctx, conversationID)
	if err != nil || c == nil {
		return bad, err
	}
	if len(strings.TrimSpace(description)) < MinDescriptionLength {
		return fail(errcode.CannotAttempt), nil
	}

	now := e.clock.Now()
	if !e.advance(c, StateDescriptionInput, StateAttachmentsOptional, now) {
		return fail(errcode.ConversationStepMismatch), nil
	}
	c.Form.Description = strings.TrimSpace(description)

	if err := e.save(ctx, c, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Conversation: c}, nil
}

// AddAttachment appends an attachment while still in the
// AttachmentsOptional step, bounded at MaxAttachments.
func (e *Engine) AddAttachment(ctx context.Context, conversationID, attachmentRef string) (Result, error) {
	c, bad, err := e.load(ctx, conversationID)
	if err != nil || c == nil {
		return bad, err
	}
	if c.State != StateAttachmentsOptional {
		return fail(errcode.ConversationStepMismatch), nil
	}
	if len(c.Form.Attachments) >= MaxAttachments {
		return fail(errcode.BulkLimitExceeded), nil
	}

	now := e.clock.Now()
	c.Form.Attachments = append(c.Form.Attachments, attachmentRef)

	if err := e.save(ctx, c, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Conversation: c}, nil
}

// SkipAttachments advances directly from AttachmentsOptional to
// Confirmation.
func (e *Engine) SkipAttachments(ctx context.Context, conversationID string) (Result, error) {
	return e.ProceedToConfirmation(ctx, conversationID)
}

// ProceedToConfirmation advances from AttachmentsOptional to Confirmation.
func (e *Engine) ProceedToConfirmation(ctx context.Context, conversationID string) (Result, error) {
	c, bad, err := e.load(ctx, conversationID)
	if err != nil || c == nil {
		return bad, err
	}
	now := e.clock.Now()
	if !e.advance(c, StateAttachmentsOptional, StateConfirmation, now) {
		return fail(errcode.ConversationStepMismatch), nil
	}

	if err := e.save(ctx, c, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Conversation: c}, nil
}

// deriveUrgency implements spec.md §4.4's urgency derivation rule.
func deriveUrgency(category string, timing ProblemTiming) ticket.Urgency {
	switch {
	case (timing == TimingNow || timing == TimingYesterday) && strings.EqualFold(category, "connectivity"):
		return ticket.UrgencyHigh
	case timing == TimingLongTime || timing == TimingAlways:
		return ticket.UrgencyLow
	default:
		return ticket.UrgencyNormal
	}
}

// ConfirmAndCreateTicket requires a complete form, creates the Ticket, and
// persists it before publishing TicketCreated/ConversationCompleted.
func (e *Engine) ConfirmAndCreateTicket(ctx context.Context, conversationID string) (Result, error) {
	c, bad, err := e.load(ctx, conversationID)
	if err != nil || c == nil {
		return bad, err
	}
	if c.State != StateConfirmation {
		return fail(errcode.ConversationStepMismatch), nil
	}
	if !c.Form.Complete() {
		return fail(errcode.ConversationStepMismatch), nil
	}

	now := e.clock.Now()
	urgency := deriveUrgency(c.Form.Category, c.Form.Timing)
	t := ticket.New(
		e.ids.NewID(),
		ticket.OwnerSnapshot{UserID: c.UserID, Username: c.Username},
		c.Form.Category,
		string(c.Form.Game),
		string(c.Form.Timing),
		c.Form.Description,
		urgency,
		now,
	)
	t.Attachments = append([]string(nil), c.Form.Attachments...)

	if err := e.tickets.Save(ctx, t); err != nil {
		return Result{}, fmt.Errorf("conversation: save ticket: %w", err)
	}
	ticketEvents := t.PendingEvents()
	t.ClearPendingEvents()

	c.TicketID = t.ID
	c.State = StateCompleted
	c.IsActive = false
	c.raise(newCompleted(c, now))

	if err := e.repo.Save(ctx, c); err != nil {
		return Result{}, fmt.Errorf("conversation: save completion: %w", err)
	}

	if e.bus != nil {
		e.bus.PublishMany(ctx, ticketEvents)
		e.bus.PublishMany(ctx, c.PendingEvents())
	}
	c.ClearPendingEvents()

	return Result{OK: true, Conversation: c}, nil
}

// CancelConversation cancels an active conversation.
func (e *Engine) CancelConversation(ctx context.Context, conversationID, reason string) (Result, error) {
	c, bad, err := e.load(ctx, conversationID)
	if err != nil || c == nil {
		return bad, err
	}

	now := e.clock.Now()
	c.State = StateCancelled
	c.IsActive = false
	c.raise(newCancelled(c, reason, now))

	if err := e.save(ctx, c, now); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Conversation: c}, nil
}

// TimeoutSweep cancels conversations idle past IdleTimeout.
func (e *Engine) TimeoutSweep(ctx context.Context, limit int) (int, error) {
	idle, err := e.repo.FindIdle(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("conversation: find idle: %w", err)
	}

	now := e.clock.Now()
	count := 0
	for _, c := range idle {
		if !c.IsActive || !c.IsIdle(now) {
			continue
		}
		c.State = StateCancelled
		c.IsActive = false
		c.raise(newCancelled(c, "timeout", now))
		c.raise(newTimedOut(c, now))
		if err := e.repo.Save(ctx, c); err != nil {
			return count, fmt.Errorf("conversation: save timeout: %w", err)
		}
		e.publish(ctx, c)
		count++
	}
	return count, nil
}
