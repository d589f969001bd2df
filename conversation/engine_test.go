package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/gustsr/sentinela/clockwork"
	"github.com/gustsr/sentinela/errcode"
	"github.com/gustsr/sentinela/ticket"
)

type fakeConvRepo struct {
	byID map[string]*Conversation
}

func newFakeConvRepo() *fakeConvRepo { return &fakeConvRepo{byID: map[string]*Conversation{}} }

func (f *fakeConvRepo) Save(_ context.Context, c *Conversation) error {
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeConvRepo) Get(_ context.Context, id string) (*Conversation, bool, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

func (f *fakeConvRepo) FindActiveByUser(_ context.Context, userID string) (*Conversation, bool, error) {
	for _, c := range f.byID {
		if c.UserID == userID && c.IsActive {
			cp := *c
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeConvRepo) FindIdle(context.Context, int) ([]*Conversation, error) { return nil, nil }

type fakeTicketRepo struct {
	byID map[string]*ticket.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo { return &fakeTicketRepo{byID: map[string]*ticket.Ticket{}} }

func (f *fakeTicketRepo) Save(_ context.Context, t *ticket.Ticket) error {
	cp := *t
	f.byID[t.ID] = &cp
	return nil
}
func (f *fakeTicketRepo) Get(_ context.Context, id string) (*ticket.Ticket, bool, error) {
	t, ok := f.byID[id]
	return t, ok, nil
}
func (f *fakeTicketRepo) FindByUser(context.Context, string) ([]*ticket.Ticket, error) { return nil, nil }
func (f *fakeTicketRepo) FindByStatus(context.Context, ticket.Status) ([]*ticket.Ticket, error) {
	return nil, nil
}
func (f *fakeTicketRepo) FindPendingSync(context.Context, int) ([]*ticket.Ticket, error) {
	return nil, nil
}

func newEngine() (*Engine, *fakeConvRepo, *fakeTicketRepo) {
	repo := newFakeConvRepo()
	tickets := newFakeTicketRepo()
	clock := clockwork.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "conv")
	return NewEngine(repo, tickets, nil, clock, clock), repo, tickets
}

func TestConversationHappyPathCreatesTicket(t *testing.T) {
	e, _, tickets := newEngine()
	ctx := context.Background()

	start, err := e.StartConversation(ctx, "user-1", "alice")
	if err != nil || !start.OK {
		t.Fatalf("start: ok=%v err=%v", start.OK, err)
	}
	id := start.Conversation.ID

	if res, err := e.SelectCategory(ctx, id, "connectivity"); err != nil || !res.OK {
		t.Fatalf("select category: ok=%v err=%v", res.OK, err)
	}
	if res, err := e.SelectGame(ctx, id, "valorant"); err != nil || !res.OK {
		t.Fatalf("select game: ok=%v err=%v", res.OK, err)
	}
	if res, err := e.SelectTiming(ctx, id, TimingNow); err != nil || !res.OK {
		t.Fatalf("select timing: ok=%v err=%v", res.OK, err)
	}
	if res, err := e.SetDescription(ctx, id, "internet keeps dropping every few minutes"); err != nil || !res.OK {
		t.Fatalf("set description: ok=%v err=%v", res.OK, err)
	}
	if res, err := e.SkipAttachments(ctx, id); err != nil || !res.OK {
		t.Fatalf("skip attachments: ok=%v err=%v", res.OK, err)
	}

	final, err := e.ConfirmAndCreateTicket(ctx, id)
	if err != nil || !final.OK {
		t.Fatalf("confirm: ok=%v err=%v", final.OK, err)
	}
	if final.Conversation.State != StateCompleted {
		t.Fatalf("expected Completed, got %v", final.Conversation.State)
	}
	if final.Conversation.TicketID == "" {
		t.Fatalf("expected TicketID to be set")
	}

	tk, ok := tickets.byID[final.Conversation.TicketID]
	if !ok {
		t.Fatalf("expected ticket to be persisted")
	}
	if tk.Urgency != ticket.UrgencyHigh {
		t.Fatalf("expected High urgency for now+connectivity, got %v", tk.Urgency)
	}
}

func TestSetDescriptionRejectsTooShort(t *testing.T) {
	e, _, _ := newEngine()
	ctx := context.Background()

	start, _ := e.StartConversation(ctx, "user-1", "alice")
	id := start.Conversation.ID
	e.SelectCategory(ctx, id, "billing")
	e.SelectGame(ctx, id, "lol")
	e.SelectTiming(ctx, id, TimingLongTime)

	res, err := e.SetDescription(ctx, id, "too short")
	if err != nil {
		t.Fatalf("set description: %v", err)
	}
	if res.OK {
		t.Fatalf("expected rejection for description under 10 chars")
	}
}

func TestStepOutOfOrderIsRejected(t *testing.T) {
	e, _, _ := newEngine()
	ctx := context.Background()

	start, _ := e.StartConversation(ctx, "user-1", "alice")
	id := start.Conversation.ID

	res, err := e.SelectGame(ctx, id, "valorant")
	if err != nil {
		t.Fatalf("select game: %v", err)
	}
	if res.OK || res.Code != errcode.ConversationStepMismatch {
		t.Fatalf("expected ConversationStepMismatch, got ok=%v code=%v", res.OK, res.Code)
	}
}

func TestStartConversationRejectsSecondActive(t *testing.T) {
	e, _, _ := newEngine()
	ctx := context.Background()

	e.StartConversation(ctx, "user-1", "alice")
	second, err := e.StartConversation(ctx, "user-1", "alice")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if second.OK || second.Code != errcode.ConversationAlreadyActive {
		t.Fatalf("expected ConversationAlreadyActive, got ok=%v code=%v", second.OK, second.Code)
	}
}
