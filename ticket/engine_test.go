package ticket

import (
	"context"
	"testing"
	"time"

	"github.com/gustsr/sentinela/clockwork"
	"github.com/gustsr/sentinela/errcode"
)

type fakeRepo struct {
	byID map[string]*Ticket
}

func newFakeRepo() *fakeRepo { return &fakeRepo{byID: map[string]*Ticket{}} }

func (f *fakeRepo) Save(_ context.Context, t *Ticket) error {
	cp := *t
	f.byID[t.ID] = &cp
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (*Ticket, bool, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, false, nil
	}
	cp := *t
	return &cp, true, nil
}

func (f *fakeRepo) FindByUser(context.Context, string) ([]*Ticket, error)      { return nil, nil }
func (f *fakeRepo) FindByStatus(context.Context, Status) ([]*Ticket, error)    { return nil, nil }
func (f *fakeRepo) FindPendingSync(context.Context, int) ([]*Ticket, error)    { return nil, nil }

type fakeUpstream struct {
	fail bool
}

func (f *fakeUpstream) CreateTicket(context.Context, *Ticket) (string, string, error) {
	if f.fail {
		return "", "", context.DeadlineExceeded
	}
	return "up-123", "http", nil
}

func newEngine() (*Engine, *fakeRepo, *clockwork.Fake) {
	repo := newFakeRepo()
	clock := clockwork.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "tkt")
	return NewEngine(repo, &fakeUpstream{}, nil, clock), repo, clock
}

func seedTicket(repo *fakeRepo) *Ticket {
	t := New("t-1", OwnerSnapshot{UserID: "u-1", Username: "alice"}, "connectivity", "valorant", "now", "internet keeps dropping", UrgencyNormal, time.Now())
	t.ClearPendingEvents()
	repo.byID[t.ID] = t
	return t
}

func TestAssignFirstTimeMovesPendingToInProgress(t *testing.T) {
	e, repo, _ := newEngine()
	seedTicket(repo)

	res, err := e.Assign(context.Background(), "t-1", "agent-7")
	if err != nil || !res.OK {
		t.Fatalf("assign: ok=%v err=%v", res.OK, err)
	}
	if res.Ticket.Status != StatusInProgress {
		t.Fatalf("expected InProgress, got %v", res.Ticket.Status)
	}
	if res.Ticket.Assignee != "agent-7" {
		t.Fatalf("expected assignee recorded")
	}
}

func TestChangeStatusRejectsIllegalEdge(t *testing.T) {
	e, repo, _ := newEngine()
	seedTicket(repo)

	res, err := e.ChangeStatus(context.Background(), "t-1", StatusClosed)
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if res.OK || res.Code != errcode.InvalidTransition {
		t.Fatalf("expected InvalidTransition, got ok=%v code=%v", res.OK, res.Code)
	}
}

func TestCloseWithResolutionRequiresResolved(t *testing.T) {
	e, repo, _ := newEngine()
	seedTicket(repo)

	res, err := e.CloseWithResolution(context.Background(), "t-1", "fixed modem")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if res.OK || res.Code != errcode.InvalidTransition {
		t.Fatalf("expected close to be rejected before Resolved, got ok=%v", res.OK)
	}

	e.ChangeStatus(context.Background(), "t-1", StatusOpen)
	e.ChangeStatus(context.Background(), "t-1", StatusResolved)

	res, err = e.CloseWithResolution(context.Background(), "t-1", "fixed modem")
	if err != nil || !res.OK {
		t.Fatalf("expected close to succeed once Resolved, ok=%v err=%v", res.OK, err)
	}
	if res.Ticket.Status != StatusClosed {
		t.Fatalf("expected Closed, got %v", res.Ticket.Status)
	}
}

func TestCloseWithResolutionRequiresNonEmptyNotes(t *testing.T) {
	e, repo, _ := newEngine()
	seedTicket(repo)

	e.ChangeStatus(context.Background(), "t-1", StatusOpen)
	e.ChangeStatus(context.Background(), "t-1", StatusResolved)

	res, err := e.CloseWithResolution(context.Background(), "t-1", "   ")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if res.OK || res.Code != errcode.InvalidTransition {
		t.Fatalf("expected blank resolution notes to be rejected, got ok=%v code=%v", res.OK, res.Code)
	}

	stored, _, _ := repo.Get(context.Background(), "t-1")
	if stored.Status != StatusResolved {
		t.Fatalf("expected ticket to remain Resolved, got %v", stored.Status)
	}

	res, err = e.CloseWithResolution(context.Background(), "t-1", "fixed modem")
	if err != nil || !res.OK {
		t.Fatalf("expected close to succeed with real notes, ok=%v err=%v", res.OK, err)
	}
}

func TestElevateUrgencyRejectsDowngrade(t *testing.T) {
	e, repo, _ := newEngine()
	seedTicket(repo)
	e.ElevateUrgency(context.Background(), "t-1", UrgencyHigh)

	res, err := e.ElevateUrgency(context.Background(), "t-1", UrgencyLow)
	if err != nil {
		t.Fatalf("elevate: %v", err)
	}
	if res.OK {
		t.Fatalf("expected downgrade to be rejected")
	}
}

func TestSyncWithUpstreamIsImmutableOnceSet(t *testing.T) {
	e, repo, _ := newEngine()
	seedTicket(repo)

	first, err := e.SyncWithUpstream(context.Background(), "t-1")
	if err != nil || !first.OK || first.Ticket.UpstreamID != "up-123" {
		t.Fatalf("first sync: ok=%v err=%v id=%q", first.OK, err, first.Ticket.UpstreamID)
	}

	e.upstream = &fakeUpstream{fail: true}
	second, err := e.SyncWithUpstream(context.Background(), "t-1")
	if err != nil || !second.OK {
		t.Fatalf("second sync: ok=%v err=%v", second.OK, err)
	}
	if second.Ticket.UpstreamID != "up-123" {
		t.Fatalf("expected UpstreamID to remain immutable, got %q", second.Ticket.UpstreamID)
	}
}
