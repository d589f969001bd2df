package store

import (
	"context"
	"testing"
	"time"

	"github.com/gustsr/sentinela/ticket"
)

func TestTicketRepositorySaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewTicketRepository(db)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tk := &ticket.Ticket{
		ID:          "ticket-1",
		Owner:       ticket.OwnerSnapshot{UserID: "user-1", Username: "alice", CPFMasked: "529.***.***-25"},
		Category:    "connectivity",
		Game:        "valorant",
		Timing:      "now",
		Description: "Connection keeps dropping during matches",
		Urgency:     ticket.UrgencyHigh,
		Status:      ticket.StatusPending,
		Attachments: []string{"att-1", "att-2"},
		Messages: []ticket.Message{
			{At: now, Author: "alice", Body: "It keeps happening"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := repo.Save(ctx, tk); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := repo.Get(ctx, "ticket-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected ticket to be found")
	}
	if got.Status != ticket.StatusPending || got.Urgency != ticket.UrgencyHigh {
		t.Fatalf("status/urgency mismatch: %+v", got)
	}
	if len(got.Attachments) != 2 || got.Attachments[0] != "att-1" || got.Attachments[1] != "att-2" {
		t.Fatalf("attachment order lost: %+v", got.Attachments)
	}
	if len(got.Messages) != 1 || got.Messages[0].Body != "It keeps happening" {
		t.Fatalf("messages lost: %+v", got.Messages)
	}
	if len(got.PendingEvents()) != 0 {
		t.Fatalf("expected pending events cleared on load, got %d", len(got.PendingEvents()))
	}
}

func TestTicketRepositoryFindByStatus(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewTicketRepository(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	open := &ticket.Ticket{ID: "t-open", Owner: ticket.OwnerSnapshot{UserID: "u1"}, Status: ticket.StatusOpen, Urgency: ticket.UrgencyNormal, CreatedAt: now, UpdatedAt: now}
	pending := &ticket.Ticket{ID: "t-pending", Owner: ticket.OwnerSnapshot{UserID: "u2"}, Status: ticket.StatusPending, Urgency: ticket.UrgencyNormal, CreatedAt: now, UpdatedAt: now}
	if err := repo.Save(ctx, open); err != nil {
		t.Fatalf("save open: %v", err)
	}
	if err := repo.Save(ctx, pending); err != nil {
		t.Fatalf("save pending: %v", err)
	}

	found, err := repo.FindByStatus(ctx, ticket.StatusOpen)
	if err != nil {
		t.Fatalf("find by status: %v", err)
	}
	if len(found) != 1 || found[0].ID != "t-open" {
		t.Fatalf("expected exactly the open ticket, got %+v", found)
	}
}
