package store

import (
	"context"
	"testing"
	"time"

	"github.com/gustsr/sentinela/integration"
)

func TestIntegrationRepositorySaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewIntegrationRepository(db)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	req := &integration.Request{
		ID:          "int-1",
		Type:        integration.TypeTicketSync,
		Priority:    integration.PriorityHigh,
		Status:      integration.StatusPending,
		Payload:     map[string]any{"ticket_id": "ticket-1"},
		Metadata:    map[string]string{"source": "chat"},
		MaxRetries:  integration.DefaultMaxRetries,
		ScheduledAt: now,
		CreatedAt:   now,
		Attempts: []integration.Attempt{
			{AttemptedAt: now, Success: false, Error: "upstream_unavailable"},
		},
	}

	if err := repo.Save(ctx, req); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := repo.Get(ctx, "int-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected integration request to be found")
	}
	if got.Status != integration.StatusPending || got.Priority != integration.PriorityHigh {
		t.Fatalf("status/priority mismatch: %+v", got)
	}
	if got.Payload["ticket_id"] != "ticket-1" {
		t.Fatalf("payload lost: %+v", got.Payload)
	}
	if len(got.Attempts) != 1 || got.Attempts[0].Error != "upstream_unavailable" {
		t.Fatalf("attempts lost: %+v", got.Attempts)
	}
}

func TestIntegrationRepositoryFindByStatus(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewIntegrationRepository(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	pending := &integration.Request{ID: "int-pending", Type: integration.TypeUserVerification, Priority: integration.PriorityNormal, Status: integration.StatusPending, MaxRetries: 3, CreatedAt: now}
	done := &integration.Request{ID: "int-done", Type: integration.TypeUserVerification, Priority: integration.PriorityNormal, Status: integration.StatusCompleted, MaxRetries: 3, CreatedAt: now}
	if err := repo.Save(ctx, pending); err != nil {
		t.Fatalf("save pending: %v", err)
	}
	if err := repo.Save(ctx, done); err != nil {
		t.Fatalf("save done: %v", err)
	}

	found, err := repo.FindByStatus(ctx, integration.StatusPending, 10)
	if err != nil {
		t.Fatalf("find by status: %v", err)
	}
	if len(found) != 1 || found[0].ID != "int-pending" {
		t.Fatalf("expected exactly the pending request, got %+v", found)
	}
}
