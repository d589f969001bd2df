package store

import (
	"context"
	"testing"
	"time"

	"github.com/gustsr/sentinela/conversation"
)

func TestConversationRepositorySaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewConversationRepository(db)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &conversation.Conversation{
		ID:       "conv-1",
		UserID:   "user-1",
		Username: "alice",
		State:    conversation.StateDescriptionInput,
		Form: conversation.FormData{
			Category: "connectivity",
			Game:     "valorant",
			Timing:   conversation.TimingNow,
		},
		IsActive:     true,
		CreatedAt:    now,
		LastActivity: now,
	}

	if err := repo.Save(ctx, c); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := repo.Get(ctx, "conv-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected conversation to be found")
	}
	if got.State != conversation.StateDescriptionInput {
		t.Fatalf("state mismatch: got %v", got.State)
	}
	if got.Form.Category != "connectivity" || got.Form.Timing != conversation.TimingNow {
		t.Fatalf("form data lost: %+v", got.Form)
	}
}

func TestConversationRepositoryFindActiveByUser(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewConversationRepository(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	active := &conversation.Conversation{ID: "conv-active", UserID: "u1", State: conversation.StateGameSelection, IsActive: true, CreatedAt: now, LastActivity: now}
	done := &conversation.Conversation{ID: "conv-done", UserID: "u1", State: conversation.StateCompleted, IsActive: false, CreatedAt: now, LastActivity: now}
	if err := repo.Save(ctx, active); err != nil {
		t.Fatalf("save active: %v", err)
	}
	if err := repo.Save(ctx, done); err != nil {
		t.Fatalf("save done: %v", err)
	}

	got, ok, err := repo.FindActiveByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("find active by user: %v", err)
	}
	if !ok || got.ID != "conv-active" {
		t.Fatalf("expected the active conversation, got %+v ok=%v", got, ok)
	}
}
