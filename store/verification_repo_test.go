package store

import (
	"context"
	"testing"
	"time"

	"github.com/gustsr/sentinela/verification"
)

func TestVerificationRepositorySaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewVerificationRepository(db)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := &verification.Request{
		ID:           "verif-1",
		UserID:       "user-1",
		Username:     "alice",
		Type:         verification.TypeAutoCheckup,
		SourceAction: "chat_command",
		Status:       verification.StatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(verification.DefaultExpiry),
		Attempts: []verification.Attempt{
			{AttemptedAt: now, CPFProvided: "111.***.***-11", Success: false, FailureReason: "invalid_cpf_format"},
		},
	}

	if err := repo.Save(ctx, v); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := repo.Get(ctx, "verif-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected verification to be found")
	}
	if got.Status != verification.StatusPending {
		t.Fatalf("status mismatch: got %v", got.Status)
	}
	if len(got.Attempts) != 1 || got.Attempts[0].FailureReason != "invalid_cpf_format" {
		t.Fatalf("attempts lost: %+v", got.Attempts)
	}
	if !got.ExpiresAt.Equal(v.ExpiresAt) {
		t.Fatalf("expires_at mismatch: got %v want %v", got.ExpiresAt, v.ExpiresAt)
	}
	if len(got.PendingEvents()) != 0 {
		t.Fatalf("expected pending events cleared on load, got %d", len(got.PendingEvents()))
	}
}

func TestVerificationRepositoryFindPendingByUser(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewVerificationRepository(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	v := &verification.Request{
		ID: "verif-2", UserID: "user-2", Status: verification.StatusPending,
		CreatedAt: now, ExpiresAt: now.Add(verification.DefaultExpiry),
	}
	if err := repo.Save(ctx, v); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := repo.FindPendingByUser(ctx, "user-2")
	if err != nil {
		t.Fatalf("find pending by user: %v", err)
	}
	if !ok || got.ID != "verif-2" {
		t.Fatalf("expected the pending verification, got %+v ok=%v", got, ok)
	}

	_, ok, err = repo.FindPendingByUser(ctx, "no-such-user")
	if err != nil {
		t.Fatalf("find pending by user (miss): %v", err)
	}
	if ok {
		t.Fatal("expected no pending verification for unknown user")
	}
}

func TestVerificationRepositoryFindExpiring(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewVerificationRepository(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	expired := &verification.Request{ID: "v-expired", UserID: "u1", Status: verification.StatusPending, CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-24 * time.Hour)}
	fresh := &verification.Request{ID: "v-fresh", UserID: "u2", Status: verification.StatusPending, CreatedAt: now, ExpiresAt: now.Add(verification.DefaultExpiry)}
	if err := repo.Save(ctx, expired); err != nil {
		t.Fatalf("save expired: %v", err)
	}
	if err := repo.Save(ctx, fresh); err != nil {
		t.Fatalf("save fresh: %v", err)
	}

	found, err := repo.FindExpiring(ctx, now, 10)
	if err != nil {
		t.Fatalf("find expiring: %v", err)
	}
	if len(found) != 1 || found[0].ID != "v-expired" {
		t.Fatalf("expected exactly the expired verification, got %+v", found)
	}
}
