package store

import (
	"context"
	"testing"
	"time"

	"github.com/gustsr/sentinela/cpf"
	"github.com/gustsr/sentinela/user"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserRepositorySaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewUserRepository(db)

	c, err := cpf.Parse("529.982.247-25")
	if err != nil {
		t.Fatalf("parse cpf: %v", err)
	}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	u := user.New("user-1", "alice", c, "Alice Customer", &user.ServiceDescriptor{
		Name: "Fibra 500", Status: "habilitado", ID: "svc-9",
	}, now)

	if err := repo.Save(ctx, u); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := repo.GetByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected user to be found")
	}
	if !got.CPF.Equal(u.CPF) {
		t.Fatalf("cpf mismatch: got %v want %v", got.CPF, u.CPF)
	}
	if got.Status != user.StatusActive {
		t.Fatalf("status mismatch: got %v", got.Status)
	}
	if got.Service == nil || got.Service.Name != "Fibra 500" {
		t.Fatalf("service descriptor lost: %+v", got.Service)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at mismatch: got %v want %v", got.CreatedAt, now)
	}
}

func TestUserRepositoryFindByCPFHash(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewUserRepository(db)

	c, err := cpf.Parse("52998224725")
	if err != nil {
		t.Fatalf("parse cpf: %v", err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	u1 := user.New("user-1", "alice", c, "Alice Customer", nil, now)
	u2 := user.New("user-2", "alice-dup", c, "Alice Duplicate", nil, now)
	if err := repo.Save(ctx, u1); err != nil {
		t.Fatalf("save u1: %v", err)
	}
	if err := repo.Save(ctx, u2); err != nil {
		t.Fatalf("save u2: %v", err)
	}

	matches, err := repo.FindByCPFHash(ctx, u1.CPF.Hash(userHashSalt))
	if err != nil {
		t.Fatalf("find by cpf hash: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 users sharing the cpf hash, got %d", len(matches))
	}
}

func TestUserRepositoryGetByIDMissing(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewUserRepository(db)

	_, ok, err := repo.GetByID(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected no user to be found")
	}
}
