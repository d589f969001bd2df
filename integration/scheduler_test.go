package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gustsr/sentinela/clockwork"
)

type fakeIntegrationRepo struct {
	byID map[string]*Request
}

func newFakeIntegrationRepo() *fakeIntegrationRepo {
	return &fakeIntegrationRepo{byID: map[string]*Request{}}
}

func (f *fakeIntegrationRepo) Save(_ context.Context, r *Request) error {
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakeIntegrationRepo) Get(_ context.Context, id string) (*Request, bool, error) {
	r, ok := f.byID[id]
	return r, ok, nil
}

func (f *fakeIntegrationRepo) FindByStatus(context.Context, Status, int) ([]*Request, error) {
	return nil, nil
}
func (f *fakeIntegrationRepo) FindByType(context.Context, Type, int) ([]*Request, error) {
	return nil, nil
}

func newScheduler(executors map[Type]Executor) (*Scheduler, *fakeIntegrationRepo, *clockwork.Fake) {
	repo := newFakeIntegrationRepo()
	clock := clockwork.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "int")
	limiter := NewRateLimiter(100, time.Minute, clock.Now)
	breaker := NewBreaker("test")
	return NewScheduler(NewQueue(), limiter, breaker, repo, nil, clock, executors), repo, clock
}

func TestDispatchSucceeds(t *testing.T) {
	executors := map[Type]Executor{
		TypeTicketSync: func(context.Context, *Request) (map[string]any, error) {
			return map[string]any{"upstream_id": "up-1"}, nil
		},
	}
	s, repo, _ := newScheduler(executors)
	req := &Request{ID: "r-1", Type: TypeTicketSync, MaxRetries: 3}

	s.dispatch(context.Background(), req)

	stored, ok := repo.byID["r-1"]
	if !ok {
		t.Fatalf("expected request to be persisted")
	}
	if stored.Status != StatusCompleted {
		t.Fatalf("expected Completed, got %v", stored.Status)
	}
	if len(stored.Attempts) != 1 || !stored.Attempts[0].Success {
		t.Fatalf("expected one successful attempt recorded")
	}
}

func TestDispatchFailureReschedulesUntilRetriesExhausted(t *testing.T) {
	executors := map[Type]Executor{
		TypeTicketSync: func(context.Context, *Request) (map[string]any, error) {
			return nil, errors.New("upstream unavailable")
		},
	}
	s, repo, _ := newScheduler(executors)
	req := &Request{ID: "r-2", Type: TypeTicketSync, MaxRetries: 2}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.dispatch(ctx, req)
	stored := repo.byID["r-2"]
	if stored.Status != StatusScheduled {
		t.Fatalf("expected first failure to reschedule (Scheduled), got %v", stored.Status)
	}

	s.dispatch(ctx, stored)
	stored = repo.byID["r-2"]
	if stored.Status != StatusFailed {
		t.Fatalf("expected Failed once retries exhausted, got %v", stored.Status)
	}
}
