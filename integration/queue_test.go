package integration

import (
	"context"
	"testing"
	"time"
)

func TestQueuePopsHighestPriorityFirst(t *testing.T) {
	q := NewQueue()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	q.Push(&Request{ID: "low", Priority: PriorityLow, CreatedAt: base})
	q.Push(&Request{ID: "critical", Priority: PriorityCritical, CreatedAt: base.Add(time.Second)})
	q.Push(&Request{ID: "high", Priority: PriorityHigh, CreatedAt: base})

	ctx := context.Background()
	first, ok := q.Pop(ctx, time.Millisecond)
	if !ok || first.ID != "critical" {
		t.Fatalf("expected critical first, got %+v ok=%v", first, ok)
	}
	second, ok := q.Pop(ctx, time.Millisecond)
	if !ok || second.ID != "high" {
		t.Fatalf("expected high second, got %+v ok=%v", second, ok)
	}
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	q := NewQueue()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	q.Push(&Request{ID: "a", Priority: PriorityNormal, CreatedAt: base})
	q.Push(&Request{ID: "b", Priority: PriorityNormal, CreatedAt: base.Add(time.Second)})

	ctx := context.Background()
	first, _ := q.Pop(ctx, time.Millisecond)
	second, _ := q.Pop(ctx, time.Millisecond)

	if first.ID != "a" || second.ID != "b" {
		t.Fatalf("expected FIFO within priority tier, got %s then %s", first.ID, second.ID)
	}
}

func TestQueuePopTimesOutWhenEmpty(t *testing.T) {
	q := NewQueue()
	_, ok := q.Pop(context.Background(), 10*time.Millisecond)
	if ok {
		t.Fatalf("expected timeout on empty queue")
	}
}

func TestRateLimiterCapsWithinWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute, func() time.Time { return now })

	if !rl.CanMakeRequest() {
		t.Fatalf("expected budget available initially")
	}
	rl.Record()
	if !rl.CanMakeRequest() {
		t.Fatalf("expected budget available after 1 of 2")
	}
	rl.Record()
	if rl.CanMakeRequest() {
		t.Fatalf("expected budget exhausted after 2 of 2")
	}

	now = now.Add(time.Minute + time.Second)
	if !rl.CanMakeRequest() {
		t.Fatalf("expected budget to reopen once the window ages out")
	}
}
