package domainevent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubEvent struct {
	Base
}

func newStubEvent(kind string) stubEvent {
	return stubEvent{Base: NewBase(kind, time.Unix(0, 0))}
}

func TestPublishDispatchesToTypedAndGlobalSubscribers(t *testing.T) {
	bus := New(Config{})

	var typedHits, globalHits int32
	bus.Subscribe("Widget", "typed-1", func(ctx context.Context, evt Event) error {
		atomic.AddInt32(&typedHits, 1)
		return nil
	})
	bus.SubscribeAll("global-1", func(ctx context.Context, evt Event) error {
		atomic.AddInt32(&globalHits, 1)
		return nil
	})

	errs := bus.Publish(context.Background(), newStubEvent("Widget"))
	if len(errs) != 0 {
		t.Fatalf("unexpected handler errors: %v", errs)
	}
	if atomic.LoadInt32(&typedHits) != 1 {
		t.Fatalf("typed handler hits = %d, want 1", typedHits)
	}
	if atomic.LoadInt32(&globalHits) != 1 {
		t.Fatalf("global handler hits = %d, want 1", globalHits)
	}

	// A different event type should not reach the typed subscriber.
	bus.Publish(context.Background(), newStubEvent("Gadget"))
	if atomic.LoadInt32(&typedHits) != 1 {
		t.Fatalf("typed handler must not receive non-matching event types")
	}
	if atomic.LoadInt32(&globalHits) != 2 {
		t.Fatalf("global handler must receive every event")
	}
}

func TestPublishIsolatesHandlerFailures(t *testing.T) {
	bus := New(Config{})

	var ranOK bool
	var mu sync.Mutex

	bus.SubscribeAll("failing", func(ctx context.Context, evt Event) error {
		return errors.New("boom")
	})
	bus.SubscribeAll("ok", func(ctx context.Context, evt Event) error {
		mu.Lock()
		ranOK = true
		mu.Unlock()
		return nil
	})

	errs := bus.Publish(context.Background(), newStubEvent("Widget"))
	if len(errs) != 1 {
		t.Fatalf("expected exactly one collected handler error, got %d", len(errs))
	}
	mu.Lock()
	defer mu.Unlock()
	if !ranOK {
		t.Fatalf("a failing handler must not prevent other handlers from running")
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	bus := New(Config{})
	h := func(ctx context.Context, evt Event) error { return nil }

	bus.Subscribe("Widget", "dup", h)
	bus.Subscribe("Widget", "dup", h)

	if got := bus.HandlerCount("Widget"); got != 1 {
		t.Fatalf("HandlerCount = %d, want 1 after duplicate Subscribe", got)
	}
}

func TestPublishTwiceInvokesHandlerTwice(t *testing.T) {
	bus := New(Config{})
	var calls int32
	bus.SubscribeAll("counter", func(ctx context.Context, evt Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	evt := newStubEvent("Widget")
	bus.Publish(context.Background(), evt)
	bus.Publish(context.Background(), evt)

	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls = %d, want 2 — handlers must be invoked once per Publish call", calls)
	}
}

func TestPublishManyDispatchesEachEventIndependently(t *testing.T) {
	bus := New(Config{})
	var total int32
	bus.SubscribeAll("counter", func(ctx context.Context, evt Event) error {
		atomic.AddInt32(&total, 1)
		return nil
	})

	events := []Event{newStubEvent("A"), newStubEvent("B"), newStubEvent("C")}
	bus.PublishMany(context.Background(), events)

	if atomic.LoadInt32(&total) != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
}
