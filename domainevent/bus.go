package domainevent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Handler processes a single event. Handlers are expected to be idempotent:
// the bus performs no retries and no persistence, and a caller may choose to
// Publish the same event more than once (e.g. during replay).
type Handler func(ctx context.Context, evt Event) error

// HandlerError records one subscriber's failure to process an event.
// Publish collects these rather than re-raising them, so a failing handler
// never prevents the others from running or aborts the publish.
type HandlerError struct {
	HandlerID string
	EventType string
	Err       error
}

func (e HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed on %s: %v", e.HandlerID, e.EventType, e.Err)
}

const (
	defaultFanOut        = 10
	defaultHandlerDeadline = 30 * time.Second
)

// Config tunes the bus's concurrency limits.
type Config struct {
	MaxConcurrentHandlers int           // default 10
	HandlerTimeout        time.Duration // default 30s
}

type registration struct {
	id      string
	handler Handler
}

// Bus is a typed publish/subscribe dispatcher. Subscriber tables are
// copy-on-write at publish time, so handlers may register concurrently
// with in-flight dispatch. The bus has no operation to remove a
// subscription.
type Bus struct {
	mu       sync.RWMutex
	byType   map[string][]registration
	global   []registration
	sem      *semaphore.Weighted
	deadline time.Duration
}

// New builds a Bus with the given config, defaulting MaxConcurrentHandlers
// to 10 and HandlerTimeout to 30s when zero.
func New(cfg Config) *Bus {
	fanOut := cfg.MaxConcurrentHandlers
	if fanOut <= 0 {
		fanOut = defaultFanOut
	}
	deadline := cfg.HandlerTimeout
	if deadline <= 0 {
		deadline = defaultHandlerDeadline
	}
	return &Bus{
		byType:   make(map[string][]registration),
		sem:      semaphore.NewWeighted(int64(fanOut)),
		deadline: deadline,
	}
}

// Subscribe registers h under id for events whose EventType() equals
// eventType. Subscribing the same id to the same type twice is a no-op.
func (b *Bus) Subscribe(eventType, id string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing := b.byType[eventType]
	for _, r := range existing {
		if r.id == id {
			return
		}
	}
	next := make([]registration, len(existing), len(existing)+1)
	copy(next, existing)
	next = append(next, registration{id: id, handler: h})
	b.byType[eventType] = next
}

// SubscribeAll registers h under id as a global subscriber, receiving every
// event regardless of type. Subscribing the same id twice is a no-op.
func (b *Bus) SubscribeAll(id string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.global {
		if r.id == id {
			return
		}
	}
	next := make([]registration, len(b.global), len(b.global)+1)
	copy(next, b.global)
	next = append(next, registration{id: id, handler: h})
	b.global = next
}

// HandlerCount returns how many distinct handlers are registered for
// eventType (per-type subscribers only, not globals).
func (b *Bus) HandlerCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byType[eventType])
}

// Publish dispatches evt to every per-type subscriber of evt.EventType() and
// every global subscriber, in parallel, bounded by the bus's fan-out
// semaphore. It awaits completion of all subscribers and returns their
// individual failures without aborting on any one of them. Cancelling ctx
// cancels remaining handler tasks, but already-started handlers run to
// their own per-handler deadline.
func (b *Bus) Publish(ctx context.Context, evt Event) []HandlerError {
	b.mu.RLock()
	typed := b.byType[evt.EventType()]
	global := b.global
	b.mu.RUnlock()

	total := len(typed) + len(global)
	if total == 0 {
		return nil
	}

	var mu sync.Mutex
	var errs []HandlerError

	g, gctx := errgroup.WithContext(ctx)
	dispatch := func(r registration) {
		g.Go(func() error {
			if err := b.sem.Acquire(gctx, 1); err != nil {
				mu.Lock()
				errs = append(errs, HandlerError{HandlerID: r.id, EventType: evt.EventType(), Err: err})
				mu.Unlock()
				return nil
			}
			defer b.sem.Release(1)

			hctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), b.deadline)
			defer cancel()

			if err := r.handler(hctx, evt); err != nil {
				mu.Lock()
				errs = append(errs, HandlerError{HandlerID: r.id, EventType: evt.EventType(), Err: err})
				mu.Unlock()
			}
			return nil
		})
	}

	for _, r := range typed {
		dispatch(r)
	}
	for _, r := range global {
		dispatch(r)
	}

	// errgroup.Go never returns a non-nil error above (failures are
	// collected into errs instead), so Wait only ever surfaces context
	// cancellation bookkeeping.
	_ = g.Wait()

	return errs
}

// PublishMany dispatches each event independently; ordering across events
// is not guaranteed. Per-event handler errors are concatenated in
// publish order.
func (b *Bus) PublishMany(ctx context.Context, events []Event) []HandlerError {
	var all []HandlerError
	for _, evt := range events {
		all = append(all, b.Publish(ctx, evt)...)
	}
	return all
}
