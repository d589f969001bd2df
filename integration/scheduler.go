package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gustsr/sentinela/clockwork"
	"github.com/gustsr/sentinela/domainevent"
)

var tracer = otel.Tracer("sentinela-integration")

// Executor invokes the upstream operation for one IntegrationRequest type.
// The composition root registers one Executor per Type, each wrapping the
// matching upstream.Client method.
type Executor func(ctx context.Context, req *Request) (map[string]any, error)

// PopTimeout bounds how long Queue.Pop blocks when empty, so the
// dispatcher loop can observe shutdown.
const PopTimeout = 2 * time.Second

// MaxBackoff caps the exponential retry delay (spec.md §4.6: min(2^n, 60)s).
const MaxBackoff = 60 * time.Second

// Scheduler is the single logical dispatcher worker of spec.md §4.6. Its
// rate limiter and breaker are process-wide singletons; Run may be invoked
// from multiple goroutines sharing one Scheduler to fan the queue out to N
// workers.
type Scheduler struct {
	queue     *Queue
	limiter   *RateLimiter
	breaker   *Breaker
	repo      Repository
	bus       *domainevent.Bus
	clock     clockwork.Clock
	executors map[Type]Executor
}

// NewScheduler builds a Scheduler.
func NewScheduler(queue *Queue, limiter *RateLimiter, breaker *Breaker, repo Repository, bus *domainevent.Bus, clock clockwork.Clock, executors map[Type]Executor) *Scheduler {
	return &Scheduler{queue: queue, limiter: limiter, breaker: breaker, repo: repo, bus: bus, clock: clock, executors: executors}
}

// Enqueue pushes a new request onto the queue and persists it Pending.
func (s *Scheduler) Enqueue(ctx context.Context, req *Request) error {
	req.Status = StatusPending
	if req.MaxRetries == 0 {
		req.MaxRetries = DefaultMaxRetries
	}
	if err := s.repo.Save(ctx, req); err != nil {
		return fmt.Errorf("integration: save enqueued request: %w", err)
	}
	s.queue.Push(req)
	return nil
}

func retryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxInterval = MaxBackoff
	b.RandomizationFactor = 0
	var d time.Duration
	for i := 0; i <= attempt; i++ {
		d = b.NextBackOff()
	}
	if d > MaxBackoff {
		d = MaxBackoff
	}
	return d
}

// Run drives the dispatcher loop described in spec.md §4.6 until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		req, ok := s.queue.Pop(ctx, PopTimeout)
		if !ok {
			continue
		}

		if s.breaker.IsOpen() {
			s.reschedule(ctx, req, DefaultProbeInterval)
			continue
		}

		s.dispatch(ctx, req)
	}
}

func (s *Scheduler) reschedule(ctx context.Context, req *Request, delay time.Duration) {
	now := s.clock.Now()
	req.Status = StatusScheduled
	req.ScheduledAt = now.Add(delay)
	if err := s.repo.Save(ctx, req); err != nil {
		return
	}
	go func(r *Request, d time.Duration) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			s.queue.Push(r)
		case <-ctx.Done():
		}
	}(req, delay)
}

func (s *Scheduler) dispatch(ctx context.Context, req *Request) {
	ctx, span := tracer.Start(ctx, "integration.dispatch "+string(req.Type), trace.WithAttributes(
		attribute.String("integration.request_id", req.ID),
		attribute.String("integration.type", string(req.Type)),
	))
	defer span.End()

	s.limiter.WaitForBudget(ctx.Done())
	s.limiter.Record()

	now := s.clock.Now()
	req.Status = StatusInProgress
	req.StartedAt = now

	executor, found := s.executors[req.Type]
	if !found {
		s.fail(ctx, req, "no executor registered for type")
		return
	}

	var dispatchErr error
	breakerErr := s.breaker.Execute(func() error {
		response, err := executor(ctx, req)
		if err != nil {
			dispatchErr = err
			return err
		}
		req.UpstreamResponse = response
		return nil
	})

	if breakerErr != nil || dispatchErr != nil {
		s.handleFailure(ctx, req, dispatchErr)
		return
	}

	s.succeed(ctx, req)
}

func (s *Scheduler) succeed(ctx context.Context, req *Request) {
	now := s.clock.Now()
	req.Status = StatusCompleted
	req.CompletedAt = now
	req.Attempts = append(req.Attempts, Attempt{AttemptedAt: now, Success: true})
	req.raise(newCompleted(req, now))

	if err := s.repo.Save(ctx, req); err != nil {
		return
	}
	s.publish(ctx, req)
}

func (s *Scheduler) handleFailure(ctx context.Context, req *Request, cause error) {
	now := s.clock.Now()
	reason := "dispatch failed"
	if cause != nil {
		reason = cause.Error()
	}
	req.Attempts = append(req.Attempts, Attempt{AttemptedAt: now, Success: false, Error: reason})

	if req.CanRetry() {
		delay := retryDelay(req.AttemptCount())
		s.reschedule(ctx, req, delay)
		return
	}

	s.fail(ctx, req, reason)
}

func (s *Scheduler) fail(ctx context.Context, req *Request, reason string) {
	now := s.clock.Now()
	req.Status = StatusFailed
	req.ErrorDetail = reason
	req.CompletedAt = now
	req.raise(newFailed(req, reason, now))

	if err := s.repo.Save(ctx, req); err != nil {
		return
	}
	s.publish(ctx, req)
}

func (s *Scheduler) publish(ctx context.Context, req *Request) {
	events := req.PendingEvents()
	if len(events) == 0 {
		return
	}
	req.ClearPendingEvents()
	if s.bus == nil {
		return
	}
	s.bus.PublishMany(ctx, events)
}
