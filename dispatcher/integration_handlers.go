package dispatcher

import (
	"context"
	"time"

	"github.com/gustsr/sentinela/clockwork"
	"github.com/gustsr/sentinela/errcode"
	"github.com/gustsr/sentinela/integration"
)

// BulkSyncLimit bounds BulkSyncTicketsToUpstream's ticket list (spec.md §7:
// bulk_limit_exceeded).
const BulkSyncLimit = 500

var validPriorities = map[string]integration.Priority{
	string(integration.PriorityCritical): integration.PriorityCritical,
	string(integration.PriorityHigh):     integration.PriorityHigh,
	string(integration.PriorityNormal):   integration.PriorityNormal,
	string(integration.PriorityLow):      integration.PriorityLow,
}

var validIntegrationTypes = map[string]integration.Type{
	string(integration.TypeTicketSync):       integration.TypeTicketSync,
	string(integration.TypeUserVerification): integration.TypeUserVerification,
	string(integration.TypeClientDataFetch):  integration.TypeClientDataFetch,
	string(integration.TypeBulkSync):         integration.TypeBulkSync,
	string(integration.TypeStatusUpdate):     integration.TypeStatusUpdate,
}

func parsePriority(raw string) (integration.Priority, bool) {
	if raw == "" {
		return integration.PriorityNormal, true
	}
	p, ok := validPriorities[raw]
	return p, ok
}

func registerIntegrationHandlers(r *Registry, scheduler *integration.Scheduler, repo integration.Repository, ids clockwork.IDGen, clock clockwork.Clock) {
	enqueue := func(ctx context.Context, t integration.Type, priority string, payload map[string]any, scheduledAt time.Time, metadata map[string]string, maxRetries int, timeout time.Duration) (Result, error) {
		p, ok := parsePriority(priority)
		if !ok {
			return Fail(errcode.InvalidPriority, messageFor(errcode.InvalidPriority)), nil
		}
		req := &integration.Request{
			ID:          ids.NewID(),
			Type:        t,
			Priority:    p,
			Payload:     payload,
			Metadata:    metadata,
			MaxRetries:  maxRetries,
			Timeout:     timeout,
			ScheduledAt: scheduledAt,
			CreatedAt:   clock.Now(),
		}
		if err := scheduler.Enqueue(ctx, req); err != nil {
			return Result{}, err
		}
		return Ok(msgIntegrationScheduled(req.ID), map[string]any{"integration_id": req.ID}), nil
	}

	r.Register(ScheduleHubSoftIntegration{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(ScheduleHubSoftIntegration)
		t, ok := validIntegrationTypes[cmd.IntegrationType]
		if !ok {
			return Fail(errcode.InvalidSyncType, messageFor(errcode.InvalidSyncType)), nil
		}
		timeout := time.Duration(cmd.TimeoutSeconds) * time.Second
		return enqueue(ctx, t, cmd.Priority, cmd.Payload, cmd.ScheduledAt, cmd.Metadata, cmd.MaxRetries, timeout)
	})

	r.Register(SyncTicketToUpstream{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(SyncTicketToUpstream)
		if cmd.TicketID == "" {
			return Fail(errcode.ScheduleError, messageFor(errcode.ScheduleError)), nil
		}
		payload := map[string]any{"ticket_id": cmd.TicketID}
		return enqueue(ctx, integration.TypeTicketSync, cmd.Priority, payload, time.Time{}, nil, integration.DefaultMaxRetries, 0)
	})

	r.Register(VerifyUserInUpstream{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(VerifyUserInUpstream)
		payload := map[string]any{"user_id": cmd.UserID, "cpf": cmd.CPF}
		return enqueue(ctx, integration.TypeUserVerification, cmd.Priority, payload, time.Time{}, nil, integration.DefaultMaxRetries, 0)
	})

	r.Register(FetchClientDataFromUpstream{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(FetchClientDataFromUpstream)
		payload := map[string]any{"cpf": cmd.CPF}
		return enqueue(ctx, integration.TypeClientDataFetch, cmd.Priority, payload, time.Time{}, nil, integration.DefaultMaxRetries, 0)
	})

	r.Register(UpdateTicketStatusInUpstream{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(UpdateTicketStatusInUpstream)
		if cmd.UpstreamID == "" {
			return Fail(errcode.MissingHubsoftID, messageFor(errcode.MissingHubsoftID)), nil
		}
		payload := map[string]any{"ticket_id": cmd.TicketID, "upstream_id": cmd.UpstreamID, "status": cmd.Status}
		return enqueue(ctx, integration.TypeStatusUpdate, cmd.Priority, payload, time.Time{}, nil, integration.DefaultMaxRetries, 0)
	})

	r.Register(BulkSyncTicketsToUpstream{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(BulkSyncTicketsToUpstream)
		if len(cmd.TicketIDs) == 0 {
			return Fail(errcode.EmptyTicketList, messageFor(errcode.EmptyTicketList)), nil
		}
		if len(cmd.TicketIDs) > BulkSyncLimit {
			return Fail(errcode.BulkLimitExceeded, messageFor(errcode.BulkLimitExceeded)), nil
		}
		batchSize := cmd.BatchSize
		if batchSize <= 0 {
			batchSize = 10
		}
		payload := map[string]any{
			"ticket_ids":        cmd.TicketIDs,
			"batch_size":        batchSize,
			"inter_batch_delay": cmd.InterBatchDelay.String(),
		}
		timeout := time.Duration(len(cmd.TicketIDs)) * time.Second
		return enqueue(ctx, integration.TypeBulkSync, cmd.Priority, payload, time.Time{}, nil, integration.DefaultMaxRetries, timeout)
	})

	r.Register(RetryFailedIntegrations{}, func(ctx context.Context, _ Command) (Result, error) {
		failed, err := repo.FindByStatus(ctx, integration.StatusFailed, 500)
		if err != nil {
			return Result{}, err
		}
		count := 0
		for _, req := range failed {
			if !req.CanRetry() {
				continue
			}
			req.Status = integration.StatusPending
			if err := scheduler.Enqueue(ctx, req); err != nil {
				return Result{}, err
			}
			count++
		}
		return Ok(msgRetryScheduled(count), map[string]any{"retried": count}), nil
	})

	r.Register(CancelIntegration{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(CancelIntegration)
		req, found, err := repo.Get(ctx, cmd.IntegrationID)
		if err != nil {
			return Result{}, err
		}
		if !found {
			return Fail(errcode.IntegrationNotFound, msgIntegrationNotFound()), nil
		}
		if req.Status.IsTerminal() {
			return Fail(errcode.CancelError, messageFor(errcode.CancelError)), nil
		}
		req.Status = integration.StatusCancelled
		if err := repo.Save(ctx, req); err != nil {
			return Result{}, err
		}
		return Ok(msgIntegrationCancelled(), nil), nil
	})

	r.Register(UpdateIntegrationPriority{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(UpdateIntegrationPriority)
		p, ok := parsePriority(cmd.Priority)
		if !ok {
			return Fail(errcode.InvalidPriority, messageFor(errcode.InvalidPriority)), nil
		}
		req, found, err := repo.Get(ctx, cmd.IntegrationID)
		if err != nil {
			return Result{}, err
		}
		if !found {
			return Fail(errcode.IntegrationNotFound, msgIntegrationNotFound()), nil
		}
		if req.Status.IsTerminal() {
			return Fail(errcode.ScheduleError, messageFor(errcode.ScheduleError)), nil
		}
		req.Priority = p
		if err := repo.Save(ctx, req); err != nil {
			return Result{}, err
		}
		return Ok(msgTicketUpdated(), nil), nil
	})

	r.Register(GetIntegrationStatus{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(GetIntegrationStatus)
		req, found, err := repo.Get(ctx, cmd.IntegrationID)
		if err != nil {
			return Result{}, err
		}
		if !found {
			return Fail(errcode.IntegrationNotFound, msgIntegrationNotFound()), nil
		}
		return Ok(msgTicketUpdated(), map[string]any{
			"status":   string(req.Status),
			"priority": string(req.Priority),
			"attempts": req.AttemptCount(),
		}), nil
	})
}
