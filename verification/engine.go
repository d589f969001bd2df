package verification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gustsr/sentinela/clockwork"
	"github.com/gustsr/sentinela/cpf"
	"github.com/gustsr/sentinela/domainevent"
	"github.com/gustsr/sentinela/errcode"
)

// RateLimit bounds how many CPF submissions a single user may make within
// Window (spec.md §4.2: 5 attempts per 24h per user, independent of the
// per-request MaxAttempts cap).
type RateLimit struct {
	Max    int
	Window time.Duration
}

// DefaultRateLimit is the spec's 5-per-24h per-user limit.
var DefaultRateLimit = RateLimit{Max: 5, Window: 24 * time.Hour}

// Config bundles the engine's tunables so tests can shrink windows without
// touching the zero-value struct literal everywhere.
type Config struct {
	MaxAttempts int
	Expiry      time.Duration
	RateLimit   RateLimit
}

// DefaultConfig mirrors the spec's defaults.
func DefaultConfig() Config {
	return Config{MaxAttempts: MaxAttempts, Expiry: DefaultExpiry, RateLimit: DefaultRateLimit}
}

// Engine implements the verification operations of spec.md §4.2.
type Engine struct {
	repo       Repository
	upstream   UpstreamLookup
	duplicates *DuplicateService
	bus        *domainevent.Bus
	clock      clockwork.Clock
	ids        clockwork.IDGen
	cfg        Config
}

// NewEngine builds a verification Engine.
func NewEngine(repo Repository, upstream UpstreamLookup, duplicates *DuplicateService, bus *domainevent.Bus, clock clockwork.Clock, ids clockwork.IDGen, cfg Config) *Engine {
	return &Engine{repo: repo, upstream: upstream, duplicates: duplicates, bus: bus, clock: clock, ids: ids, cfg: cfg}
}

// Result is the uniform outcome every engine operation returns; the
// dispatcher translates it into its own Result envelope (spec.md §6).
type Result struct {
	OK      bool
	Code    errcode.Code
	Request *Request
}

func fail(code errcode.Code) Result { return Result{OK: false, Code: code} }

func (e *Engine) publish(ctx context.Context, v *Request) {
	events := v.PendingEvents()
	if len(events) == 0 {
		return
	}
	v.ClearPendingEvents()
	if e.bus == nil {
		return
	}
	e.bus.PublishMany(ctx, events)
}

// StartVerification creates a new Pending VerificationRequest for a user,
// rejecting a second concurrent request for the same user.
func (e *Engine) StartVerification(ctx context.Context, userID, username string, vt Type, sourceAction string) (Result, error) {
	existing, found, err := e.repo.FindPendingByUser(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("verification: find pending: %w", err)
	}
	if found && !existing.Status.IsTerminal() {
		return fail(errcode.VerificationAlreadyPending), nil
	}

	now := e.clock.Now()
	v := &Request{
		ID:           e.ids.NewID(),
		UserID:       userID,
		Username:     username,
		Type:         vt,
		SourceAction: sourceAction,
		Status:       StatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(e.cfg.Expiry),
	}
	v.raise(newStarted(v, now))

	if err := e.repo.Save(ctx, v); err != nil {
		return Result{}, fmt.Errorf("verification: save new request: %w", err)
	}
	e.publish(ctx, v)

	return Result{OK: true, Request: v}, nil
}

// SubmitCPF runs the full verification pipeline for one attempt: rate
// limit, format+checksum validation, attempt accounting, duplicate check,
// upstream lookup, and the servico_status "habilitado" gate.
func (e *Engine) SubmitCPF(ctx context.Context, verificationID, rawCPF string) (Result, error) {
	v, found, err := e.repo.Get(ctx, verificationID)
	if err != nil {
		return Result{}, fmt.Errorf("verification: get: %w", err)
	}
	if !found {
		return fail(errcode.NoPendingVerification), nil
	}
	if v.Status.IsTerminal() {
		return fail(errcode.CannotAttempt), nil
	}

	now := e.clock.Now()
	if v.IsExpired(now) {
		v.Status = StatusExpired
		v.raise(newExpired(v, now))
		if err := e.repo.Save(ctx, v); err != nil {
			return Result{}, fmt.Errorf("verification: save expiry: %w", err)
		}
		e.publish(ctx, v)
		return fail(errcode.CannotAttempt), nil
	}
	if v.AttemptsLeft() <= 0 {
		return fail(errcode.CannotAttempt), nil
	}

	since := now.Add(-e.cfg.RateLimit.Window)
	count, err := e.repo.CountAttemptsSince(ctx, v.UserID, since)
	if err != nil {
		return Result{}, fmt.Errorf("verification: count attempts: %w", err)
	}
	if count >= e.cfg.RateLimit.Max {
		return fail(errcode.RateLimited), nil
	}

	parsed, parseErr := cpf.Parse(rawCPF)
	if parseErr != nil {
		v.Attempts = append(v.Attempts, Attempt{AttemptedAt: now, CPFProvided: maskRaw(rawCPF), Success: false, FailureReason: "invalid_format"})
		v.raise(newAttemptMade(v, false, "invalid_format", now))
		return e.finishAttempt(ctx, v, errcode.InvalidCPFFormat)
	}

	if e.duplicates != nil {
		report, derr := e.duplicates.Check(ctx, parsed.Hash(duplicateSalt), v.UserID)
		if derr != nil {
			return Result{}, derr
		}
		if report.Risk != RiskNone {
			v.Attempts = append(v.Attempts, Attempt{AttemptedAt: now, CPFProvided: parsed.Masked(), Success: false, FailureReason: "cpf_duplicate_conflict"})
			v.raise(newAttemptMade(v, false, "cpf_duplicate_conflict", now))
			v.raise(newDuplicateDetected(v, parsed.Masked(), report.ConflictUsers, string(report.Risk), now))
			return e.finishAttempt(ctx, v, errcode.CPFDuplicate)
		}
	}

	record, exists, lookupErr := e.upstream.VerifyClientByCPF(ctx, parsed.Canonical())
	if lookupErr != nil {
		return Result{}, fmt.Errorf("verification: upstream lookup: %w", lookupErr)
	}
	if !exists {
		v.Attempts = append(v.Attempts, Attempt{AttemptedAt: now, CPFProvided: parsed.Masked(), Success: false, FailureReason: "cpf_not_found"})
		v.raise(newAttemptMade(v, false, "cpf_not_found", now))
		return e.finishAttempt(ctx, v, errcode.CPFNotFound)
	}

	if !strings.Contains(strings.ToLower(record.ServiceStatus), "habilitado") {
		v.Attempts = append(v.Attempts, Attempt{AttemptedAt: now, CPFProvided: parsed.Masked(), Success: false, FailureReason: "service_not_enabled"})
		v.raise(newAttemptMade(v, false, "service_not_enabled", now))
		return e.finishAttempt(ctx, v, errcode.CannotAttempt)
	}

	v.Attempts = append(v.Attempts, Attempt{AttemptedAt: now, CPFProvided: parsed.Masked(), Success: true})
	if err := v.CompleteSuccess(parsed, UpstreamSnapshot{
		ClientName:    record.Name,
		ServiceName:   record.ServiceName,
		ServiceStatus: record.ServiceStatus,
		ServiceID:     record.ServiceID,
	}, now); err != nil {
		return Result{}, fmt.Errorf("verification: complete success: %w", err)
	}
	v.raise(newAttemptMade(v, true, "", now))
	v.raise(newCompleted(v, now))

	if err := e.repo.Save(ctx, v); err != nil {
		return Result{}, fmt.Errorf("verification: save completion: %w", err)
	}
	e.publish(ctx, v)

	return Result{OK: true, Request: v}, nil
}

// finishAttempt persists a failed attempt, transitioning to Failed once
// MaxAttempts is exhausted, and returns the caller-facing code.
func (e *Engine) finishAttempt(ctx context.Context, v *Request, code errcode.Code) (Result, error) {
	now := e.clock.Now()
	if v.AttemptsLeft() <= 0 {
		v.Status = StatusFailed
		v.raise(newFailed(v, string(code), now))
	}
	if err := e.repo.Save(ctx, v); err != nil {
		return Result{}, fmt.Errorf("verification: save failed attempt: %w", err)
	}
	e.publish(ctx, v)
	return fail(code), nil
}

// CancelVerification cancels a non-terminal request.
func (e *Engine) CancelVerification(ctx context.Context, verificationID, reason string) (Result, error) {
	v, found, err := e.repo.Get(ctx, verificationID)
	if err != nil {
		return Result{}, fmt.Errorf("verification: get: %w", err)
	}
	if !found {
		return fail(errcode.NoPendingVerification), nil
	}
	if v.Status.IsTerminal() {
		return fail(errcode.CannotCancelTerminal), nil
	}

	now := e.clock.Now()
	v.Status = StatusCancelled
	v.raise(newCancelled(v, reason, now))

	if err := e.repo.Save(ctx, v); err != nil {
		return Result{}, fmt.Errorf("verification: save cancellation: %w", err)
	}
	e.publish(ctx, v)

	return Result{OK: true, Request: v}, nil
}

// ExpireSweep transitions every Pending/InProgress request whose ExpiresAt
// has passed into Expired. It is driven by a background ticker, mirroring
// the teacher's periodic-sweep pattern.
func (e *Engine) ExpireSweep(ctx context.Context, limit int) (int, error) {
	now := e.clock.Now()
	expiring, err := e.repo.FindExpiring(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("verification: find expiring: %w", err)
	}

	count := 0
	for _, v := range expiring {
		if v.Status.IsTerminal() {
			continue
		}
		v.Status = StatusExpired
		v.raise(newExpired(v, now))
		if err := e.repo.Save(ctx, v); err != nil {
			return count, fmt.Errorf("verification: save expiry sweep: %w", err)
		}
		e.publish(ctx, v)
		count++
	}
	return count, nil
}

// ResolveDuplicateStrategy is how an operator resolves a flagged CPF
// collision.
type ResolveDuplicateStrategy string

const (
	StrategyMerge        ResolveDuplicateStrategy = "merge"
	StrategyBlock        ResolveDuplicateStrategy = "block"
	StrategyManualReview ResolveDuplicateStrategy = "manual_review"
)

// ResolveDuplicate applies an operator decision to a duplicate-flagged
// verification. Merge marks the request Completed and emits Remapped
// naming demotedUserIDs; it neither changes those users' status nor
// repeats the upstream lookup. Block cancels it; ManualReview sets it
// InProgress for a human to revisit.
func (e *Engine) ResolveDuplicate(ctx context.Context, verificationID string, strategy ResolveDuplicateStrategy, demotedUserIDs []string) (Result, error) {
	v, found, err := e.repo.Get(ctx, verificationID)
	if err != nil {
		return Result{}, fmt.Errorf("verification: get: %w", err)
	}
	if !found {
		return fail(errcode.NoPendingVerification), nil
	}

	now := e.clock.Now()
	switch strategy {
	case StrategyMerge:
		v.Status = StatusCompleted
		v.CompletedAt = now
		v.raise(newRemapped(v.ID, v.UserID, demotedUserIDs, now))
		v.raise(newCompleted(v, now))
	case StrategyBlock:
		v.Status = StatusCancelled
		v.raise(newCancelled(v, "duplicate_blocked", now))
	case StrategyManualReview:
		v.Status = StatusInProgress
	default:
		return fail(errcode.InvalidVerificationType), nil
	}

	if err := e.repo.Save(ctx, v); err != nil {
		return Result{}, fmt.Errorf("verification: save duplicate resolution: %w", err)
	}
	e.publish(ctx, v)

	return Result{OK: true, Request: v}, nil
}

// duplicateSalt is the process-wide CPF-hash salt for duplicate lookups.
// TODO: source from configuration once the config package lands.
const duplicateSalt = "sentinela-cpf-duplicate-v1"

func maskRaw(raw string) string {
	if len(raw) <= 4 {
		return "****"
	}
	return "***" + raw[len(raw)-2:]
}
