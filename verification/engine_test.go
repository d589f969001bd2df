package verification

import (
	"context"
	"testing"
	"time"

	"github.com/gustsr/sentinela/clockwork"
	"github.com/gustsr/sentinela/cpf"
	"github.com/gustsr/sentinela/errcode"
	"github.com/gustsr/sentinela/user"
)

type fakeRepo struct {
	byID map[string]*Request
}

func newFakeRepo() *fakeRepo { return &fakeRepo{byID: map[string]*Request{}} }

func (f *fakeRepo) Save(_ context.Context, v *Request) error {
	cp := *v
	f.byID[v.ID] = &cp
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (*Request, bool, error) {
	v, ok := f.byID[id]
	if !ok {
		return nil, false, nil
	}
	cp := *v
	return &cp, true, nil
}

func (f *fakeRepo) FindPendingByUser(_ context.Context, userID string) (*Request, bool, error) {
	for _, v := range f.byID {
		if v.UserID == userID && !v.Status.IsTerminal() {
			cp := *v
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeRepo) FindExpiring(_ context.Context, before time.Time, limit int) ([]*Request, error) {
	var out []*Request
	for _, v := range f.byID {
		if v.Status.IsTerminal() {
			continue
		}
		if v.ExpiresAt.Before(before) || v.ExpiresAt.Equal(before) {
			cp := *v
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) FindByCPFHash(context.Context, string) ([]*Request, error) { return nil, nil }

func (f *fakeRepo) CountAttemptsSince(_ context.Context, userID string, since time.Time) (int, error) {
	count := 0
	for _, v := range f.byID {
		if v.UserID != userID {
			continue
		}
		for _, a := range v.Attempts {
			if !a.AttemptedAt.Before(since) {
				count++
			}
		}
	}
	return count, nil
}

type fakeUpstream struct {
	records map[string]*ClientRecord
}

func (f *fakeUpstream) VerifyClientByCPF(_ context.Context, digits string) (*ClientRecord, bool, error) {
	r, ok := f.records[digits]
	if !ok {
		return nil, false, nil
	}
	return r, true, nil
}

func newEngine(t *testing.T, upstream *fakeUpstream) (*Engine, *fakeRepo, *clockwork.Fake) {
	t.Helper()
	repo := newFakeRepo()
	clock := clockwork.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), "ver")
	cfg := DefaultConfig()
	return NewEngine(repo, upstream, nil, nil, clock, clock, cfg), repo, clock
}

type fakeUserRepo struct {
	byCPFHash map[string][]*user.User
}

func (f *fakeUserRepo) Save(context.Context, *user.User) error { return nil }

func (f *fakeUserRepo) GetByID(context.Context, string) (*user.User, bool, error) {
	return nil, false, nil
}

func (f *fakeUserRepo) FindByCPFHash(_ context.Context, hash string) ([]*user.User, error) {
	return f.byCPFHash[hash], nil
}

// newEngineWithDuplicates builds an Engine whose DuplicateService is backed
// by a real fakeUserRepo holding existingUserID under the CPF being
// submitted, so SubmitCPF's duplicate-check branch actually reports a
// conflict instead of always taking the nil-DuplicateService shortcut.
func newEngineWithDuplicates(t *testing.T, upstream *fakeUpstream, submittedCPF, existingUserID string) (*Engine, *fakeRepo, *clockwork.Fake) {
	t.Helper()
	parsed, err := cpf.Parse(submittedCPF)
	if err != nil {
		t.Fatalf("parse cpf: %v", err)
	}
	users := &fakeUserRepo{byCPFHash: map[string][]*user.User{
		parsed.Hash(duplicateSalt): {{ID: existingUserID}},
	}}
	duplicates := NewDuplicateService(users)

	repo := newFakeRepo()
	clock := clockwork.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), "ver")
	cfg := DefaultConfig()
	return NewEngine(repo, upstream, duplicates, nil, clock, clock, cfg), repo, clock
}

const validCPF = "52998224725"

func TestStartVerificationRejectsSecondConcurrentRequest(t *testing.T) {
	e, _, _ := newEngine(t, &fakeUpstream{records: map[string]*ClientRecord{}})
	ctx := context.Background()

	first, err := e.StartVerification(ctx, "user-1", "alice", TypeAutoCheckup, "signup")
	if err != nil || !first.OK {
		t.Fatalf("first start: ok=%v err=%v", first.OK, err)
	}

	second, err := e.StartVerification(ctx, "user-1", "alice", TypeAutoCheckup, "signup")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if second.OK || second.Code != errcode.VerificationAlreadyPending {
		t.Fatalf("expected VerificationAlreadyPending, got ok=%v code=%v", second.OK, second.Code)
	}
}

func TestSubmitCPFHappyPath(t *testing.T) {
	upstream := &fakeUpstream{records: map[string]*ClientRecord{
		validCPF: {Name: "Alice", ServiceName: "fibra-100", ServiceStatus: "Habilitado", ServiceID: "svc-1"},
	}}
	e, _, _ := newEngine(t, upstream)
	ctx := context.Background()

	start, err := e.StartVerification(ctx, "user-1", "alice", TypeAutoCheckup, "signup")
	if err != nil || !start.OK {
		t.Fatalf("start: ok=%v err=%v", start.OK, err)
	}

	res, err := e.SubmitCPF(ctx, start.Request.ID, validCPF)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected success, got code=%v", res.Code)
	}
	if res.Request.Status != StatusCompleted {
		t.Fatalf("expected Completed, got %v", res.Request.Status)
	}
	if res.Request.Upstream == nil || res.Request.Upstream.ServiceID != "svc-1" {
		t.Fatalf("expected upstream snapshot to be recorded")
	}
}

func TestSubmitCPFExhaustsAttemptsAndFails(t *testing.T) {
	upstream := &fakeUpstream{records: map[string]*ClientRecord{}}
	e, _, _ := newEngine(t, upstream)
	ctx := context.Background()

	start, _ := e.StartVerification(ctx, "user-1", "alice", TypeAutoCheckup, "signup")

	var last Result
	for i := 0; i < MaxAttempts; i++ {
		res, err := e.SubmitCPF(ctx, start.Request.ID, validCPF)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		last = res
	}

	if last.OK {
		t.Fatalf("expected final attempt to fail (cpf not found upstream)")
	}

	stored, found, err := e.repo.Get(ctx, start.Request.ID)
	if err != nil || !found {
		t.Fatalf("expected stored request: found=%v err=%v", found, err)
	}
	if stored.Status != StatusFailed {
		t.Fatalf("expected Failed after exhausting attempts, got %v", stored.Status)
	}
}

func TestSubmitCPFRejectsInvalidFormat(t *testing.T) {
	e, _, _ := newEngine(t, &fakeUpstream{records: map[string]*ClientRecord{}})
	ctx := context.Background()

	start, _ := e.StartVerification(ctx, "user-1", "alice", TypeAutoCheckup, "signup")
	res, err := e.SubmitCPF(ctx, start.Request.ID, "000.000.000-00")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.OK || res.Code != errcode.InvalidCPFFormat {
		t.Fatalf("expected InvalidCPFFormat, got ok=%v code=%v", res.OK, res.Code)
	}
}

func TestExpireSweepExpiresPastDueRequests(t *testing.T) {
	e, _, clock := newEngine(t, &fakeUpstream{records: map[string]*ClientRecord{}})
	ctx := context.Background()

	start, _ := e.StartVerification(ctx, "user-1", "alice", TypeAutoCheckup, "signup")
	clock.Advance(DefaultExpiry + time.Hour)

	n, err := e.ExpireSweep(ctx, 10)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired, got %d", n)
	}

	stored, _, _ := e.repo.Get(ctx, start.Request.ID)
	if stored.Status != StatusExpired {
		t.Fatalf("expected Expired, got %v", stored.Status)
	}
}

// TestSubmitCPFDetectsDuplicateConflict mirrors spec.md §8 seed Scenario
// 3: user 200 already holds CPF X; user 201 submits X and must be refused
// with cpf_duplicate, with the attempt recorded and the verification left
// Pending (not silently advanced to the upstream lookup), even though a
// single conflicting user only classifies as RiskLow, not RiskHigh.
func TestSubmitCPFDetectsDuplicateConflict(t *testing.T) {
	upstream := &fakeUpstream{records: map[string]*ClientRecord{
		validCPF: {Name: "Alice", ServiceName: "fibra-100", ServiceStatus: "Habilitado", ServiceID: "svc-1"},
	}}
	e, repo, _ := newEngineWithDuplicates(t, upstream, validCPF, "user-200")
	ctx := context.Background()

	start, err := e.StartVerification(ctx, "user-201", "bob", TypeAutoCheckup, "signup")
	if err != nil || !start.OK {
		t.Fatalf("start: ok=%v err=%v", start.OK, err)
	}

	res, err := e.SubmitCPF(ctx, start.Request.ID, validCPF)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.OK || res.Code != errcode.CPFDuplicate {
		t.Fatalf("expected CPFDuplicate, got ok=%v code=%v", res.OK, res.Code)
	}

	stored, found, err := repo.Get(ctx, start.Request.ID)
	if err != nil || !found {
		t.Fatalf("expected stored request: found=%v err=%v", found, err)
	}
	if stored.Status != StatusPending {
		t.Fatalf("expected verification to remain Pending, got %v", stored.Status)
	}
	if len(stored.Attempts) != 1 || stored.Attempts[0].FailureReason != "cpf_duplicate_conflict" {
		t.Fatalf("expected 1 failed attempt reason cpf_duplicate_conflict, got %+v", stored.Attempts)
	}
	if stored.Attempts[0].Success {
		t.Fatalf("duplicate attempt must not be recorded as success")
	}
}

func TestCancelVerificationRejectsTerminal(t *testing.T) {
	e, _, _ := newEngine(t, &fakeUpstream{records: map[string]*ClientRecord{}})
	ctx := context.Background()

	start, _ := e.StartVerification(ctx, "user-1", "alice", TypeAutoCheckup, "signup")
	cancelled, err := e.CancelVerification(ctx, start.Request.ID, "user_requested")
	if err != nil || !cancelled.OK {
		t.Fatalf("first cancel: ok=%v err=%v", cancelled.OK, err)
	}

	again, err := e.CancelVerification(ctx, start.Request.ID, "user_requested")
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if again.OK || again.Code != errcode.CannotCancelTerminal {
		t.Fatalf("expected CannotCancelTerminal, got ok=%v code=%v", again.OK, again.Code)
	}
}
