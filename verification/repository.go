package verification

import (
	"context"
	"time"
)

// Repository is the persistence contract the verification engine needs.
// The concrete implementation lives in package store.
type Repository interface {
	Save(ctx context.Context, v *Request) error
	Get(ctx context.Context, id string) (*Request, bool, error)
	// FindPendingByUser returns the caller's current Pending/InProgress
	// request, if any. It always takes the typed user id string minted by
	// clockwork.IDGen — there is no overload taking a raw integer
	// (spec.md §9's resolved Open Question).
	FindPendingByUser(ctx context.Context, userID string) (*Request, bool, error)
	FindExpiring(ctx context.Context, before time.Time, limit int) ([]*Request, error)
	FindByCPFHash(ctx context.Context, hash string) ([]*Request, error)
	// CountAttemptsSince counts attempt-log rows for userID with
	// AttemptedAt >= since, backing the per-user 24h rate limit.
	CountAttemptsSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// ClientRecord is the subset of an upstream client record the verification
// engine reads.
type ClientRecord struct {
	Name          string
	ServiceName   string
	ServiceStatus string
	ServiceID     string
}

// UpstreamLookup is the single upstream capability SubmitCPF needs.
// Satisfied structurally by upstream.Client.
type UpstreamLookup interface {
	VerifyClientByCPF(ctx context.Context, cpfDigits string) (*ClientRecord, bool, error)
}
