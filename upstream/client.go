// Package upstream implements the authenticated HTTP client to the
// external customer-management system (spec.md §4.8).
package upstream

import (
	"context"
	"fmt"
)

// ClientRecord is the client record VerifyClientByCPF returns.
type ClientRecord struct {
	Name          string
	ServiceName   string
	ServiceStatus string
	ServiceID     string
	Contracts     []Contract
}

// Contract is one of a client's service contracts.
type Contract struct {
	ID     string
	Status string
}

// TicketPayload is what CreateTicket/UpdateTicket send upstream.
type TicketPayload struct {
	OwnerCPF    string
	Category    string
	Description string
	Urgency     string
}

// TicketStatus is what GetTicketStatus returns.
type TicketStatus struct {
	UpstreamID string
	Status     string
	UpdatedAt  string
}

// Health is CheckHealth's result.
type Health struct {
	Status          string
	ResponseTimeMS  int64
}

// Error is the structured error every Client method returns on failure
// (spec.md §4.8).
type Error struct {
	StatusCode  int
	Code        string
	Retryable   bool
	RetryAfter  int // seconds, from a 429's Retry-After header; the integration scheduler and RateLimiter do not read it
	Message     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream: %s (status=%d code=%s retryable=%v)", e.Message, e.StatusCode, e.Code, e.Retryable)
}

// Client is the set of upstream capabilities spec.md §4.8 requires. The
// client owns authentication (token cache, refresh on 401).
type Client interface {
	VerifyClientByCPF(ctx context.Context, cpfDigits string, includeContracts bool) (*ClientRecord, bool, error)
	CreateTicket(ctx context.Context, payload TicketPayload) (upstreamID, protocol string, err error)
	UpdateTicket(ctx context.Context, upstreamID string, patch map[string]any) error
	GetTicketStatus(ctx context.Context, upstreamID string) (*TicketStatus, error)
	SearchTicketsByCPF(ctx context.Context, cpfDigits string, limit int) ([]TicketStatus, error)
	GetClientContracts(ctx context.Context, cpfDigits string) ([]Contract, error)
	CheckHealth(ctx context.Context) (*Health, error)
}
