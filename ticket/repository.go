package ticket

import "context"

// Repository is the persistence contract the ticket engine needs.
type Repository interface {
	Save(ctx context.Context, t *Ticket) error
	Get(ctx context.Context, id string) (*Ticket, bool, error)
	FindByUser(ctx context.Context, userID string) ([]*Ticket, error)
	FindByStatus(ctx context.Context, status Status) ([]*Ticket, error)
	FindPendingSync(ctx context.Context, limit int) ([]*Ticket, error)
}
