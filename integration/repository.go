package integration

import "context"

// Repository is the persistence contract the scheduler needs.
type Repository interface {
	Save(ctx context.Context, r *Request) error
	Get(ctx context.Context, id string) (*Request, bool, error)
	FindByStatus(ctx context.Context, status Status, limit int) ([]*Request, error)
	FindByType(ctx context.Context, t Type, limit int) ([]*Request, error)
}
