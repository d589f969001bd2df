package conversation

import "context"

// Repository is the persistence contract the conversation engine needs.
type Repository interface {
	Save(ctx context.Context, c *Conversation) error
	Get(ctx context.Context, id string) (*Conversation, bool, error)
	FindActiveByUser(ctx context.Context, userID string) (*Conversation, bool, error)
	FindIdle(ctx context.Context, limit int) ([]*Conversation, error)
}
