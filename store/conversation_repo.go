package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gustsr/sentinela/conversation"
)

// ConversationRepository implements conversation.Repository over SQLite.
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository builds a ConversationRepository.
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

type conversationRow struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Username     string    `db:"username"`
	State        string    `db:"state"`
	FormJSON     string    `db:"form_json"`
	IsActive     bool      `db:"is_active"`
	TicketID     string    `db:"ticket_id"`
	CreatedAt    time.Time `db:"created_at"`
	LastActivity time.Time `db:"last_activity"`
}

func toConversationRow(c *conversation.Conversation) (conversationRow, error) {
	formRaw, err := json.Marshal(c.Form)
	if err != nil {
		return conversationRow{}, fmt.Errorf("encode form data: %w", err)
	}
	return conversationRow{
		ID:           c.ID,
		UserID:       c.UserID,
		Username:     c.Username,
		State:        string(c.State),
		FormJSON:     string(formRaw),
		IsActive:     c.IsActive,
		TicketID:     c.TicketID,
		CreatedAt:    c.CreatedAt,
		LastActivity: c.LastActivity,
	}, nil
}

func fromConversationRow(row conversationRow) (*conversation.Conversation, error) {
	var form conversation.FormData
	if row.FormJSON != "" {
		if err := json.Unmarshal([]byte(row.FormJSON), &form); err != nil {
			return nil, fmt.Errorf("decode form data: %w", err)
		}
	}
	return &conversation.Conversation{
		ID:           row.ID,
		UserID:       row.UserID,
		Username:     row.Username,
		State:        conversation.State(row.State),
		Form:         form,
		IsActive:     row.IsActive,
		TicketID:     row.TicketID,
		CreatedAt:    row.CreatedAt,
		LastActivity: row.LastActivity,
	}, nil
}

// Save upserts c, last-writer-wins on c.ID, serialized per-id.
func (r *ConversationRepository) Save(ctx context.Context, c *conversation.Conversation) error {
	return r.db.locks.withWriteLock(c.ID, func() error {
		row, err := toConversationRow(c)
		if err != nil {
			return err
		}
		_, err = r.db.NamedExecContext(ctx, `
			INSERT INTO conversations (id, user_id, username, state, form_json, is_active, ticket_id, created_at, last_activity)
			VALUES (:id, :user_id, :username, :state, :form_json, :is_active, :ticket_id, :created_at, :last_activity)
			ON CONFLICT(id) DO UPDATE SET
				state=excluded.state, form_json=excluded.form_json, is_active=excluded.is_active,
				ticket_id=excluded.ticket_id, last_activity=excluded.last_activity
		`, row)
		if err != nil {
			return fmt.Errorf("store: save conversation: %w", err)
		}
		return nil
	})
}

// Get loads the conversation with the given id.
func (r *ConversationRepository) Get(ctx context.Context, id string) (*conversation.Conversation, bool, error) {
	var row conversationRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM conversations WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get conversation: %w", err)
	}
	c, err := fromConversationRow(row)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// FindActiveByUser returns userID's current active conversation, if any.
func (r *ConversationRepository) FindActiveByUser(ctx context.Context, userID string) (*conversation.Conversation, bool, error) {
	var row conversationRow
	err := r.db.GetContext(ctx, &row, `
		SELECT * FROM conversations WHERE user_id = ? AND is_active = 1
		ORDER BY last_activity DESC LIMIT 1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: find active conversation by user: %w", err)
	}
	c, err := fromConversationRow(row)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// FindIdle returns up to limit active conversations, oldest-activity
// first, for TimeoutSweep to evaluate against its idle threshold.
func (r *ConversationRepository) FindIdle(ctx context.Context, limit int) ([]*conversation.Conversation, error) {
	var rows []conversationRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM conversations WHERE is_active = 1 ORDER BY last_activity ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: find idle conversations: %w", err)
	}
	out := make([]*conversation.Conversation, 0, len(rows))
	for _, row := range rows {
		c, err := fromConversationRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

var _ conversation.Repository = (*ConversationRepository)(nil)
