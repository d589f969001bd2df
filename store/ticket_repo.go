package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gustsr/sentinela/ticket"
)

// TicketRepository implements ticket.Repository over SQLite.
type TicketRepository struct {
	db *DB
}

// NewTicketRepository builds a TicketRepository.
func NewTicketRepository(db *DB) *TicketRepository {
	return &TicketRepository{db: db}
}

type ticketRow struct {
	ID               string    `db:"id"`
	OwnerJSON        string    `db:"owner_json"`
	Category         string    `db:"category"`
	Game             string    `db:"game"`
	Timing           string    `db:"timing"`
	Description      string    `db:"description"`
	Urgency          string    `db:"urgency"`
	Status           string    `db:"status"`
	Assignee         string    `db:"assignee"`
	ResolutionNotes  string    `db:"resolution_notes"`
	UpstreamID       string    `db:"upstream_id"`
	UpstreamProtocol string    `db:"upstream_protocol"`
	SyncStatus       string    `db:"sync_status"`
	AttachmentsJSON  string    `db:"attachments_json"`
	MessagesJSON     string    `db:"messages_json"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func toTicketRow(t *ticket.Ticket) (ticketRow, error) {
	ownerRaw, err := json.Marshal(t.Owner)
	if err != nil {
		return ticketRow{}, fmt.Errorf("encode owner snapshot: %w", err)
	}
	attachmentsRaw, err := json.Marshal(t.Attachments)
	if err != nil {
		return ticketRow{}, fmt.Errorf("encode attachments: %w", err)
	}
	messagesRaw, err := json.Marshal(t.Messages)
	if err != nil {
		return ticketRow{}, fmt.Errorf("encode messages: %w", err)
	}
	return ticketRow{
		ID:               t.ID,
		OwnerJSON:        string(ownerRaw),
		Category:         t.Category,
		Game:             t.Game,
		Timing:           t.Timing,
		Description:      t.Description,
		Urgency:          string(t.Urgency),
		Status:           string(t.Status),
		Assignee:         t.Assignee,
		ResolutionNotes:  t.ResolutionNotes,
		UpstreamID:       t.UpstreamID,
		UpstreamProtocol: t.UpstreamProtocol,
		SyncStatus:       string(t.SyncStatus),
		AttachmentsJSON:  string(attachmentsRaw),
		MessagesJSON:     string(messagesRaw),
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}, nil
}

func fromTicketRow(row ticketRow) (*ticket.Ticket, error) {
	var owner ticket.OwnerSnapshot
	if row.OwnerJSON != "" {
		if err := json.Unmarshal([]byte(row.OwnerJSON), &owner); err != nil {
			return nil, fmt.Errorf("decode owner snapshot: %w", err)
		}
	}
	var attachments []string
	if row.AttachmentsJSON != "" {
		if err := json.Unmarshal([]byte(row.AttachmentsJSON), &attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	var messages []ticket.Message
	if row.MessagesJSON != "" {
		if err := json.Unmarshal([]byte(row.MessagesJSON), &messages); err != nil {
			return nil, fmt.Errorf("decode messages: %w", err)
		}
	}

	return &ticket.Ticket{
		ID:               row.ID,
		Owner:            owner,
		Category:         row.Category,
		Game:             row.Game,
		Timing:           row.Timing,
		Description:      row.Description,
		Urgency:          ticket.Urgency(row.Urgency),
		Status:           ticket.Status(row.Status),
		Assignee:         row.Assignee,
		ResolutionNotes:  row.ResolutionNotes,
		UpstreamID:       row.UpstreamID,
		UpstreamProtocol: row.UpstreamProtocol,
		SyncStatus:       ticket.SyncStatus(row.SyncStatus),
		Attachments:      attachments,
		Messages:         messages,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

// Save upserts t, last-writer-wins on t.ID, serialized per-id.
func (r *TicketRepository) Save(ctx context.Context, t *ticket.Ticket) error {
	return r.db.locks.withWriteLock(t.ID, func() error {
		row, err := toTicketRow(t)
		if err != nil {
			return err
		}
		_, err = r.db.NamedExecContext(ctx, `
			INSERT INTO tickets (id, owner_json, category, game, timing, description, urgency, status, assignee, resolution_notes, upstream_id, upstream_protocol, sync_status, attachments_json, messages_json, created_at, updated_at)
			VALUES (:id, :owner_json, :category, :game, :timing, :description, :urgency, :status, :assignee, :resolution_notes, :upstream_id, :upstream_protocol, :sync_status, :attachments_json, :messages_json, :created_at, :updated_at)
			ON CONFLICT(id) DO UPDATE SET
				category=excluded.category, game=excluded.game, timing=excluded.timing, description=excluded.description,
				urgency=excluded.urgency, status=excluded.status, assignee=excluded.assignee, resolution_notes=excluded.resolution_notes,
				upstream_id=excluded.upstream_id, upstream_protocol=excluded.upstream_protocol, sync_status=excluded.sync_status,
				attachments_json=excluded.attachments_json, messages_json=excluded.messages_json, updated_at=excluded.updated_at
		`, row)
		if err != nil {
			return fmt.Errorf("store: save ticket: %w", err)
		}
		return nil
	})
}

// Get loads the ticket with the given id.
func (r *TicketRepository) Get(ctx context.Context, id string) (*ticket.Ticket, bool, error) {
	var row ticketRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM tickets WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get ticket: %w", err)
	}
	t, err := fromTicketRow(row)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// FindByUser returns every ticket owned by userID.
func (r *TicketRepository) FindByUser(ctx context.Context, userID string) ([]*ticket.Ticket, error) {
	var rows []ticketRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM tickets WHERE json_extract(owner_json, '$.user_id') = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: find tickets by user: %w", err)
	}
	return ticketsFromRows(rows)
}

// FindByStatus returns every ticket in the given status.
func (r *TicketRepository) FindByStatus(ctx context.Context, status ticket.Status) ([]*ticket.Ticket, error) {
	var rows []ticketRow
	err := r.db.SelectContext(ctx, &rows, "SELECT * FROM tickets WHERE status = ? ORDER BY created_at ASC", string(status))
	if err != nil {
		return nil, fmt.Errorf("store: find tickets by status: %w", err)
	}
	return ticketsFromRows(rows)
}

// FindPendingSync returns up to limit tickets whose upstream sync is still
// pending.
func (r *TicketRepository) FindPendingSync(ctx context.Context, limit int) ([]*ticket.Ticket, error) {
	var rows []ticketRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM tickets WHERE sync_status = ? ORDER BY created_at ASC LIMIT ?
	`, string(ticket.SyncPending), limit)
	if err != nil {
		return nil, fmt.Errorf("store: find tickets pending sync: %w", err)
	}
	return ticketsFromRows(rows)
}

func ticketsFromRows(rows []ticketRow) ([]*ticket.Ticket, error) {
	out := make([]*ticket.Ticket, 0, len(rows))
	for _, row := range rows {
		t, err := fromTicketRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

var _ ticket.Repository = (*TicketRepository)(nil)
