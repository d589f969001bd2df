package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gustsr/sentinela/integration"
)

// IntegrationRepository implements integration.Repository over SQLite.
type IntegrationRepository struct {
	db *DB
}

// NewIntegrationRepository builds an IntegrationRepository.
func NewIntegrationRepository(db *DB) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

type integrationRow struct {
	ID             string         `db:"id"`
	Type           string         `db:"type"`
	Priority       string         `db:"priority"`
	Status         string         `db:"status"`
	PayloadJSON    sql.NullString `db:"payload_json"`
	MetadataJSON   sql.NullString `db:"metadata_json"`
	MaxRetries     int            `db:"max_retries"`
	TimeoutMS      sql.NullInt64  `db:"timeout_ms"`
	ForceRetry     bool           `db:"force_retry"`
	ScheduledAt    sql.NullTime   `db:"scheduled_at"`
	StartedAt      sql.NullTime   `db:"started_at"`
	CompletedAt    sql.NullTime   `db:"completed_at"`
	ResponseJSON   sql.NullString `db:"response_json"`
	ErrorDetail    string         `db:"error_detail"`
	AttemptsJSON   string         `db:"attempts_json"`
	CreatedAt      time.Time      `db:"created_at"`
}

func toIntegrationRow(r *integration.Request) (integrationRow, error) {
	row := integrationRow{
		ID:          r.ID,
		Type:        string(r.Type),
		Priority:    string(r.Priority),
		Status:      string(r.Status),
		MaxRetries:  r.MaxRetries,
		TimeoutMS:   sql.NullInt64{Int64: r.Timeout.Milliseconds(), Valid: r.Timeout > 0},
		ForceRetry:  r.ForceRetry,
		ErrorDetail: r.ErrorDetail,
		CreatedAt:   r.CreatedAt,
	}
	if r.Payload != nil {
		raw, err := json.Marshal(r.Payload)
		if err != nil {
			return integrationRow{}, fmt.Errorf("encode payload: %w", err)
		}
		row.PayloadJSON = sql.NullString{String: string(raw), Valid: true}
	}
	if r.Metadata != nil {
		raw, err := json.Marshal(r.Metadata)
		if err != nil {
			return integrationRow{}, fmt.Errorf("encode metadata: %w", err)
		}
		row.MetadataJSON = sql.NullString{String: string(raw), Valid: true}
	}
	if !r.ScheduledAt.IsZero() {
		row.ScheduledAt = sql.NullTime{Time: r.ScheduledAt, Valid: true}
	}
	if !r.StartedAt.IsZero() {
		row.StartedAt = sql.NullTime{Time: r.StartedAt, Valid: true}
	}
	if !r.CompletedAt.IsZero() {
		row.CompletedAt = sql.NullTime{Time: r.CompletedAt, Valid: true}
	}
	if r.UpstreamResponse != nil {
		raw, err := json.Marshal(r.UpstreamResponse)
		if err != nil {
			return integrationRow{}, fmt.Errorf("encode upstream response: %w", err)
		}
		row.ResponseJSON = sql.NullString{String: string(raw), Valid: true}
	}
	attemptsRaw, err := json.Marshal(r.Attempts)
	if err != nil {
		return integrationRow{}, fmt.Errorf("encode attempts: %w", err)
	}
	row.AttemptsJSON = string(attemptsRaw)
	return row, nil
}

func fromIntegrationRow(row integrationRow) (*integration.Request, error) {
	r := &integration.Request{
		ID:          row.ID,
		Type:        integration.Type(row.Type),
		Priority:    integration.Priority(row.Priority),
		Status:      integration.Status(row.Status),
		MaxRetries:  row.MaxRetries,
		ForceRetry:  row.ForceRetry,
		ErrorDetail: row.ErrorDetail,
		CreatedAt:   row.CreatedAt,
	}
	if row.TimeoutMS.Valid {
		r.Timeout = time.Duration(row.TimeoutMS.Int64) * time.Millisecond
	}
	if row.PayloadJSON.Valid && row.PayloadJSON.String != "" {
		if err := json.Unmarshal([]byte(row.PayloadJSON.String), &r.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	if row.MetadataJSON.Valid && row.MetadataJSON.String != "" {
		if err := json.Unmarshal([]byte(row.MetadataJSON.String), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if row.ScheduledAt.Valid {
		r.ScheduledAt = row.ScheduledAt.Time
	}
	if row.StartedAt.Valid {
		r.StartedAt = row.StartedAt.Time
	}
	if row.CompletedAt.Valid {
		r.CompletedAt = row.CompletedAt.Time
	}
	if row.ResponseJSON.Valid && row.ResponseJSON.String != "" {
		if err := json.Unmarshal([]byte(row.ResponseJSON.String), &r.UpstreamResponse); err != nil {
			return nil, fmt.Errorf("decode upstream response: %w", err)
		}
	}
	if row.AttemptsJSON != "" {
		if err := json.Unmarshal([]byte(row.AttemptsJSON), &r.Attempts); err != nil {
			return nil, fmt.Errorf("decode attempts: %w", err)
		}
	}
	return r, nil
}

// Save upserts r, last-writer-wins on r.ID, serialized per-id.
func (s *IntegrationRepository) Save(ctx context.Context, r *integration.Request) error {
	return s.db.locks.withWriteLock(r.ID, func() error {
		row, err := toIntegrationRow(r)
		if err != nil {
			return err
		}
		_, err = s.db.NamedExecContext(ctx, `
			INSERT INTO integration_requests (id, type, priority, status, payload_json, metadata_json, max_retries, timeout_ms, force_retry, scheduled_at, started_at, completed_at, response_json, error_detail, attempts_json, created_at)
			VALUES (:id, :type, :priority, :status, :payload_json, :metadata_json, :max_retries, :timeout_ms, :force_retry, :scheduled_at, :started_at, :completed_at, :response_json, :error_detail, :attempts_json, :created_at)
			ON CONFLICT(id) DO UPDATE SET
				priority=excluded.priority, status=excluded.status, max_retries=excluded.max_retries,
				force_retry=excluded.force_retry, scheduled_at=excluded.scheduled_at, started_at=excluded.started_at,
				completed_at=excluded.completed_at, response_json=excluded.response_json, error_detail=excluded.error_detail,
				attempts_json=excluded.attempts_json
		`, row)
		if err != nil {
			return fmt.Errorf("store: save integration request: %w", err)
		}
		return nil
	})
}

// Get loads the integration request with the given id.
func (s *IntegrationRepository) Get(ctx context.Context, id string) (*integration.Request, bool, error) {
	var row integrationRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM integration_requests WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get integration request: %w", err)
	}
	r, err := fromIntegrationRow(row)
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// FindByStatus returns up to limit requests in the given status, ordered
// by priority then scheduled_at (spec.md §4.7's indexed query).
func (s *IntegrationRepository) FindByStatus(ctx context.Context, status integration.Status, limit int) ([]*integration.Request, error) {
	var rows []integrationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM integration_requests WHERE status = ?
		ORDER BY CASE priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END,
			scheduled_at ASC LIMIT ?
	`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("store: find integration requests by status: %w", err)
	}
	return integrationsFromRows(rows)
}

// FindByType returns up to limit requests of the given type.
func (s *IntegrationRepository) FindByType(ctx context.Context, t integration.Type, limit int) ([]*integration.Request, error) {
	var rows []integrationRow
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM integration_requests WHERE type = ? LIMIT ?", string(t), limit)
	if err != nil {
		return nil, fmt.Errorf("store: find integration requests by type: %w", err)
	}
	return integrationsFromRows(rows)
}

func integrationsFromRows(rows []integrationRow) ([]*integration.Request, error) {
	out := make([]*integration.Request, 0, len(rows))
	for _, row := range rows {
		r, err := fromIntegrationRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

var _ integration.Repository = (*IntegrationRepository)(nil)
