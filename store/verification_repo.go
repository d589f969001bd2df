package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gustsr/sentinela/cpf"
	"github.com/gustsr/sentinela/verification"
)

// VerificationRepository implements verification.Repository over SQLite.
type VerificationRepository struct {
	db *DB
}

// NewVerificationRepository builds a VerificationRepository.
func NewVerificationRepository(db *DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

type verificationRow struct {
	ID                   string         `db:"id"`
	UserID               string         `db:"user_id"`
	Username             string         `db:"username"`
	Type                 string         `db:"type"`
	SourceAction         string         `db:"source_action"`
	Status               string         `db:"status"`
	CreatedAt            time.Time      `db:"created_at"`
	ExpiresAt            time.Time      `db:"expires_at"`
	CompletedAt          sql.NullTime   `db:"completed_at"`
	AttemptsJSON         string         `db:"attempts_json"`
	VerifiedCPFCanonical sql.NullString `db:"verified_cpf_canonical"`
	VerifiedCPFHash      sql.NullString `db:"verified_cpf_hash"`
	UpstreamJSON         sql.NullString `db:"upstream_json"`
}

const verificationHashSalt = "sentinela-cpf-duplicate-v1"

func toVerificationRow(v *verification.Request) (verificationRow, error) {
	attemptsRaw, err := json.Marshal(v.Attempts)
	if err != nil {
		return verificationRow{}, fmt.Errorf("encode attempts: %w", err)
	}

	row := verificationRow{
		ID:           v.ID,
		UserID:       v.UserID,
		Username:     v.Username,
		Type:         string(v.Type),
		SourceAction: v.SourceAction,
		Status:       string(v.Status),
		CreatedAt:    v.CreatedAt,
		ExpiresAt:    v.ExpiresAt,
		AttemptsJSON: string(attemptsRaw),
	}
	if !v.CompletedAt.IsZero() {
		row.CompletedAt = sql.NullTime{Time: v.CompletedAt, Valid: true}
	}
	if !v.VerifiedCPF.IsZero() {
		row.VerifiedCPFCanonical = sql.NullString{String: v.VerifiedCPF.Canonical(), Valid: true}
		row.VerifiedCPFHash = sql.NullString{String: v.VerifiedCPF.Hash(verificationHashSalt), Valid: true}
	}
	if v.Upstream != nil {
		raw, err := json.Marshal(v.Upstream)
		if err != nil {
			return verificationRow{}, fmt.Errorf("encode upstream snapshot: %w", err)
		}
		row.UpstreamJSON = sql.NullString{String: string(raw), Valid: true}
	}
	return row, nil
}

func fromVerificationRow(row verificationRow) (*verification.Request, error) {
	var attempts []verification.Attempt
	if row.AttemptsJSON != "" {
		if err := json.Unmarshal([]byte(row.AttemptsJSON), &attempts); err != nil {
			return nil, fmt.Errorf("decode attempts: %w", err)
		}
	}

	v := &verification.Request{
		ID:           row.ID,
		UserID:       row.UserID,
		Username:     row.Username,
		Type:         verification.Type(row.Type),
		SourceAction: row.SourceAction,
		Status:       verification.Status(row.Status),
		CreatedAt:    row.CreatedAt,
		ExpiresAt:    row.ExpiresAt,
		Attempts:     attempts,
	}
	if row.CompletedAt.Valid {
		v.CompletedAt = row.CompletedAt.Time
	}
	if row.VerifiedCPFCanonical.Valid && row.VerifiedCPFCanonical.String != "" {
		parsed, err := cpf.Parse(row.VerifiedCPFCanonical.String)
		if err != nil {
			return nil, fmt.Errorf("decode stored cpf: %w", err)
		}
		v.VerifiedCPF = parsed
	}
	if row.UpstreamJSON.Valid && row.UpstreamJSON.String != "" {
		snap := &verification.UpstreamSnapshot{}
		if err := json.Unmarshal([]byte(row.UpstreamJSON.String), snap); err != nil {
			return nil, fmt.Errorf("decode upstream snapshot: %w", err)
		}
		v.Upstream = snap
	}
	return v, nil
}

// Save upserts v and replaces v's rows in the attempt log with its current
// attempts
// (spec.md §4.7: "aggregate mutations are persisted atomically with their
// derived attempt rows").
func (r *VerificationRepository) Save(ctx context.Context, v *verification.Request) error {
	return r.db.locks.withWriteLock(v.ID, func() error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("store: begin verification save: %w", err)
		}
		defer tx.Rollback()

		row, err := toVerificationRow(v)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO verifications (id, user_id, username, type, source_action, status, created_at, expires_at, completed_at, attempts_json, verified_cpf_canonical, verified_cpf_hash, upstream_json)
			VALUES (:id, :user_id, :username, :type, :source_action, :status, :created_at, :expires_at, :completed_at, :attempts_json, :verified_cpf_canonical, :verified_cpf_hash, :upstream_json)
			ON CONFLICT(id) DO UPDATE SET
				status=excluded.status, completed_at=excluded.completed_at, attempts_json=excluded.attempts_json,
				verified_cpf_canonical=excluded.verified_cpf_canonical, verified_cpf_hash=excluded.verified_cpf_hash,
				upstream_json=excluded.upstream_json
		`, row); err != nil {
			return fmt.Errorf("store: save verification: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM verification_attempt_log WHERE verification_id = ?", v.ID); err != nil {
			return fmt.Errorf("store: reset attempt log: %w", err)
		}
		for _, a := range v.Attempts {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO verification_attempt_log (user_id, verification_id, attempted_at)
				VALUES (?, ?, ?)
			`, v.UserID, v.ID, a.AttemptedAt); err != nil {
				return fmt.Errorf("store: insert attempt log row: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit verification save: %w", err)
		}
		return nil
	})
}

// Get loads the verification request with the given id.
func (r *VerificationRepository) Get(ctx context.Context, id string) (*verification.Request, bool, error) {
	var row verificationRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM verifications WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get verification: %w", err)
	}
	v, err := fromVerificationRow(row)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// FindPendingByUser returns userID's current Pending/InProgress request.
func (r *VerificationRepository) FindPendingByUser(ctx context.Context, userID string) (*verification.Request, bool, error) {
	var row verificationRow
	err := r.db.GetContext(ctx, &row, `
		SELECT * FROM verifications
		WHERE user_id = ? AND status IN ('pending', 'in_progress')
		ORDER BY created_at DESC LIMIT 1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: find pending verification by user: %w", err)
	}
	v, err := fromVerificationRow(row)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// FindExpiring returns up to limit Pending/InProgress requests whose
// ExpiresAt is before the given instant.
func (r *VerificationRepository) FindExpiring(ctx context.Context, before time.Time, limit int) ([]*verification.Request, error) {
	var rows []verificationRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM verifications
		WHERE expires_at < ? AND status IN ('pending', 'in_progress')
		ORDER BY expires_at ASC LIMIT ?
	`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("store: find expiring verifications: %w", err)
	}
	return verificationsFromRows(rows)
}

// FindByCPFHash returns every verification whose verified CPF hashes to
// hash.
func (r *VerificationRepository) FindByCPFHash(ctx context.Context, hash string) ([]*verification.Request, error) {
	var rows []verificationRow
	err := r.db.SelectContext(ctx, &rows, "SELECT * FROM verifications WHERE verified_cpf_hash = ?", hash)
	if err != nil {
		return nil, fmt.Errorf("store: find verifications by cpf hash: %w", err)
	}
	return verificationsFromRows(rows)
}

// CountAttemptsSince counts attempt-log rows for userID at or after since,
// backing the per-user 24h rate limit (spec.md §4.2).
func (r *VerificationRepository) CountAttemptsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM verification_attempt_log WHERE user_id = ? AND attempted_at >= ?
	`, userID, since)
	if err != nil {
		return 0, fmt.Errorf("store: count attempts since: %w", err)
	}
	return count, nil
}

func verificationsFromRows(rows []verificationRow) ([]*verification.Request, error) {
	out := make([]*verification.Request, 0, len(rows))
	for _, row := range rows {
		v, err := fromVerificationRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

var _ verification.Repository = (*VerificationRepository)(nil)
