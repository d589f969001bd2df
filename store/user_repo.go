package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gustsr/sentinela/cpf"
	"github.com/gustsr/sentinela/user"
)

// UserRepository implements user.Repository over SQLite via sqlx.
type UserRepository struct {
	db *DB
}

// NewUserRepository builds a UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	CPFCanonical string    `db:"cpf_canonical"`
	CPFHash      string    `db:"cpf_hash"`
	ClientName   string    `db:"client_name"`
	ServiceJSON  string    `db:"service_json"`
	Status       string    `db:"status"`
	IsAdmin      bool      `db:"is_admin"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const userHashSalt = "sentinela-cpf-duplicate-v1"

func toUserRow(u *user.User) (userRow, error) {
	var serviceJSON string
	if u.Service != nil {
		raw, err := json.Marshal(u.Service)
		if err != nil {
			return userRow{}, fmt.Errorf("encode service descriptor: %w", err)
		}
		serviceJSON = string(raw)
	}

	return userRow{
		ID:           u.ID,
		Username:     u.Username,
		CPFCanonical: u.CPF.Canonical(),
		CPFHash:      u.CPF.Hash(userHashSalt),
		ClientName:   u.ClientName,
		ServiceJSON:  serviceJSON,
		Status:       string(u.Status),
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}, nil
}

func fromUserRow(row userRow) (*user.User, error) {
	var c cpf.CPF
	if row.CPFCanonical != "" {
		parsed, err := cpf.Parse(row.CPFCanonical)
		if err != nil {
			return nil, fmt.Errorf("decode stored cpf: %w", err)
		}
		c = parsed
	}

	var svc *user.ServiceDescriptor
	if row.ServiceJSON != "" {
		svc = &user.ServiceDescriptor{}
		if err := json.Unmarshal([]byte(row.ServiceJSON), svc); err != nil {
			return nil, fmt.Errorf("decode service descriptor: %w", err)
		}
	}

	return &user.User{
		ID:         row.ID,
		Username:   row.Username,
		CPF:        c,
		ClientName: row.ClientName,
		Service:    svc,
		Status:     user.Status(row.Status),
		IsAdmin:    row.IsAdmin,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

// Save upserts u, last-writer-wins on u.ID, serialized per-id.
func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	return r.db.locks.withWriteLock(u.ID, func() error {
		row, err := toUserRow(u)
		if err != nil {
			return err
		}
		_, err = r.db.NamedExecContext(ctx, `
			INSERT INTO users (id, username, cpf_canonical, cpf_hash, client_name, service_json, status, is_admin, created_at, updated_at)
			VALUES (:id, :username, :cpf_canonical, :cpf_hash, :client_name, :service_json, :status, :is_admin, :created_at, :updated_at)
			ON CONFLICT(id) DO UPDATE SET
				username=excluded.username, cpf_canonical=excluded.cpf_canonical, cpf_hash=excluded.cpf_hash,
				client_name=excluded.client_name, service_json=excluded.service_json, status=excluded.status,
				is_admin=excluded.is_admin, updated_at=excluded.updated_at
		`, row)
		if err != nil {
			return fmt.Errorf("store: save user: %w", err)
		}
		return nil
	})
}

// GetByID loads the user with the given id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, bool, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get user: %w", err)
	}
	u, err := fromUserRow(row)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// FindByCPFHash returns every user sharing hash.
func (r *UserRepository) FindByCPFHash(ctx context.Context, hash string) ([]*user.User, error) {
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT * FROM users WHERE cpf_hash = ?", hash); err != nil {
		return nil, fmt.Errorf("store: find users by cpf hash: %w", err)
	}
	out := make([]*user.User, 0, len(rows))
	for _, row := range rows {
		u, err := fromUserRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

var _ user.Repository = (*UserRepository)(nil)
