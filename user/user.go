// Package user holds the User aggregate: the chat identity behind a
// verified CPF, along with its admin ban/unban lifecycle.
package user

import (
	"time"

	"github.com/gustsr/sentinela/cpf"
)

// Status is the User's lifecycle state.
type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusActive              Status = "active"
	StatusInactive            Status = "inactive"
	StatusSuspended           Status = "suspended"
)

// ServiceDescriptor snapshots the upstream service attached to a user at
// verification time (name, status string, upstream service id).
type ServiceDescriptor struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	ID     string `json:"id"`
}

// User is the aggregate root for a chat identity.
type User struct {
	ID         string
	Username   string
	CPF        cpf.CPF
	ClientName string
	Service    *ServiceDescriptor
	Status     Status
	IsAdmin    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New constructs an Active user. It is the only constructor of a User; its
// one caller is AdminOps.CreateUser.
func New(id, username string, c cpf.CPF, clientName string, svc *ServiceDescriptor, now time.Time) *User {
	return &User{
		ID:         id,
		Username:   username,
		CPF:        c,
		ClientName: clientName,
		Service:    svc,
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Snapshot returns a deep copy of u, suitable for embedding by value in a
// Ticket or VerificationRequest so a later change to the User does not
// retroactively mutate aggregates that already hold a snapshot.
func (u *User) Snapshot() User {
	cp := *u
	if u.Service != nil {
		svc := *u.Service
		cp.Service = &svc
	}
	return cp
}

// Deactivate transitions the user to Inactive, recording updatedAt.
// Nothing in this module calls it; the merge strategy of
// verification.Engine.ResolveDuplicate leaves user status unchanged.
func (u *User) Deactivate(now time.Time) {
	u.Status = StatusInactive
	u.UpdatedAt = now
}

// Suspend transitions the user to Suspended from any status.
func (u *User) Suspend(now time.Time) {
	u.Status = StatusSuspended
	u.UpdatedAt = now
}

// Activate transitions the user to Active from any status; UnbanUser uses
// it to lift a suspension.
func (u *User) Activate(now time.Time) {
	u.Status = StatusActive
	u.UpdatedAt = now
}
