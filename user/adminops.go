package user

import (
	"context"
	"fmt"

	"github.com/gustsr/sentinela/clockwork"
	"github.com/gustsr/sentinela/cpf"
	"github.com/gustsr/sentinela/domainevent"
)

// ErrorCode enumerates the admin-operation failure codes from spec.md §7
// that previously had no operation producing them.
type ErrorCode string

const (
	ErrUserNotFound     ErrorCode = "user_not_found"
	ErrAlreadyBanned    ErrorCode = "user_already_banned"
	ErrCannotBanSelf    ErrorCode = "cannot_ban_self"
)

// Outcome is the admin-ops use case's result; it is translated into a
// dispatcher.Result at the command-handler boundary.
type Outcome struct {
	OK    bool
	Code  ErrorCode
	User  *User
	Event domainevent.Event
}

// AdminOps implements the admin operations supplemented from
// original_source/.../admin_operations_use_case.py: BanUser, UnbanUser, and
// CreateUser (user registration as a first-class command).
type AdminOps struct {
	repo  Repository
	clock clockwork.Clock
	ids   clockwork.IDGen
}

// NewAdminOps builds an AdminOps use case.
func NewAdminOps(repo Repository, clock clockwork.Clock, ids clockwork.IDGen) *AdminOps {
	return &AdminOps{repo: repo, clock: clock, ids: ids}
}

// CreateUser registers a new Active user and returns its UserRegistered
// event. Nothing in this module calls it: a successful CPF verification
// does not create a User.
func (a *AdminOps) CreateUser(ctx context.Context, username string, c cpf.CPF, clientName string, svc *ServiceDescriptor) (*User, domainevent.Event, error) {
	u := New(a.ids.NewID(), username, c, clientName, svc, a.clock.Now())
	if err := a.repo.Save(ctx, u); err != nil {
		return nil, nil, fmt.Errorf("user: save new user: %w", err)
	}
	return u, NewRegistered(u.ID, u.Username, a.clock.Now()), nil
}

// BanUser suspends a user by id. actingAdminID is the caller; banning
// oneself is rejected.
func (a *AdminOps) BanUser(ctx context.Context, userID, actingAdminID, reason string) Outcome {
	if userID == actingAdminID {
		return Outcome{OK: false, Code: ErrCannotBanSelf}
	}

	u, found, err := a.repo.GetByID(ctx, userID)
	if err != nil || !found {
		return Outcome{OK: false, Code: ErrUserNotFound}
	}
	if u.Status == StatusSuspended {
		return Outcome{OK: false, Code: ErrAlreadyBanned}
	}

	u.Suspend(a.clock.Now())
	if err := a.repo.Save(ctx, u); err != nil {
		return Outcome{OK: false, Code: "system_error"}
	}

	return Outcome{OK: true, User: u, Event: NewBanned(u.ID, reason, a.clock.Now())}
}

// UnbanUser reactivates a suspended user by id.
func (a *AdminOps) UnbanUser(ctx context.Context, userID string) Outcome {
	u, found, err := a.repo.GetByID(ctx, userID)
	if err != nil || !found {
		return Outcome{OK: false, Code: ErrUserNotFound}
	}

	u.Activate(a.clock.Now())
	if err := a.repo.Save(ctx, u); err != nil {
		return Outcome{OK: false, Code: "system_error"}
	}

	return Outcome{OK: true, User: u, Event: NewUnbanned(u.ID, a.clock.Now())}
}
