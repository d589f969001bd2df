package user

import (
	"time"

	"github.com/gustsr/sentinela/domainevent"
)

// Registered is emitted when a new User is created (verification success).
type Registered struct {
	domainevent.Base
	UserID   string
	Username string
}

// NewRegistered builds a UserRegistered event.
func NewRegistered(userID, username string, at time.Time) Registered {
	return Registered{Base: domainevent.NewBase("UserRegistered", at), UserID: userID, Username: username}
}

// Banned is emitted when an admin suspends a user.
type Banned struct {
	domainevent.Base
	UserID string
	Reason string
}

// NewBanned builds a UserBanned event.
func NewBanned(userID, reason string, at time.Time) Banned {
	return Banned{Base: domainevent.NewBase("UserBanned", at), UserID: userID, Reason: reason}
}

// Unbanned is emitted when an admin reactivates a suspended user.
type Unbanned struct {
	domainevent.Base
	UserID string
}

// NewUnbanned builds a UserUnbanned event.
func NewUnbanned(userID string, at time.Time) Unbanned {
	return Unbanned{Base: domainevent.NewBase("UserUnbanned", at), UserID: userID}
}
