package verification

import (
	"time"

	"github.com/gustsr/sentinela/domainevent"
)

// Started is emitted by StartVerification.
type Started struct {
	domainevent.Base
	VerificationID string
	UserID         string
	Type           Type
}

func newStarted(v *Request, at time.Time) Started {
	return Started{Base: domainevent.NewBase("VerificationStarted", at), VerificationID: v.ID, UserID: v.UserID, Type: v.Type}
}

// AttemptMade is emitted after every SubmitCPF pipeline run, success or
// failure.
type AttemptMade struct {
	domainevent.Base
	VerificationID string
	UserID         string
	Success        bool
	FailureReason  string
	AttemptCount   int
}

func newAttemptMade(v *Request, success bool, reason string, at time.Time) AttemptMade {
	return AttemptMade{
		Base: domainevent.NewBase("VerificationAttemptMade", at), VerificationID: v.ID, UserID: v.UserID,
		Success: success, FailureReason: reason, AttemptCount: len(v.Attempts),
	}
}

// Completed is emitted on verification success.
type Completed struct {
	domainevent.Base
	VerificationID string
	UserID         string
	CPFMasked      string
}

func newCompleted(v *Request, at time.Time) Completed {
	return Completed{Base: domainevent.NewBase("VerificationCompleted", at), VerificationID: v.ID, UserID: v.UserID, CPFMasked: v.VerifiedCPF.Masked()}
}

// Failed is emitted when attempts are exhausted.
type Failed struct {
	domainevent.Base
	VerificationID string
	UserID         string
	Reason         string
	AttemptCount   int
}

func newFailed(v *Request, reason string, at time.Time) Failed {
	return Failed{Base: domainevent.NewBase("VerificationFailed", at), VerificationID: v.ID, UserID: v.UserID, Reason: reason, AttemptCount: len(v.Attempts)}
}

// Expired is emitted by ExpireSweep for each request it expires.
type Expired struct {
	domainevent.Base
	VerificationID string
	UserID         string
}

func newExpired(v *Request, at time.Time) Expired {
	return Expired{Base: domainevent.NewBase("VerificationExpired", at), VerificationID: v.ID, UserID: v.UserID}
}

// Cancelled is emitted by CancelVerification.
type Cancelled struct {
	domainevent.Base
	VerificationID string
	UserID         string
	Reason         string
}

func newCancelled(v *Request, reason string, at time.Time) Cancelled {
	return Cancelled{Base: domainevent.NewBase("VerificationCancelled", at), VerificationID: v.ID, UserID: v.UserID, Reason: reason}
}

// DuplicateDetected is emitted when SubmitCPF's duplicate check reports a
// conflict.
type DuplicateDetected struct {
	domainevent.Base
	VerificationID string
	UserID         string
	CPFMasked      string
	ConflictUsers  []string
	Risk           string
}

func newDuplicateDetected(v *Request, cpfMasked string, conflictUsers []string, risk string, at time.Time) DuplicateDetected {
	return DuplicateDetected{
		Base: domainevent.NewBase("CPFDuplicateDetected", at), VerificationID: v.ID, UserID: v.UserID,
		CPFMasked: cpfMasked, ConflictUsers: conflictUsers, Risk: risk,
	}
}

// Remapped is emitted when a duplicate is resolved by merge and the
// original verification is re-driven to completion.
type Remapped struct {
	domainevent.Base
	VerificationID string
	PrimaryUserID  string
	DemotedUserIDs []string
}

func newRemapped(verificationID, primaryUserID string, demoted []string, at time.Time) Remapped {
	return Remapped{Base: domainevent.NewBase("CPFRemapped", at), VerificationID: verificationID, PrimaryUserID: primaryUserID, DemotedUserIDs: demoted}
}
