// Package errcode defines the stable error-code taxonomy used across every
// engine in this module (spec.md §7). These strings are part of the public
// contract callers branch on through dispatcher.Result.ErrorCode.
package errcode

// Code is a stable, caller-facing error code.
type Code string

const (
	// Input validation.
	InvalidCPFFormat       Code = "invalid_cpf_format"
	InvalidVerificationType Code = "invalid_verification_type"
	InvalidPriority        Code = "invalid_priority"
	InvalidSyncType        Code = "invalid_sync_type"
	MissingHubsoftID       Code = "missing_hubsoft_id"
	EmptyTicketList        Code = "empty_ticket_list"
	BulkLimitExceeded      Code = "bulk_limit_exceeded"

	// State / business rules.
	VerificationAlreadyPending Code = "verification_already_pending"
	NoPendingVerification      Code = "no_pending_verification"
	CannotAttempt              Code = "cannot_attempt"
	CannotCancelTerminal       Code = "cannot_cancel_terminal"
	CPFDuplicate               Code = "cpf_duplicate"
	CPFNotFound                Code = "cpf_not_found"
	InvalidTransition          Code = "invalid_transition"
	UserNotFound               Code = "user_not_found"
	UserAlreadyBanned          Code = "user_already_banned"
	CannotBanSelf              Code = "cannot_ban_self"
	ConversationAlreadyActive  Code = "conversation_already_active"
	ConversationStepMismatch   Code = "conversation_step_mismatch"

	// Rate / capacity.
	RateLimited Code = "rate_limited"

	// Upstream.
	UpstreamUnavailable Code = "upstream_unavailable"
	UpstreamRateLimited Code = "upstream_rate_limited"
	UpstreamNotFound    Code = "upstream_not_found"
	UpstreamConflict    Code = "upstream_conflict"

	// Integration scheduler.
	IntegrationNotFound Code = "integration_not_found"
	ScheduleError       Code = "schedule_error"
	RetryError          Code = "retry_error"
	CancelError         Code = "cancel_error"

	// System.
	SystemError Code = "system_error"
)
