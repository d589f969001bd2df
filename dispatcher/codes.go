package dispatcher

import "github.com/gustsr/sentinela/errcode"

// messageFor renders the default localized message for a stable error
// code when the call site has no more specific wording of its own.
func messageFor(code errcode.Code) string {
	switch code {
	case errcode.VerificationAlreadyPending:
		return msgVerificationAlreadyPending()
	case errcode.NoPendingVerification:
		return msgNoPendingVerification()
	case errcode.CannotAttempt:
		return msgCannotAttempt()
	case errcode.CannotCancelTerminal:
		return msgCannotCancelTerminal()
	case errcode.CPFDuplicate:
		return msgCPFDuplicate()
	case errcode.CPFNotFound:
		return msgCPFNotFound()
	case errcode.RateLimited:
		return msgRateLimited()
	case errcode.InvalidTransition:
		return msgInvalidTransition()
	case errcode.UserNotFound:
		return msgUserNotFound()
	case errcode.UserAlreadyBanned:
		return msgUserAlreadyBanned()
	case errcode.CannotBanSelf:
		return msgCannotBanSelf()
	case errcode.ConversationAlreadyActive:
		return msgConversationAlreadyActive()
	case errcode.ConversationStepMismatch:
		return msgConversationStepMismatch()
	case errcode.IntegrationNotFound:
		return msgIntegrationNotFound()
	case errcode.InvalidPriority:
		return msgInvalidPriority()
	case errcode.InvalidSyncType:
		return msgInvalidSyncType()
	case errcode.MissingHubsoftID:
		return msgMissingHubsoftID()
	case errcode.EmptyTicketList:
		return msgEmptyTicketList()
	case errcode.BulkLimitExceeded:
		return msgBulkLimitExceeded()
	case errcode.ScheduleError:
		return msgScheduleError()
	case errcode.CancelError:
		return msgCancelError()
	case errcode.RetryError:
		return msgRetryError()
	case errcode.UpstreamUnavailable:
		return msgUpstreamUnavailable()
	case errcode.UpstreamRateLimited:
		return msgUpstreamRateLimited()
	case errcode.UpstreamNotFound:
		return msgUpstreamNotFound()
	case errcode.UpstreamConflict:
		return msgUpstreamConflict()
	default:
		return msgSystemError
	}
}
