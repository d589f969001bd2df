package dispatcher

import (
	"log/slog"

	"github.com/gustsr/sentinela/clockwork"
	"github.com/gustsr/sentinela/conversation"
	"github.com/gustsr/sentinela/domainevent"
	"github.com/gustsr/sentinela/integration"
	"github.com/gustsr/sentinela/ticket"
	"github.com/gustsr/sentinela/user"
	"github.com/gustsr/sentinela/verification"
)

// Deps collects every collaborator the command surface of spec.md §6
// dispatches against. The composition root (cmd/sentinela) builds one of
// these once and passes it to Build.
type Deps struct {
	Log *slog.Logger

	VerificationEngine *verification.Engine
	VerificationRepo   verification.Repository

	ConversationEngine *conversation.Engine
	ConversationRepo   conversation.Repository

	TicketEngine *ticket.Engine
	TicketRepo   ticket.Repository

	IntegrationScheduler *integration.Scheduler
	IntegrationRepo      integration.Repository

	AdminOps *user.AdminOps
	Bus      *domainevent.Bus

	Clock clockwork.Clock
	IDs   clockwork.IDGen
}

// Build wires every command/query handler of spec.md §6 into a single
// Registry and sanity-checks that none were missed.
func Build(d Deps) *Registry {
	r := NewRegistry(d.Log)

	registerVerificationHandlers(r, d.VerificationEngine, d.VerificationRepo)
	registerConversationHandlers(r, d.ConversationEngine, d.ConversationRepo)
	registerTicketHandlers(r, d.TicketEngine)
	registerIntegrationHandlers(r, d.IntegrationScheduler, d.IntegrationRepo, d.IDs, d.Clock)
	registerAdminHandlers(r, d.AdminOps, d.Bus)

	r.MustRegistered(
		StartCPFVerification{}, SubmitCPFForVerification{}, CancelCPFVerification{},
		ProcessExpiredVerifications{}, ResolveCPFDuplicate{},
		StartSupportConversation{}, SelectCategory{}, SelectGame{}, SelectTiming{},
		SetDescription{}, AddAttachment{}, SkipAttachments{}, ConfirmAndCreateTicket{},
		CancelConversation{},
		AssignTicket{}, ChangeTicketStatus{}, ElevateTicketUrgency{}, CloseTicket{},
		CancelTicket{}, ProcessConversationTimeouts{},
		ScheduleHubSoftIntegration{}, SyncTicketToUpstream{}, VerifyUserInUpstream{},
		FetchClientDataFromUpstream{}, UpdateTicketStatusInUpstream{},
		BulkSyncTicketsToUpstream{}, RetryFailedIntegrations{}, CancelIntegration{},
		UpdateIntegrationPriority{}, GetIntegrationStatus{},
		BanUser{}, UnbanUser{},
	)

	return r
}
