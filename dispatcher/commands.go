package dispatcher

import "time"

// Command is implemented by every inbound command record of spec.md §6.
// Commands are immutable and carry no behavior.
type Command interface {
	commandName() string
}

// Query is implemented by every inbound read-only record of spec.md §6.
type Query interface {
	queryName() string
}

// StartCPFVerification begins a new CPF verification for a user.
type StartCPFVerification struct {
	UserID           string
	Username         string
	UserMention      string
	VerificationType string
	SourceAction     string
}

func (StartCPFVerification) commandName() string { return "StartCPFVerification" }

// SubmitCPFForVerification submits one CPF attempt against the caller's
// pending verification.
type SubmitCPFForVerification struct {
	UserID   string
	Username string
	CPF      string
}

func (SubmitCPFForVerification) commandName() string { return "SubmitCPFForVerification" }

// CancelCPFVerification cancels the caller's pending verification.
type CancelCPFVerification struct {
	UserID   string
	Username string
	Reason   string
}

func (CancelCPFVerification) commandName() string { return "CancelCPFVerification" }

// ProcessExpiredVerifications drives the expiry sweep.
type ProcessExpiredVerifications struct{}

func (ProcessExpiredVerifications) commandName() string { return "ProcessExpiredVerifications" }

// ResolveCPFDuplicate applies an operator decision to a duplicate-flagged
// verification.
type ResolveCPFDuplicate struct {
	VerificationID  string
	PrimaryUserID   string
	DuplicateUserIDs []string
	Resolution      string // merge | block | manual_review
}

func (ResolveCPFDuplicate) commandName() string { return "ResolveCPFDuplicate" }

// StartSupportConversation begins a new support-ticket intake wizard.
type StartSupportConversation struct {
	UserID      string
	Username    string
	UserMention string
}

func (StartSupportConversation) commandName() string { return "StartSupportConversation" }

// SelectCategory advances the caller's active conversation past category
// selection.
type SelectCategory struct {
	UserID   string
	Category string
}

func (SelectCategory) commandName() string { return "SelectCategory" }

// SelectGame advances the caller's active conversation past game
// selection.
type SelectGame struct {
	UserID string
	Game   string
}

func (SelectGame) commandName() string { return "SelectGame" }

// SelectTiming advances the caller's active conversation past timing
// selection.
type SelectTiming struct {
	UserID string
	Timing string
}

func (SelectTiming) commandName() string { return "SelectTiming" }

// SetDescription records the caller's problem description.
type SetDescription struct {
	UserID      string
	Description string
}

func (SetDescription) commandName() string { return "SetDescription" }

// AddAttachment appends one attachment reference to the caller's
// conversation.
type AddAttachment struct {
	UserID        string
	AttachmentRef string
}

func (AddAttachment) commandName() string { return "AddAttachment" }

// SkipAttachments moves the caller's conversation straight to
// confirmation without attaching anything.
type SkipAttachments struct {
	UserID string
}

func (SkipAttachments) commandName() string { return "SkipAttachments" }

// ConfirmAndCreateTicket finalizes the caller's conversation into a
// Ticket.
type ConfirmAndCreateTicket struct {
	UserID string
}

func (ConfirmAndCreateTicket) commandName() string { return "ConfirmAndCreateTicket" }

// CancelConversation abandons the caller's active conversation.
type CancelConversation struct {
	UserID string
	Reason string
}

func (CancelConversation) commandName() string { return "CancelConversation" }

// ProcessConversationTimeouts sweeps idle conversations past their
// inactivity deadline, closing each one (spec.md §4.3).
type ProcessConversationTimeouts struct{}

func (ProcessConversationTimeouts) commandName() string { return "ProcessConversationTimeouts" }

// AssignTicket sets a ticket's assignee.
type AssignTicket struct {
	TicketID string
	Assignee string
}

func (AssignTicket) commandName() string { return "AssignTicket" }

// ChangeTicketStatus drives a ticket through its status transition graph.
type ChangeTicketStatus struct {
	TicketID string
	Status   string
}

func (ChangeTicketStatus) commandName() string { return "ChangeTicketStatus" }

// ElevateTicketUrgency raises a ticket's urgency ranking.
type ElevateTicketUrgency struct {
	TicketID string
	Urgency  string
}

func (ElevateTicketUrgency) commandName() string { return "ElevateTicketUrgency" }

// CloseTicket closes a ticket with resolution notes.
type CloseTicket struct {
	TicketID string
	Notes    string
}

func (CloseTicket) commandName() string { return "CloseTicket" }

// CancelTicket cancels a ticket outright.
type CancelTicket struct {
	TicketID string
}

func (CancelTicket) commandName() string { return "CancelTicket" }

// ScheduleHubSoftIntegration enqueues an arbitrary integration request.
type ScheduleHubSoftIntegration struct {
	IntegrationType string
	Priority        string
	Payload         map[string]any
	ScheduledAt     time.Time
	Metadata        map[string]string
	MaxRetries      int
	TimeoutSeconds  int
}

func (ScheduleHubSoftIntegration) commandName() string { return "ScheduleHubSoftIntegration" }

// SyncTicketToUpstream enqueues a TicketSync integration request.
type SyncTicketToUpstream struct {
	TicketID string
	Priority string
}

func (SyncTicketToUpstream) commandName() string { return "SyncTicketToUpstream" }

// VerifyUserInUpstream enqueues a UserVerification integration request.
type VerifyUserInUpstream struct {
	UserID   string
	CPF      string
	Priority string
}

func (VerifyUserInUpstream) commandName() string { return "VerifyUserInUpstream" }

// FetchClientDataFromUpstream enqueues a ClientDataFetch integration
// request.
type FetchClientDataFromUpstream struct {
	CPF      string
	Priority string
}

func (FetchClientDataFromUpstream) commandName() string { return "FetchClientDataFromUpstream" }

// UpdateTicketStatusInUpstream enqueues a StatusUpdate integration
// request.
type UpdateTicketStatusInUpstream struct {
	TicketID   string
	UpstreamID string
	Status     string
	Priority   string
}

func (UpdateTicketStatusInUpstream) commandName() string { return "UpdateTicketStatusInUpstream" }

// BulkSyncTicketsToUpstream enqueues a single BulkSync integration
// request covering many tickets.
type BulkSyncTicketsToUpstream struct {
	TicketIDs       []string
	BatchSize       int
	InterBatchDelay time.Duration
	Priority        string
}

func (BulkSyncTicketsToUpstream) commandName() string { return "BulkSyncTicketsToUpstream" }

// RetryFailedIntegrations re-enqueues every Failed request still eligible
// for retry.
type RetryFailedIntegrations struct{}

func (RetryFailedIntegrations) commandName() string { return "RetryFailedIntegrations" }

// CancelIntegration marks a non-terminal integration request Cancelled.
type CancelIntegration struct {
	IntegrationID string
}

func (CancelIntegration) commandName() string { return "CancelIntegration" }

// UpdateIntegrationPriority changes a pending request's queue priority.
type UpdateIntegrationPriority struct {
	IntegrationID string
	Priority      string
}

func (UpdateIntegrationPriority) commandName() string { return "UpdateIntegrationPriority" }

// BanUser suspends a user (supplemented from original_source/, spec.md §5).
type BanUser struct {
	UserID        string
	ActingAdminID string
	Reason        string
}

func (BanUser) commandName() string { return "BanUser" }

// UnbanUser reactivates a suspended user.
type UnbanUser struct {
	UserID string
}

func (UnbanUser) commandName() string { return "UnbanUser" }

// GetIntegrationStatus reads back one integration request's current state.
type GetIntegrationStatus struct {
	IntegrationID string
}

func (GetIntegrationStatus) queryName() string { return "GetIntegrationStatus" }

// GetIntegrationStatus is dispatched through the same Registry as every
// command (spec.md §9 keeps one dispatch path for the whole command/query
// surface), so it also satisfies Command.
func (GetIntegrationStatus) commandName() string { return "GetIntegrationStatus" }
