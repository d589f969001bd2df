package upstream

import (
	"context"

	"github.com/gustsr/sentinela/ticket"
	"github.com/gustsr/sentinela/verification"
)

// VerificationAdapter narrows a Client down to verification.UpstreamLookup,
// translating the richer upstream.ClientRecord into the small
// verification.ClientRecord shape the engine consumes.
type VerificationAdapter struct {
	Client Client
}

func (a VerificationAdapter) VerifyClientByCPF(ctx context.Context, cpfDigits string) (*verification.ClientRecord, bool, error) {
	record, found, err := a.Client.VerifyClientByCPF(ctx, cpfDigits, false)
	if err != nil || !found {
		return nil, found, err
	}
	return &verification.ClientRecord{
		Name:          record.Name,
		ServiceName:   record.ServiceName,
		ServiceStatus: record.ServiceStatus,
		ServiceID:     record.ServiceID,
	}, true, nil
}

// TicketSyncAdapter narrows a Client down to ticket.UpstreamSync.
type TicketSyncAdapter struct {
	Client Client
}

func (a TicketSyncAdapter) CreateTicket(ctx context.Context, t *ticket.Ticket) (string, string, error) {
	return a.Client.CreateTicket(ctx, TicketPayload{
		OwnerCPF:    t.Owner.CPFMasked,
		Category:    t.Category,
		Description: t.Description,
		Urgency:     string(t.Urgency),
	})
}
