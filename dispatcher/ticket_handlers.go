package dispatcher

import (
	"context"

	"github.com/gustsr/sentinela/errcode"
	"github.com/gustsr/sentinela/ticket"
)

var validTicketStatuses = map[string]ticket.Status{
	string(ticket.StatusPending):    ticket.StatusPending,
	string(ticket.StatusOpen):       ticket.StatusOpen,
	string(ticket.StatusInProgress): ticket.StatusInProgress,
	string(ticket.StatusResolved):   ticket.StatusResolved,
	string(ticket.StatusClosed):     ticket.StatusClosed,
	string(ticket.StatusCancelled):  ticket.StatusCancelled,
}

var validTicketUrgencies = map[string]ticket.Urgency{
	string(ticket.UrgencyLow):      ticket.UrgencyLow,
	string(ticket.UrgencyNormal):   ticket.UrgencyNormal,
	string(ticket.UrgencyHigh):     ticket.UrgencyHigh,
	string(ticket.UrgencyCritical): ticket.UrgencyCritical,
}

func registerTicketHandlers(r *Registry, engine *ticket.Engine) {
	r.Register(AssignTicket{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(AssignTicket)
		res, err := engine.Assign(ctx, cmd.TicketID, cmd.Assignee)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgTicketUpdated(), nil), nil
	})

	r.Register(ChangeTicketStatus{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(ChangeTicketStatus)
		to, ok := validTicketStatuses[cmd.Status]
		if !ok {
			return Fail(errcode.InvalidTransition, msgInvalidTransition()), nil
		}
		res, err := engine.ChangeStatus(ctx, cmd.TicketID, to)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgTicketUpdated(), nil), nil
	})

	r.Register(ElevateTicketUrgency{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(ElevateTicketUrgency)
		to, ok := validTicketUrgencies[cmd.Urgency]
		if !ok {
			return Fail(errcode.InvalidTransition, msgInvalidTransition()), nil
		}
		res, err := engine.ElevateUrgency(ctx, cmd.TicketID, to)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgTicketUpdated(), nil), nil
	})

	r.Register(CloseTicket{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(CloseTicket)
		res, err := engine.CloseWithResolution(ctx, cmd.TicketID, cmd.Notes)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgTicketUpdated(), nil), nil
	})

	r.Register(CancelTicket{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(CancelTicket)
		res, err := engine.Cancel(ctx, cmd.TicketID)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgTicketUpdated(), nil), nil
	})
}
