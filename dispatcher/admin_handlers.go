package dispatcher

import (
	"context"

	"github.com/gustsr/sentinela/domainevent"
	"github.com/gustsr/sentinela/errcode"
	"github.com/gustsr/sentinela/user"
)

func userErrCode(c user.ErrorCode) errcode.Code {
	switch c {
	case user.ErrAlreadyBanned:
		return errcode.UserAlreadyBanned
	case user.ErrCannotBanSelf:
		return errcode.CannotBanSelf
	default:
		return errcode.UserNotFound
	}
}

func registerAdminHandlers(r *Registry, ops *user.AdminOps, bus *domainevent.Bus) {
	r.Register(BanUser{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(BanUser)
		out := ops.BanUser(ctx, cmd.UserID, cmd.ActingAdminID, cmd.Reason)
		if !out.OK {
			return Fail(userErrCode(out.Code), messageFor(userErrCode(out.Code))), nil
		}
		bus.Publish(ctx, out.Event)
		return Ok(msgUserBanned(), nil), nil
	})

	r.Register(UnbanUser{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(UnbanUser)
		out := ops.UnbanUser(ctx, cmd.UserID)
		if !out.OK {
			return Fail(userErrCode(out.Code), messageFor(userErrCode(out.Code))), nil
		}
		bus.Publish(ctx, out.Event)
		return Ok(msgUserUnbanned(), nil), nil
	})
}
