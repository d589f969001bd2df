package dispatcher

import (
	"context"

	"github.com/gustsr/sentinela/errcode"
	"github.com/gustsr/sentinela/verification"
)

var validVerificationTypes = map[string]verification.Type{
	string(verification.TypeAutoCheckup):    verification.TypeAutoCheckup,
	string(verification.TypeSupportRequest): verification.TypeSupportRequest,
	string(verification.TypeManualReview):   verification.TypeManualReview,
	string(verification.TypeSecurityCheck):  verification.TypeSecurityCheck,
}

func registerVerificationHandlers(r *Registry, engine *verification.Engine, repo verification.Repository) {
	r.Register(StartCPFVerification{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(StartCPFVerification)

		vt, ok := validVerificationTypes[cmd.VerificationType]
		if !ok {
			return Fail(errcode.InvalidVerificationType, messageFor(errcode.InvalidVerificationType)), nil
		}

		res, err := engine.StartVerification(ctx, cmd.UserID, cmd.Username, vt, cmd.SourceAction)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgVerificationStarted(), map[string]any{"verification_id": res.Request.ID}), nil
	})

	r.Register(SubmitCPFForVerification{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(SubmitCPFForVerification)

		pending, found, err := repo.FindPendingByUser(ctx, cmd.UserID)
		if err != nil {
			return Result{}, err
		}
		if !found {
			return Fail(errcode.NoPendingVerification, msgNoPendingVerification()), nil
		}

		res, err := engine.SubmitCPF(ctx, pending.ID, cmd.CPF)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			if res.Code == errcode.InvalidCPFFormat {
				left := 0
				if updated, found2, ferr := repo.Get(ctx, pending.ID); ferr == nil && found2 {
					left = updated.AttemptsLeft()
				}
				return Result{OK: false, ErrorCode: res.Code, Message: msgInvalidCPFFormat(left), Data: map[string]any{"attempts_left": left}}, nil
			}
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgVerificationCompleted(), map[string]any{
			"verified":        true,
			"verification_id": res.Request.ID,
		}), nil
	})

	r.Register(CancelCPFVerification{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(CancelCPFVerification)

		pending, found, err := repo.FindPendingByUser(ctx, cmd.UserID)
		if err != nil {
			return Result{}, err
		}
		if !found {
			return Fail(errcode.NoPendingVerification, msgNoPendingVerification()), nil
		}

		res, err := engine.CancelVerification(ctx, pending.ID, cmd.Reason)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgVerificationCancelled(), nil), nil
	})

	r.Register(ProcessExpiredVerifications{}, func(ctx context.Context, _ Command) (Result, error) {
		count, err := engine.ExpireSweep(ctx, 500)
		if err != nil {
			return Result{}, err
		}
		return Ok(msgExpireSweepProcessed(count), map[string]any{"processed": count}), nil
	})

	r.Register(ResolveCPFDuplicate{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(ResolveCPFDuplicate)

		strategy := verification.ResolveDuplicateStrategy(cmd.Resolution)
		res, err := engine.ResolveDuplicate(ctx, cmd.VerificationID, strategy, cmd.DuplicateUserIDs)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgDuplicateResolved(), nil), nil
	})
}
