package dispatcher

import (
	"context"

	"github.com/gustsr/sentinela/conversation"
	"github.com/gustsr/sentinela/errcode"
)

// resolveActiveConversation looks up the caller's active conversation id;
// every step command in spec.md §6 is addressed by user_id, while
// conversation.Engine's operations are addressed by conversation id.
func resolveActiveConversation(ctx context.Context, repo conversation.Repository, userID string) (string, Result, error) {
	c, found, err := repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return "", Result{}, err
	}
	if !found {
		return "", Fail(errcode.ConversationStepMismatch, msgConversationStepMismatch()), nil
	}
	return c.ID, Result{}, nil
}

func registerConversationHandlers(r *Registry, engine *conversation.Engine, repo conversation.Repository) {
	r.Register(StartSupportConversation{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(StartSupportConversation)
		res, err := engine.StartConversation(ctx, cmd.UserID, cmd.Username)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgConversationStarted(), map[string]any{"conversation_id": res.Conversation.ID}), nil
	})

	r.Register(SelectCategory{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(SelectCategory)
		id, bad, err := resolveActiveConversation(ctx, repo, cmd.UserID)
		if err != nil || id == "" {
			return bad, err
		}
		res, err := engine.SelectCategory(ctx, id, cmd.Category)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgStepAdvanced(), nil), nil
	})

	r.Register(SelectGame{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(SelectGame)
		id, bad, err := resolveActiveConversation(ctx, repo, cmd.UserID)
		if err != nil || id == "" {
			return bad, err
		}
		res, err := engine.SelectGame(ctx, id, conversation.GameTitle(cmd.Game))
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgStepAdvanced(), nil), nil
	})

	r.Register(SelectTiming{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(SelectTiming)
		id, bad, err := resolveActiveConversation(ctx, repo, cmd.UserID)
		if err != nil || id == "" {
			return bad, err
		}
		res, err := engine.SelectTiming(ctx, id, conversation.ProblemTiming(cmd.Timing))
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgStepAdvanced(), nil), nil
	})

	r.Register(SetDescription{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(SetDescription)
		id, bad, err := resolveActiveConversation(ctx, repo, cmd.UserID)
		if err != nil || id == "" {
			return bad, err
		}
		res, err := engine.SetDescription(ctx, id, cmd.Description)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			if res.Code == errcode.CannotAttempt {
				return Fail(res.Code, msgDescriptionTooShort()), nil
			}
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgStepAdvanced(), nil), nil
	})

	r.Register(AddAttachment{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(AddAttachment)
		id, bad, err := resolveActiveConversation(ctx, repo, cmd.UserID)
		if err != nil || id == "" {
			return bad, err
		}
		res, err := engine.AddAttachment(ctx, id, cmd.AttachmentRef)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgStepAdvanced(), nil), nil
	})

	r.Register(SkipAttachments{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(SkipAttachments)
		id, bad, err := resolveActiveConversation(ctx, repo, cmd.UserID)
		if err != nil || id == "" {
			return bad, err
		}
		res, err := engine.SkipAttachments(ctx, id)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgStepAdvanced(), nil), nil
	})

	r.Register(ConfirmAndCreateTicket{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(ConfirmAndCreateTicket)
		id, bad, err := resolveActiveConversation(ctx, repo, cmd.UserID)
		if err != nil || id == "" {
			return bad, err
		}
		res, err := engine.ConfirmAndCreateTicket(ctx, id)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgTicketCreated(res.Conversation.TicketID), map[string]any{
			"ticket_id": res.Conversation.TicketID,
		}), nil
	})

	r.Register(CancelConversation{}, func(ctx context.Context, c Command) (Result, error) {
		cmd := c.(CancelConversation)
		id, bad, err := resolveActiveConversation(ctx, repo, cmd.UserID)
		if err != nil || id == "" {
			return bad, err
		}
		res, err := engine.CancelConversation(ctx, id, cmd.Reason)
		if err != nil {
			return Result{}, err
		}
		if !res.OK {
			return Fail(res.Code, messageFor(res.Code)), nil
		}
		return Ok(msgConversationCancelled(), nil), nil
	})

	r.Register(ProcessConversationTimeouts{}, func(ctx context.Context, _ Command) (Result, error) {
		count, err := engine.TimeoutSweep(ctx, 500)
		if err != nil {
			return Result{}, err
		}
		return Ok(msgTimeoutSweepProcessed(count), map[string]any{"processed": count}), nil
	})
}
