// Package chatnotify renders the subset of domain events that need a
// human's attention into a short HTML body, converted from Markdown with
// goldmark, that the chat-adapter collaborator can relay, and nothing
// more: actually delivering the
// message to chat is the external bot's job (spec.md §6).
package chatnotify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark"

	"github.com/gustsr/sentinela/conversation"
	"github.com/gustsr/sentinela/domainevent"
	"github.com/gustsr/sentinela/integration"
	"github.com/gustsr/sentinela/ticket"
	"github.com/gustsr/sentinela/verification"
)

// Priority ranks a Notification for the chat adapter's routing (spec.md
// §5's NotificationPriority).
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
)

// Audience is who should see the notification: the support/tech team, or
// an admin specifically.
type Audience string

const (
	AudienceTech  Audience = "tech"
	AudienceAdmin Audience = "admin"
)

// Notification is the rendered payload handed to the chat-adapter sink.
type Notification struct {
	Audience Audience
	Priority Priority
	Title    string
	BodyHTML string
}

// Sink delivers a rendered Notification. The composition root supplies
// the concrete chat-bot transport; chatnotify only formats.
type Sink func(ctx context.Context, n Notification) error

// Subscriber formats and forwards the events in spec.md §3's
// "notification-worthy" set: CPF duplicate conflicts (admin review),
// ticket urgency reaching Critical (tech), integration failures
// exhausting retries (tech), and conversations closed by the idle
// timeout (tech).
type Subscriber struct {
	sink Sink
	log  *slog.Logger
}

// NewSubscriber builds a Subscriber delivering through sink.
func NewSubscriber(sink Sink, log *slog.Logger) *Subscriber {
	return &Subscriber{sink: sink, log: log}
}

// Register wires the subscriber onto bus under a stable handler id.
func (s *Subscriber) Register(bus *domainevent.Bus) {
	bus.Subscribe("CPFDuplicateDetected", "chatnotify", s.handle)
	bus.Subscribe("TicketUrgencyElevated", "chatnotify", s.handle)
	bus.Subscribe("IntegrationFailed", "chatnotify", s.handle)
	bus.Subscribe("ConversationTimedOut", "chatnotify", s.handle)
}

func (s *Subscriber) handle(ctx context.Context, evt domainevent.Event) error {
	n, ok := render(evt)
	if !ok {
		return nil
	}
	if err := s.sink(ctx, n); err != nil {
		s.log.Error("chatnotify: delivery failed", "event", evt.EventType(), "error", err)
		return err
	}
	return nil
}

func render(evt domainevent.Event) (Notification, bool) {
	switch e := evt.(type) {
	case verification.DuplicateDetected:
		return markdown(AudienceAdmin, PriorityHigh, "CPF duplicado detectado",
			fmt.Sprintf("CPF **%s** já está associado a outro(s) usuário(s): `%v`.\n\nRisco: **%s**.",
				e.CPFMasked, e.ConflictUsers, e.Risk)), true

	case ticket.UrgencyElevated:
		if e.To != ticket.UrgencyCritical {
			return Notification{}, false
		}
		return markdown(AudienceTech, PriorityCritical, "Chamado elevado para urgência crítica",
			fmt.Sprintf("Chamado `%s` passou de **%s** para **%s**.", e.TicketID, e.From, e.To)), true

	case integration.Failed:
		return markdown(AudienceTech, PriorityHigh, "Integração com o HubSoft falhou",
			fmt.Sprintf("Requisição `%s` (%s) esgotou as tentativas.\n\nMotivo: %s", e.RequestID, e.Type, e.Reason)), true

	case conversation.TimedOut:
		return markdown(AudienceTech, PriorityNormal, "Atendimento encerrado por inatividade",
			fmt.Sprintf("Conversa `%s` foi encerrada automaticamente por inatividade.", e.ConversationID)), true

	default:
		return Notification{}, false
	}
}

func markdown(audience Audience, priority Priority, title, body string) Notification {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(body), &buf); err != nil {
		return Notification{Audience: audience, Priority: priority, Title: title, BodyHTML: body}
	}
	return Notification{Audience: audience, Priority: priority, Title: title, BodyHTML: buf.String()}
}
