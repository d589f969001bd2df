// Package metrics exposes Prometheus collectors fed by a global
// domainevent subscriber, covering verification outcomes, ticket status
// changes, and the integration scheduler's queue/breaker health
// (spec.md §1's "metrics" collaborator).
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gustsr/sentinela/conversation"
	"github.com/gustsr/sentinela/domainevent"
	"github.com/gustsr/sentinela/integration"
	"github.com/gustsr/sentinela/ticket"
	"github.com/gustsr/sentinela/verification"
)

// Collectors groups every metric this package registers.
type Collectors struct {
	VerificationAttempts *prometheus.CounterVec
	VerificationOutcomes *prometheus.CounterVec
	TicketsCreated       *prometheus.CounterVec
	TicketStatusChanges  *prometheus.CounterVec
	ConversationTimeouts prometheus.Counter
	IntegrationOutcomes  *prometheus.CounterVec
	QueueDepth           prometheus.Gauge
	BreakerState         prometheus.Gauge
}

// NewCollectors builds and registers every collector against reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		VerificationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinela", Subsystem: "verification", Name: "attempts_total",
			Help: "CPF verification attempts, labeled by outcome.",
		}, []string{"success"}),
		VerificationOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinela", Subsystem: "verification", Name: "outcomes_total",
			Help: "Terminal verification outcomes, labeled by kind.",
		}, []string{"kind"}),
		TicketsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinela", Subsystem: "ticket", Name: "created_total",
			Help: "Tickets created, labeled by initial urgency.",
		}, []string{"urgency"}),
		TicketStatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinela", Subsystem: "ticket", Name: "status_changes_total",
			Help: "Ticket status transitions, labeled by target status.",
		}, []string{"to"}),
		ConversationTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentinela", Subsystem: "conversation", Name: "timeouts_total",
			Help: "Support conversations closed by the idle sweep.",
		}),
		IntegrationOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinela", Subsystem: "integration", Name: "outcomes_total",
			Help: "Terminal integration request outcomes, labeled by type and outcome.",
		}, []string{"type", "outcome"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sentinela", Subsystem: "integration", Name: "queue_depth",
			Help: "Current integration scheduler queue length.",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sentinela", Subsystem: "integration", Name: "breaker_open",
			Help: "1 when the upstream circuit breaker is open, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.VerificationAttempts, c.VerificationOutcomes,
		c.TicketsCreated, c.TicketStatusChanges, c.ConversationTimeouts,
		c.IntegrationOutcomes, c.QueueDepth, c.BreakerState,
	)
	return c
}

// Subscriber feeds Collectors from every published domain event.
type Subscriber struct {
	c *Collectors
}

// NewSubscriber builds a Subscriber over c.
func NewSubscriber(c *Collectors) *Subscriber { return &Subscriber{c: c} }

// Register wires the subscriber as a global bus listener.
func (s *Subscriber) Register(bus *domainevent.Bus) {
	bus.SubscribeAll("metrics", s.handle)
}

func (s *Subscriber) handle(_ context.Context, evt domainevent.Event) error {
	switch e := evt.(type) {
	case verification.AttemptMade:
		s.c.VerificationAttempts.WithLabelValues(boolLabel(e.Success)).Inc()
	case verification.Completed:
		s.c.VerificationOutcomes.WithLabelValues("completed").Inc()
	case verification.Failed:
		s.c.VerificationOutcomes.WithLabelValues("failed").Inc()
	case verification.Expired:
		s.c.VerificationOutcomes.WithLabelValues("expired").Inc()
	case verification.Cancelled:
		s.c.VerificationOutcomes.WithLabelValues("cancelled").Inc()
	case ticket.Created:
		s.c.TicketsCreated.WithLabelValues(string(e.Urgency)).Inc()
	case ticket.StatusChanged:
		s.c.TicketStatusChanges.WithLabelValues(string(e.To)).Inc()
	case conversation.TimedOut:
		s.c.ConversationTimeouts.Inc()
	case integration.Completed:
		s.c.IntegrationOutcomes.WithLabelValues(string(e.Type), "completed").Inc()
	case integration.Failed:
		s.c.IntegrationOutcomes.WithLabelValues(string(e.Type), "failed").Inc()
	}
	return nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ObserveQueueDepth records the scheduler's current queue length. The
// composition root calls this periodically since queue depth isn't
// itself a domain event.
func (c *Collectors) ObserveQueueDepth(n int) { c.QueueDepth.Set(float64(n)) }

// ObserveBreakerOpen records whether the upstream circuit breaker is
// currently open.
func (c *Collectors) ObserveBreakerOpen(open bool) {
	if open {
		c.BreakerState.Set(1)
		return
	}
	c.BreakerState.Set(0)
}
