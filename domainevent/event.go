// Package domainevent implements the typed publish/subscribe bus that
// distributes domain events to registered side-effect handlers
// (notifications, audit, metrics) in parallel, with at-most-best-effort
// delivery semantics.
package domainevent

import "time"

// Event is implemented by every domain event. Events are value objects:
// immutable after construction.
type Event interface {
	// EventType returns a stable, concrete type name used for per-type
	// subscriber matching (e.g. "VerificationStarted").
	EventType() string
	// OccurredAt returns when the event was constructed.
	OccurredAt() time.Time
	// EventID returns an id derived from the event's type and timestamp.
	EventID() string
}

// Base embeds the common event fields; concrete event types embed Base and
// implement EventType().
type Base struct {
	ID   string
	At   time.Time
	Kind string
}

// NewBase builds a Base event with an id derived from kind and the
// occurrence time.
func NewBase(kind string, at time.Time) Base {
	return Base{
		ID:   kind + "-" + at.Format("20060102T150405.000000000"),
		At:   at,
		Kind: kind,
	}
}

// EventType returns the event's concrete type name.
func (b Base) EventType() string { return b.Kind }

// OccurredAt returns when the event was constructed.
func (b Base) OccurredAt() time.Time { return b.At }

// EventID returns the derived event id.
func (b Base) EventID() string { return b.ID }
