package integration

import (
	"time"

	"github.com/sony/gobreaker"
)

// DefaultFailureThreshold is the consecutive-failure count that opens the
// breaker (spec.md §4.6: default 5).
const DefaultFailureThreshold = 5

// DefaultProbeInterval is how often the breaker lets one request through
// to test recovery while open (spec.md §4.6: health-probe every 5s).
const DefaultProbeInterval = 5 * time.Second

// Breaker wraps sony/gobreaker with the scheduler's consecutive-failure
// policy: open after DefaultFailureThreshold failures in a row, half-open
// probe every DefaultProbeInterval.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker builds a Breaker named for logging/metrics purposes.
func NewBreaker(name string) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     DefaultProbeInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= DefaultFailureThreshold
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// IsOpen reports whether the breaker currently short-circuits dispatch.
func (b *Breaker) IsOpen() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// Execute runs fn under the breaker, recording success/failure into
// gobreaker's consecutive-failure counter.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}
