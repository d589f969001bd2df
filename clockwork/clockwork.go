// Package clockwork provides the injected time source and identifier
// generator used throughout the engine, so the state machines stay
// deterministic under test.
package clockwork

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts wall-clock time.
type Clock interface {
	Now() time.Time
}

// IDGen abstracts identifier generation. Every aggregate id in this module
// (VerificationId, TicketId, ConversationId, IntegrationId) is a UUID v4
// string minted through this interface.
type IDGen interface {
	NewID() string
}

// Real is the production Clock, backed by time.Now.
type Real struct{}

// Now returns the current wall-clock time.
func (Real) Now() time.Time { return time.Now() }

// UUIDGen is the production IDGen, backed by google/uuid.
type UUIDGen struct{}

// NewID returns a new random UUID v4 string.
func (UUIDGen) NewID() string { return uuid.NewString() }

// Fake is a deterministic Clock + IDGen for tests: Now() returns a
// manually-advanced instant, and NewID() returns predictable, incrementing
// ids instead of random UUIDs.
type Fake struct {
	mu      sync.Mutex
	instant time.Time
	counter int
	prefix  string
}

// NewFake returns a Fake clock starting at the given instant. If prefix is
// empty, generated ids are prefixed "fake-".
func NewFake(start time.Time, prefix string) *Fake {
	if prefix == "" {
		prefix = "fake-"
	}
	return &Fake{instant: start, prefix: prefix}
}

// Now returns the fake's current instant.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.instant
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instant = f.instant.Add(d)
}

// Set pins the fake clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instant = t
}

// NewID returns the next deterministic id: "<prefix><n>".
func (f *Fake) NewID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	return f.prefix + itoa(f.counter)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
