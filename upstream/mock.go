package upstream

import (
	"context"
	"sync"
)

// InMemoryClient is a test double implementing Client without any network
// I/O.
type InMemoryClient struct {
	mu        sync.Mutex
	Clients   map[string]*ClientRecord // keyed by CPF digits
	Tickets   map[string]*TicketStatus // keyed by upstream id
	nextID    int
	HealthErr error
}

// NewInMemoryClient builds an empty InMemoryClient.
func NewInMemoryClient() *InMemoryClient {
	return &InMemoryClient{Clients: map[string]*ClientRecord{}, Tickets: map[string]*TicketStatus{}}
}

func (c *InMemoryClient) VerifyClientByCPF(_ context.Context, cpfDigits string, _ bool) (*ClientRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.Clients[cpfDigits]
	return r, ok, nil
}

func (c *InMemoryClient) CreateTicket(_ context.Context, _ TicketPayload) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := "mock-" + itoa(c.nextID)
	c.Tickets[id] = &TicketStatus{UpstreamID: id, Status: "open"}
	return id, "proto-1", nil
}

func (c *InMemoryClient) UpdateTicket(_ context.Context, upstreamID string, patch map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.Tickets[upstreamID]
	if !ok {
		return &Error{StatusCode: 404, Code: "not_found", Message: "ticket not found"}
	}
	if status, ok := patch["status"].(string); ok {
		t.Status = status
	}
	return nil
}

func (c *InMemoryClient) GetTicketStatus(_ context.Context, upstreamID string) (*TicketStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.Tickets[upstreamID]
	if !ok {
		return nil, &Error{StatusCode: 404, Code: "not_found", Message: "ticket not found"}
	}
	return t, nil
}

func (c *InMemoryClient) SearchTicketsByCPF(context.Context, string, int) ([]TicketStatus, error) {
	return nil, nil
}

func (c *InMemoryClient) GetClientContracts(_ context.Context, cpfDigits string) ([]Contract, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.Clients[cpfDigits]
	if !ok {
		return nil, &Error{StatusCode: 404, Code: "not_found", Message: "client not found"}
	}
	return r.Contracts, nil
}

func (c *InMemoryClient) CheckHealth(context.Context) (*Health, error) {
	if c.HealthErr != nil {
		return nil, c.HealthErr
	}
	return &Health{Status: "ok", ResponseTimeMS: 1}, nil
}

var _ Client = (*InMemoryClient)(nil)

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
