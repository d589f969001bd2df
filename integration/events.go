package integration

import (
	"time"

	"github.com/gustsr/sentinela/domainevent"
)

// Completed is published when a request reaches Completed.
type Completed struct {
	domainevent.Base
	RequestID string
	Type      Type
}

func newCompleted(r *Request, at time.Time) Completed {
	return Completed{Base: domainevent.NewBase("IntegrationCompleted", at), RequestID: r.ID, Type: r.Type}
}

// Failed is published when a request exhausts its retries.
type Failed struct {
	domainevent.Base
	RequestID string
	Type      Type
	Reason    string
}

func newFailed(r *Request, reason string, at time.Time) Failed {
	return Failed{Base: domainevent.NewBase("IntegrationFailed", at), RequestID: r.ID, Type: r.Type, Reason: reason}
}
