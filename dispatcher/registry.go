package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/gustsr/sentinela/errcode"
)

// Handler processes one Command and returns its Result. A non-nil error
// is reserved for infrastructure failures (store I/O, upstream transport);
// domain-rule failures are returned as a Result with OK=false instead
// (spec.md §4.1, §9: "replace [exceptions] with the Result envelope").
type Handler func(ctx context.Context, cmd Command) (Result, error)

// Registry maps each command type to exactly one Handler (spec.md §9:
// "collapse into a single handler per command"), built once in the
// composition root rather than discovered via reflection-based name→type
// wiring.
type Registry struct {
	log      *slog.Logger
	handlers map[reflect.Type]Handler
}

// NewRegistry builds an empty Registry. Use Register to wire each command.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{log: log, handlers: make(map[reflect.Type]Handler)}
}

// Register wires h as the single handler for every Command sharing cmd's
// concrete type. Registering the same type twice overwrites the previous
// handler, since spec.md §9 requires exactly one handler per command.
func (r *Registry) Register(cmd Command, h Handler) {
	r.handlers[reflect.TypeOf(cmd)] = h
}

// Dispatch routes cmd to its registered Handler. A missing handler, a
// handler-returned error, or a recovered panic are all programmer-error
// conditions: they are logged and converted to a system_error Result
// rather than propagated to the caller (spec.md §7's propagation policy).
func (r *Registry) Dispatch(ctx context.Context, cmd Command) (result Result) {
	t := reflect.TypeOf(cmd)

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("dispatcher: handler panicked", "command", t.Name(), "recover", rec)
			result = Fail(errcode.SystemError, msgSystemError)
		}
	}()

	h, found := r.handlers[t]
	if !found {
		r.log.Error("dispatcher: no handler registered", "command", t.Name())
		return Fail(errcode.SystemError, msgSystemError)
	}

	res, err := h(ctx, cmd)
	if err != nil {
		r.log.Error("dispatcher: handler failed", "command", t.Name(), "error", err)
		return Fail(errcode.SystemError, msgSystemError)
	}
	return res
}

// MustRegistered is a composition-root sanity check: it panics if any of
// the given commands lacks a registered handler, catching a missing wire-up
// at startup instead of at first dispatch (spec.md §9 wants exactly one
// entry point per operation, not a silently-missing one).
func (r *Registry) MustRegistered(cmds ...Command) {
	for _, cmd := range cmds {
		if _, found := r.handlers[reflect.TypeOf(cmd)]; !found {
			panic(fmt.Sprintf("dispatcher: no handler registered for %T", cmd))
		}
	}
}
