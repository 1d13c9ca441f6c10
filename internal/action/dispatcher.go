// Package action filters and dispatches record-bound operations. Two
// surfaces live here: the programmatic Dispatcher for handlers registered
// in code, and the Resolver for actions declared in dataset definitions.
package action

import (
	"context"

	"github.com/stackpal/tessera/model"
)

// Action is a programmatic operation bound to a record. Visible, when set,
// decides per record whether the action is offered; a nil Visible means
// always offered. Handler performs the operation; the dispatcher imposes
// no retry or error policy on it.
type Action struct {
	Key     string
	Label   string
	Visible func(model.Record) bool
	Handler func(context.Context, model.Record) error
}

// Dispatcher holds a fixed set of programmatic actions. Actions are
// stateless; each evaluation and dispatch is self-contained.
type Dispatcher struct {
	actions []Action
	byKey   map[string]int
}

// NewDispatcher builds a Dispatcher over the given actions. Later entries
// with a repeated key shadow earlier ones for dispatch but keep their own
// position in Available.
func NewDispatcher(actions []Action) *Dispatcher {
	d := &Dispatcher{
		actions: make([]Action, len(actions)),
		byKey:   make(map[string]int, len(actions)),
	}
	copy(d.actions, actions)
	for i, a := range d.actions {
		d.byKey[a.Key] = i
	}
	return d
}

// Available returns the actions offered for the record, in registration
// order, by evaluating each action's visibility predicate fresh.
func (d *Dispatcher) Available(rec model.Record) []Action {
	out := make([]Action, 0, len(d.actions))
	for _, a := range d.actions {
		if a.Visible == nil || a.Visible(rec) {
			out = append(out, a)
		}
	}
	return out
}

// Dispatch invokes the handler of the named action with the record.
// Handler failures propagate unchanged; the caller owns surfacing them.
func (d *Dispatcher) Dispatch(ctx context.Context, key string, rec model.Record) error {
	idx, ok := d.byKey[key]
	if !ok {
		return model.NewNotFoundError("unknown action: " + key)
	}
	a := d.actions[idx]
	if a.Handler == nil {
		return model.NewNotFoundError("action has no handler: " + key)
	}
	return a.Handler(ctx, rec)
}
