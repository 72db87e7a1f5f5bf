// Package eventing composes turn event sinks.
package eventing

import (
	"context"
	"errors"
	"slices"

	"github.com/Gurpartap/horizons/agent"
)

type fanout []agent.EventSink

// Fanout publishes every event to each sink in order. A failing sink does not
// stop delivery to the rest; failures are joined.
func Fanout(sinks ...agent.EventSink) agent.EventSink {
	out := make(fanout, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			out = append(out, sink)
		}
	}
	return out
}

func (f fanout) Publish(ctx context.Context, event agent.Event) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Publish(ctx, agent.CloneEvent(event)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type filtered struct {
	next  agent.EventSink
	types []agent.EventType
}

// Only forwards events whose type is one of types.
func Only(next agent.EventSink, types ...agent.EventType) agent.EventSink {
	return filtered{next: next, types: slices.Clone(types)}
}

func (f filtered) Publish(ctx context.Context, event agent.Event) error {
	if f.next == nil || !slices.Contains(f.types, event.Type) {
		return nil
	}
	return f.next.Publish(ctx, event)
}
