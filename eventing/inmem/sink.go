package inmem

import (
	"context"
	"slices"
	"sync"

	"github.com/Gurpartap/horizons/agent"
)

// Sink captures turn events in memory and exposes deterministic snapshots.
type Sink struct {
	mu     sync.RWMutex
	events []agent.Event
	limit  int
}

var _ agent.EventSink = (*Sink)(nil)

func New() *Sink {
	return &Sink{events: make([]agent.Event, 0)}
}

// NewBounded keeps only the most recent limit events. limit <= 0 keeps all.
func NewBounded(limit int) *Sink {
	sink := New()
	if limit > 0 {
		sink.limit = limit
	}
	return sink
}

func (s *Sink) Publish(ctx context.Context, event agent.Event) error {
	if ctx == nil {
		return agent.ErrContextNil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err := agent.ValidateEvent(event); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, agent.CloneEvent(event))
	if s.limit > 0 && len(s.events) > s.limit {
		s.events = slices.Delete(s.events, 0, len(s.events)-s.limit)
	}
	return nil
}

func (s *Sink) Events() []agent.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]agent.Event, len(s.events))
	for i := range s.events {
		out[i] = agent.CloneEvent(s.events[i])
	}
	return out
}

// EventsForTurn returns the events of one turn in publish order.
func (s *Sink) EventsForTurn(turnID string) []agent.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]agent.Event, 0)
	for i := range s.events {
		if s.events[i].TurnID == turnID {
			out = append(out, agent.CloneEvent(s.events[i]))
		}
	}
	return out
}
