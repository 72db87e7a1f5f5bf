package inmem

import (
	"fmt"
	"sync/atomic"
)

// CounterIDGenerator provides deterministic in-process entity IDs.
type CounterIDGenerator struct {
	prefix  string
	counter atomic.Uint64
}

func NewCounterIDGenerator(prefix string) *CounterIDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &CounterIDGenerator{
		prefix: prefix,
	}
}

func (g *CounterIDGenerator) Next() string {
	next := g.counter.Add(1)
	return fmt.Sprintf("%s-%06d", g.prefix, next)
}
