package inmem

import (
	"context"
	"sync"

	"github.com/Gurpartap/jiraagent/agent"
)

// Sink keeps every published event, indexed by run, so transcripts can be replayed within the process.
type Sink struct {
	mu     sync.RWMutex
	events []agent.Event
	byRun  map[agent.RunID][]int
}

var _ agent.EventSink = (*Sink)(nil)

func New() *Sink {
	return &Sink{byRun: make(map[agent.RunID][]int)}
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

	s.byRun[event.RunID] = append(s.byRun[event.RunID], len(s.events))
	s.events = append(s.events, agent.CloneEvent(event))
	return nil
}

// Events returns deep copies of all events in publish order.
func (s *Sink) Events() []agent.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]agent.Event, len(s.events))
	for i := range s.events {
		out[i] = agent.CloneEvent(s.events[i])
	}
	return out
}

// ForRun returns deep copies of one run's events in publish order, or nil for an unknown run.
func (s *Sink) ForRun(runID agent.RunID) []agent.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indexes := s.byRun[runID]
	if len(indexes) == 0 {
		return nil
	}
	out := make([]agent.Event, len(indexes))
	for i, index := range indexes {
		out[i] = agent.CloneEvent(s.events[index])
	}
	return out
}

// Types returns the event types in publish order.
func (s *Sink) Types() []agent.EventType {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]agent.EventType, len(s.events))
	for i := range s.events {
		out[i] = s.events[i].Type
	}
	return out
}
