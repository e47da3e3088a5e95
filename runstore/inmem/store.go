package inmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gurpartap/jiraagent/agent"
)

// Store keeps run state in memory for the lifetime of the process, with optimistic version checks.
// Nothing is written to disk; history ends with the process.
type Store struct {
	mu     sync.RWMutex
	states map[agent.RunID]agent.RunState
	order  []agent.RunID
}

var _ agent.RunStore = (*Store)(nil)

func New() *Store {
	return &Store{states: map[agent.RunID]agent.RunState{}}
}

func (s *Store) Save(ctx context.Context, state agent.RunState) error {
	if ctx == nil {
		return agent.ErrContextNil
	}
	if err := agent.ValidateRunState(state); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.states[state.ID]
	switch {
	case !exists:
		if state.Version != 0 {
			return fmt.Errorf(
				"%w: run %q expected version 0 on create, got %d",
				agent.ErrRunVersionConflict,
				state.ID,
				state.Version,
			)
		}
		next := agent.CloneRunState(state)
		next.Version = 1
		s.states[state.ID] = next
		s.order = append(s.order, state.ID)
		return nil
	case state.Version != current.Version:
		return fmt.Errorf(
			"%w: run %q expected version %d, got %d",
			agent.ErrRunVersionConflict,
			state.ID,
			current.Version,
			state.Version,
		)
	default:
		next := agent.CloneRunState(state)
		next.Version = current.Version + 1
		s.states[state.ID] = next
		return nil
	}
}

func (s *Store) Load(_ context.Context, runID agent.RunID) (agent.RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[runID]
	if !ok {
		return agent.RunState{}, fmt.Errorf("%w: %q", agent.ErrRunNotFound, runID)
	}
	return agent.CloneRunState(state), nil
}

// List returns all runs in creation order.
func (s *Store) List(_ context.Context) []agent.RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]agent.RunState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, agent.CloneRunState(s.states[id]))
	}
	return out
}
