package agent_test

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Gurpartap/jiraagent/agent"
)

type counterIDGenerator struct {
	prefix  string
	counter atomic.Uint64
}

func newCounterIDGenerator(prefix string) *counterIDGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &counterIDGenerator{prefix: prefix}
}

func (g *counterIDGenerator) NewRunID(_ context.Context) (agent.RunID, error) {
	next := g.counter.Add(1)
	return agent.RunID(fmt.Sprintf("%s-%06d", g.prefix, next)), nil
}

type engineSpy struct {
	calls     int
	executeFn func(ctx context.Context, state agent.RunState, input agent.EngineInput) (agent.RunState, error)
}

func (e *engineSpy) Execute(ctx context.Context, state agent.RunState, input agent.EngineInput) (agent.RunState, error) {
	e.calls++
	if e.executeFn == nil {
		return state, nil
	}
	return e.executeFn(ctx, state, input)
}

type emptyIDGenerator struct{}

func (emptyIDGenerator) NewRunID(context.Context) (agent.RunID, error) {
	return "", nil
}
