package agentreact_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gurpartap/jiraagent/agent"
)

type executeFunc func(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error)

// recordingExecutor answers every call with a fixed observation unless executeFn is set.
type recordingExecutor struct {
	mu        sync.Mutex
	calls     []agent.ToolCall
	executeFn executeFunc
}

func (e *recordingExecutor) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	e.mu.Lock()
	e.calls = append(e.calls, agent.CloneToolCall(call))
	fn := e.executeFn
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, call)
	}
	return agent.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: fmt.Sprintf("observation for %s", call.Name),
	}, nil
}

func (e *recordingExecutor) Calls() []agent.ToolCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]agent.ToolCall, len(e.calls))
	copy(out, e.calls)
	return out
}

func capabilityDefinitions(names ...string) []agent.ToolDefinition {
	out := make([]agent.ToolDefinition, 0, len(names))
	for _, name := range names {
		out = append(out, agent.ToolDefinition{
			Name:        name,
			Description: "Fetch " + name,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					agent.ToolInputArgument: map[string]any{"type": "string"},
				},
				"additionalProperties": false,
			},
		})
	}
	return out
}

func pendingState(task string) agent.RunState {
	return agent.RunState{
		ID:     "run-1",
		Status: agent.RunStatusPending,
		Messages: []agent.Message{
			{Role: agent.RoleSystem, Content: "Answer questions about Jira issues."},
			{Role: agent.RoleUser, Content: task},
		},
	}
}
