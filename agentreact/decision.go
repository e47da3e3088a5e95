package agentreact

import (
	"fmt"
	"strings"

	"github.com/Gurpartap/jiraagent/agent"
)

// decide reads one assistant message as either a single action against the catalog or a final answer.
// The returned call is nil for a final answer.
func decide(message agent.Message, catalog map[string]agent.ToolDefinition) (DecisionStep, *agent.ToolCall, error) {
	step := DecisionStep{Thought: strings.TrimSpace(message.Content)}

	switch len(message.ToolCalls) {
	case 0:
		if step.Thought == "" {
			return step, nil, fmt.Errorf("%w: reason=empty_response", agent.ErrMalformedDecision)
		}
		step.Final = true
		return step, nil, nil
	case 1:
	default:
		return step, nil, fmt.Errorf(
			"%w: reason=multiple_actions count=%d",
			agent.ErrMalformedDecision,
			len(message.ToolCalls),
		)
	}

	call := agent.CloneToolCall(message.ToolCalls[0])
	if call.ID == "" {
		return step, nil, fmt.Errorf("%w: reason=empty_call_id name=%q", agent.ErrMalformedDecision, call.Name)
	}
	if call.Name == "" {
		return step, nil, fmt.Errorf("%w: reason=empty_capability id=%q", agent.ErrMalformedDecision, call.ID)
	}
	definition, known := catalog[call.Name]
	if !known {
		return step, nil, fmt.Errorf("%w: %w: %q", agent.ErrMalformedDecision, agent.ErrUnknownCapability, call.Name)
	}
	input, ok := agent.ToolCallInput(call)
	if !ok {
		return step, nil, fmt.Errorf(
			"%w: reason=input_not_string name=%q",
			agent.ErrMalformedDecision,
			call.Name,
		)
	}
	if err := validateToolArguments(definition.InputSchema, call.Arguments); err != nil {
		return step, nil, fmt.Errorf("%w: name=%q: %w", agent.ErrMalformedDecision, call.Name, err)
	}

	step.Capability = call.Name
	step.ActionInput = input
	return step, &call, nil
}

// Steps reconstructs the decision steps recorded in a run transcript.
func Steps(messages []agent.Message) []DecisionStep {
	steps := make([]DecisionStep, 0, len(messages)/2)
	pending := make(map[string]int)
	for _, message := range messages {
		switch message.Role {
		case agent.RoleAssistant:
			step := DecisionStep{Thought: strings.TrimSpace(message.Content)}
			if len(message.ToolCalls) == 0 {
				step.Final = true
				steps = append(steps, step)
				continue
			}
			call := message.ToolCalls[0]
			step.Capability = call.Name
			step.ActionInput, _ = agent.ToolCallInput(call)
			steps = append(steps, step)
			pending[call.ID] = len(steps) - 1
		case agent.RoleTool:
			index, ok := pending[message.ToolCallID]
			if !ok {
				continue
			}
			steps[index].Observation = message.Content
			steps[index].Observed = true
			delete(pending, message.ToolCallID)
		}
	}
	return steps
}
