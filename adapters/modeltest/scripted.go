package modeltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gurpartap/jiraagent/agent"
)

// Response configures one model turn in a scripted sequence.
type Response struct {
	Message agent.Message
	Err     error
}

// Action scripts a turn that selects one capability.
func Action(callID, capability, input string) Response {
	return Response{Message: agent.Message{
		Role:    agent.RoleAssistant,
		Content: fmt.Sprintf("I should use %s.", capability),
		ToolCalls: []agent.ToolCall{{
			ID:        callID,
			Name:      capability,
			Arguments: map[string]any{agent.ToolInputArgument: input},
		}},
	}}
}

// Final scripts a turn that concludes with an answer.
func Final(answer string) Response {
	return Response{Message: agent.Message{Role: agent.RoleAssistant, Content: answer}}
}

// ScriptedModel is a deterministic model adapter for runtime tests.
type ScriptedModel struct {
	mu        sync.Mutex
	index     int
	responses []Response
	requests  []agent.ModelRequest
}

func NewScriptedModel(responses ...Response) *ScriptedModel {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedModel{
		responses: cloned,
	}
}

var _ agent.Model = (*ScriptedModel)(nil)

func (m *ScriptedModel) Generate(_ context.Context, request agent.ModelRequest) (agent.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, agent.ModelRequest{
		Messages: agent.CloneMessages(request.Messages),
		Tools:    agent.CloneToolDefinitions(request.Tools),
	})
	if m.index >= len(m.responses) {
		return agent.Message{}, fmt.Errorf("script exhausted at step %d", m.index+1)
	}
	current := m.responses[m.index]
	m.index++
	if current.Err != nil {
		return agent.Message{}, current.Err
	}
	msg := agent.CloneMessage(current.Message)
	if msg.Role == "" {
		msg.Role = agent.RoleAssistant
	}
	return msg, nil
}

// Requests returns copies of every request received so far.
func (m *ScriptedModel) Requests() []agent.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]agent.ModelRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Completion configures one completer turn.
type Completion struct {
	Text string
	Err  error
}

// ScriptedCompleter replays raw completions for text-protocol tests.
type ScriptedCompleter struct {
	mu          sync.Mutex
	index       int
	completions []Completion
	prompts     []agent.CompletionRequest
}

func NewScriptedCompleter(completions ...Completion) *ScriptedCompleter {
	cloned := make([]Completion, len(completions))
	copy(cloned, completions)
	return &ScriptedCompleter{completions: cloned}
}

var _ agent.Completer = (*ScriptedCompleter)(nil)

func (c *ScriptedCompleter) Complete(_ context.Context, request agent.CompletionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompts = append(c.prompts, agent.CompletionRequest{
		Prompt: request.Prompt,
		Stop:   append([]string(nil), request.Stop...),
	})
	if c.index >= len(c.completions) {
		return "", fmt.Errorf("script exhausted at completion %d", c.index+1)
	}
	current := c.completions[c.index]
	c.index++
	return current.Text, current.Err
}

// Requests returns every completion request received so far.
func (c *ScriptedCompleter) Requests() []agent.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]agent.CompletionRequest, len(c.prompts))
	copy(out, c.prompts)
	return out
}
