package reacttext

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gurpartap/jiraagent/agent"
)

var ErrMissingCompleter = errors.New("missing completer")

// Model drives a plain-text completer through the ReAct prompt format.
type Model struct {
	completer agent.Completer
}

var _ agent.Model = (*Model)(nil)

func New(completer agent.Completer) (*Model, error) {
	if completer == nil {
		return nil, fmt.Errorf("new react text model: %w", ErrMissingCompleter)
	}
	return &Model{completer: completer}, nil
}

func (m *Model) Generate(ctx context.Context, request agent.ModelRequest) (agent.Message, error) {
	text, err := m.completer.Complete(ctx, agent.CompletionRequest{
		Prompt: Format(request.Messages, request.Tools),
		Stop:   []string{StopSequence},
	})
	if err != nil {
		return agent.Message{}, err
	}
	decision, err := Parse(text)
	if err != nil {
		return agent.Message{}, err
	}
	if decision.Final {
		return agent.Message{
			Role:    agent.RoleAssistant,
			Content: decision.FinalAnswer,
		}, nil
	}
	return agent.Message{
		Role:    agent.RoleAssistant,
		Content: decision.Thought,
		ToolCalls: []agent.ToolCall{{
			ID:        fmt.Sprintf("react-%d", countAssistant(request.Messages)+1),
			Name:      decision.Action,
			Arguments: map[string]any{agent.ToolInputArgument: decision.ActionInput},
		}},
	}, nil
}

func countAssistant(messages []agent.Message) int {
	n := 0
	for _, message := range messages {
		if message.Role == agent.RoleAssistant {
			n++
		}
	}
	return n
}
