// Package trace prints a human-readable Thought/Action/Observation transcript of each run.
package trace

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Gurpartap/jiraagent/agent"
)

// Sink writes the reasoning trace of every run to an io.Writer.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

var _ agent.EventSink = (*Sink)(nil)

func New(w io.Writer) *Sink {
	return &Sink{w: w}
}

func (s *Sink) Publish(ctx context.Context, event agent.Event) error {
	if ctx == nil {
		return agent.ErrContextNil
	}

	var b strings.Builder
	switch event.Type {
	case agent.EventTypeRunStarted:
		fmt.Fprintf(&b, "\n> Entering run %s...\n", event.RunID)
	case agent.EventTypeAssistantMessage:
		writeDecision(&b, event.Message)
	case agent.EventTypeToolResult:
		fmt.Fprintf(&b, "Observation: %s\n", event.ToolResult.Content)
	case agent.EventTypeRunCompleted:
		b.WriteString("> Finished run.\n")
	case agent.EventTypeRunFailed:
		fmt.Fprintf(&b, "> Run failed at step %d: %s\n", event.Step, event.Description)
	case agent.EventTypeRunCancelled:
		fmt.Fprintf(&b, "> Run cancelled at step %d: %s\n", event.Step, event.Description)
	default:
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, b.String())
	return err
}

func writeDecision(b *strings.Builder, message *agent.Message) {
	if message == nil {
		return
	}
	thought := strings.TrimSpace(message.Content)
	if len(message.ToolCalls) == 0 {
		b.WriteString("Thought: I now know the final answer\n")
		fmt.Fprintf(b, "Final Answer: %s\n", thought)
		return
	}
	if thought != "" {
		fmt.Fprintf(b, "Thought: %s\n", thought)
	}
	for _, call := range message.ToolCalls {
		input, _ := agent.ToolCallInput(call)
		fmt.Fprintf(b, "Action: %s\nAction Input: %s\n", call.Name, input)
	}
}
