package agent

import "context"

// ModelRequest is the minimal decision-service input contract required by the loop.
type ModelRequest struct {
	Messages []Message
	Tools    []ToolDefinition
}

// Model chooses the next action or concludes with a final answer.
// Implementations are treated as black boxes with no determinism guarantee.
type Model interface {
	Generate(ctx context.Context, request ModelRequest) (Message, error)
}

// ToolExecutor resolves and invokes capabilities by name.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) (ToolResult, error)
}

// RunStore keeps run state for the lifetime of the process.
// Save uses optimistic concurrency based on RunState.Version and bumps it by one on success.
type RunStore interface {
	Save(ctx context.Context, state RunState) error
	Load(ctx context.Context, runID RunID) (RunState, error)
}

// EventSink receives normalized runtime events.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// DiscardEvents accepts and drops every event.
var DiscardEvents EventSink = discardEvents{}

type discardEvents struct{}

func (discardEvents) Publish(context.Context, Event) error { return nil }

// IDGenerator creates run IDs at the runtime boundary.
type IDGenerator interface {
	NewRunID(ctx context.Context) (RunID, error)
}

// CompletionRequest is a plain-text prompt for providers driven by the text ReAct protocol.
type CompletionRequest struct {
	Prompt string
	Stop   []string
}

// Completer produces a raw text completion for a prompt, cut at the first stop sequence.
type Completer interface {
	Complete(ctx context.Context, request CompletionRequest) (string, error)
}
