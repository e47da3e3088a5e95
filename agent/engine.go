package agent

import "context"

// Engine drives one run from its seeded state to a terminal state.
type Engine interface {
	Execute(ctx context.Context, state RunState, input EngineInput) (RunState, error)
}

// EngineInput provides execution constraints and the capability catalog.
type EngineInput struct {
	MaxSteps int
	Tools    []ToolDefinition
}
