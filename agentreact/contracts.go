package agentreact

import (
	"errors"

	"github.com/Gurpartap/jiraagent/agent"
)

var (
	ErrMissingModel        = errors.New("decision loop requires a model")
	ErrMissingToolExecutor = errors.New("decision loop requires a capability executor")
)

// ModelRequest is the model input contract for the ReAct engine.
type ModelRequest = agent.ModelRequest

// Model chooses the next action or emits the final answer.
type Model = agent.Model

// ToolExecutor resolves and invokes capabilities.
type ToolExecutor = agent.ToolExecutor

// DecisionStep is one Thought/Action/Observation iteration of a run.
// A final step carries the answer in Thought and has no capability.
type DecisionStep struct {
	Thought     string
	Capability  string
	ActionInput string
	Observation string
	Observed    bool
	Final       bool
}
