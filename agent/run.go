package agent

// RunID is the stable identifier for one task execution.
type RunID string

// RunStatus captures coarse execution state.
type RunStatus string

const (
	RunStatusPending                RunStatus = "pending"
	RunStatusRunning                RunStatus = "running"
	RunStatusCancelled              RunStatus = "cancelled"
	RunStatusCompleted              RunStatus = "completed"
	RunStatusFailed                 RunStatus = "failed"
	RunStatusIterationLimitExceeded RunStatus = "iteration_limit_exceeded"
)

// RunInput configures a fresh run for one task.
type RunInput struct {
	RunID        RunID
	SystemPrompt string
	Task         string
	MaxSteps     int
	Tools        []ToolDefinition
}

// RunState is the scratchpad and status of one run.
type RunState struct {
	ID       RunID     `json:"id"`
	Version  int64     `json:"version"`
	Step     int       `json:"step"`
	Status   RunStatus `json:"status"`
	Output   string    `json:"output,omitempty"`
	Error    string    `json:"error,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// CloneRunState returns a deep copy safe for in-memory stores.
func CloneRunState(in RunState) RunState {
	out := in
	out.Messages = CloneMessages(in.Messages)
	return out
}

// Task returns the operator task that seeded the run.
func (s RunState) Task() string {
	msg, _ := FirstMessage(s.Messages, RoleUser)
	return msg.Content
}

// RunResult is returned by the runtime API.
type RunResult struct {
	State RunState
}
