package agentreact_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/Gurpartap/jiraagent/adapters/modeltest"
	"github.com/Gurpartap/jiraagent/agent"
	"github.com/Gurpartap/jiraagent/agentreact"
	eventinginmem "github.com/Gurpartap/jiraagent/eventing/inmem"
	runstoreinmem "github.com/Gurpartap/jiraagent/runstore/inmem"
)

func TestNew_RequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := agentreact.New(nil, &recordingExecutor{}, nil); !errors.Is(err, agentreact.ErrMissingModel) {
		t.Fatalf("expected ErrMissingModel, got %v", err)
	}
	if _, err := agentreact.New(modeltest.NewScriptedModel(), nil, nil); !errors.Is(err, agentreact.ErrMissingToolExecutor) {
		t.Fatalf("expected ErrMissingToolExecutor, got %v", err)
	}
}

func TestRunnerRun_UnresolvedIssuesScenario(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Action("call-1", "UnresolvedIssues", ""),
		modeltest.Final("There are two unresolved issues: PRJ-1 and PRJ-2."),
	)
	executor := &recordingExecutor{
		executeFn: func(_ context.Context, call agent.ToolCall) (agent.ToolResult, error) {
			return agent.ToolResult{
				CallID:  call.ID,
				Name:    call.Name,
				Content: "- PRJ-1: Login fails (Status: Open)\n- PRJ-2: Crash on save (Status: In Progress)",
			}, nil
		},
	}
	events := eventinginmem.New()
	loop, err := agentreact.New(model, executor, events)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	runner, err := agent.NewRunner(agent.Dependencies{
		IDGenerator: fixedIDGenerator("run-1"),
		RunStore:    runstoreinmem.New(),
		Engine:      loop,
		EventSink:   events,
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	result, err := runner.Run(context.Background(), agent.RunInput{
		SystemPrompt: "Answer questions about Jira issues.",
		Task:         "show me unresolved issues",
		Tools:        capabilityDefinitions("AllIssues", "CurrentUserJiraIssues", "UnassignedIssues", "UnresolvedIssues"),
	})
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if result.State.Status != agent.RunStatusCompleted {
		t.Fatalf("unexpected status: %s", result.State.Status)
	}
	if result.State.Output != "There are two unresolved issues: PRJ-1 and PRJ-2." {
		t.Fatalf("unexpected output: %q", result.State.Output)
	}
	if result.State.Step != 2 {
		t.Fatalf("unexpected step: %d", result.State.Step)
	}

	calls := executor.Calls()
	if len(calls) != 1 || calls[0].Name != "UnresolvedIssues" {
		t.Fatalf("expected exactly one UnresolvedIssues invocation, got %+v", calls)
	}

	wantTypes := []agent.EventType{
		agent.EventTypeRunStarted,
		agent.EventTypeAssistantMessage,
		agent.EventTypeToolResult,
		agent.EventTypeAssistantMessage,
		agent.EventTypeRunCompleted,
	}
	if got := events.Types(); !slices.Equal(got, wantTypes) {
		t.Fatalf("unexpected event types: got=%v want=%v", got, wantTypes)
	}

	steps := agentreact.Steps(result.State.Messages)
	if len(steps) != 2 {
		t.Fatalf("unexpected step count: %d", len(steps))
	}
	if steps[0].Capability != "UnresolvedIssues" || !steps[0].Observed {
		t.Fatalf("unexpected first step: %+v", steps[0])
	}
	if !steps[1].Final || steps[1].Thought != result.State.Output {
		t.Fatalf("unexpected final step: %+v", steps[1])
	}

	requests := model.Requests()
	if len(requests) != 2 {
		t.Fatalf("unexpected model request count: %d", len(requests))
	}
	last := requests[1].Messages[len(requests[1].Messages)-1]
	if last.Role != agent.RoleTool || last.ToolCallID != "call-1" {
		t.Fatalf("observation was not appended to the scratchpad: %+v", last)
	}
}

func TestExecute_ReinvokesRepeatedCapability(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Action("call-1", "AllIssues", ""),
		modeltest.Action("call-2", "AllIssues", ""),
		modeltest.Final("done"),
	)
	executor := &recordingExecutor{}
	loop, err := agentreact.New(model, executor, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	state, err := loop.Execute(context.Background(), pendingState("list everything twice"), agent.EngineInput{
		Tools: capabilityDefinitions("AllIssues"),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if state.Status != agent.RunStatusCompleted {
		t.Fatalf("unexpected status: %s", state.Status)
	}
	if got := len(executor.Calls()); got != 2 {
		t.Fatalf("expected two invocations, got %d", got)
	}
}

func TestExecute_IterationLimitExceeded(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Action("call-1", "AllIssues", ""),
		modeltest.Action("call-2", "AllIssues", ""),
		modeltest.Action("call-3", "AllIssues", ""),
		modeltest.Final("too late"),
	)
	executor := &recordingExecutor{}
	events := eventinginmem.New()
	loop, err := agentreact.New(model, executor, events)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	state, err := loop.Execute(context.Background(), pendingState("loop forever"), agent.EngineInput{
		MaxSteps: 3,
		Tools:    capabilityDefinitions("AllIssues"),
	})
	if !errors.Is(err, agent.ErrIterationLimitExceeded) {
		t.Fatalf("expected ErrIterationLimitExceeded, got %v", err)
	}
	if state.Status != agent.RunStatusIterationLimitExceeded {
		t.Fatalf("unexpected status: %s", state.Status)
	}
	if state.Step != 3 {
		t.Fatalf("unexpected step: %d", state.Step)
	}
	if got := len(executor.Calls()); got != 3 {
		t.Fatalf("expected three invocations, got %d", got)
	}
	if got := len(model.Requests()); got != 3 {
		t.Fatalf("expected three model calls, got %d", got)
	}
	types := events.Types()
	if types[len(types)-1] != agent.EventTypeRunFailed {
		t.Fatalf("expected run_failed last, got %v", types)
	}
}

func TestExecute_DefaultMaxSteps(t *testing.T) {
	t.Parallel()

	responses := make([]modeltest.Response, 0, agentreact.DefaultMaxSteps+1)
	for range agentreact.DefaultMaxSteps + 1 {
		responses = append(responses, modeltest.Action("call", "AllIssues", ""))
	}
	executor := &recordingExecutor{}
	loop, err := agentreact.New(modeltest.NewScriptedModel(responses...), executor, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	state, err := loop.Execute(context.Background(), pendingState("loop forever"), agent.EngineInput{
		Tools: capabilityDefinitions("AllIssues"),
	})
	if !errors.Is(err, agent.ErrIterationLimitExceeded) {
		t.Fatalf("expected ErrIterationLimitExceeded, got %v", err)
	}
	if state.Step != agentreact.DefaultMaxSteps {
		t.Fatalf("unexpected step: %d", state.Step)
	}
	if got := len(executor.Calls()); got != agentreact.DefaultMaxSteps {
		t.Fatalf("unexpected invocation count: %d", got)
	}
}

func TestExecute_UnknownCapabilityIsNeverInvoked(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(modeltest.Action("call-1", "DeleteIssues", ""))
	executor := &recordingExecutor{}
	events := eventinginmem.New()
	loop, err := agentreact.New(model, executor, events)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	state, err := loop.Execute(context.Background(), pendingState("delete everything"), agent.EngineInput{
		Tools: capabilityDefinitions("AllIssues"),
	})
	if !errors.Is(err, agent.ErrMalformedDecision) {
		t.Fatalf("expected ErrMalformedDecision, got %v", err)
	}
	if !errors.Is(err, agent.ErrUnknownCapability) {
		t.Fatalf("expected ErrUnknownCapability, got %v", err)
	}
	if state.Status != agent.RunStatusFailed {
		t.Fatalf("unexpected status: %s", state.Status)
	}
	if len(executor.Calls()) != 0 {
		t.Fatalf("executor must not be called for unknown capability")
	}
	want := []agent.EventType{agent.EventTypeAssistantMessage, agent.EventTypeRunFailed}
	if got := events.Types(); !slices.Equal(got, want) {
		t.Fatalf("unexpected event types: got=%v want=%v", got, want)
	}
}

func TestExecute_CatalogIsFixedAtLoopStart(t *testing.T) {
	t.Parallel()

	tools := capabilityDefinitions("AllIssues")
	model := modeltest.NewScriptedModel(
		modeltest.Action("call-1", "AllIssues", ""),
		modeltest.Action("call-2", "UnresolvedIssues", ""),
	)
	executor := &recordingExecutor{}
	executor.executeFn = func(_ context.Context, call agent.ToolCall) (agent.ToolResult, error) {
		tools[0].Name = "UnresolvedIssues"
		return agent.ToolResult{Content: "ok"}, nil
	}
	loop, err := agentreact.New(model, executor, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	_, err = loop.Execute(context.Background(), pendingState("list"), agent.EngineInput{Tools: tools})
	if !errors.Is(err, agent.ErrUnknownCapability) {
		t.Fatalf("expected ErrUnknownCapability, got %v", err)
	}
	if got := len(executor.Calls()); got != 1 {
		t.Fatalf("unexpected invocation count: %d", got)
	}
}

func TestExecute_MalformedDecisions(t *testing.T) {
	t.Parallel()

	tests := map[string]agent.Message{
		"empty response": {Role: agent.RoleAssistant, Content: "   "},
		"non-assistant role": {Role: agent.RoleUser, Content: "Final answer"},
		"multiple actions": {
			Role: agent.RoleAssistant,
			ToolCalls: []agent.ToolCall{
				{ID: "call-1", Name: "AllIssues"},
				{ID: "call-2", Name: "UnresolvedIssues"},
			},
		},
		"empty capability": {
			Role:      agent.RoleAssistant,
			ToolCalls: []agent.ToolCall{{ID: "call-1"}},
		},
		"empty call id": {
			Role:      agent.RoleAssistant,
			ToolCalls: []agent.ToolCall{{Name: "AllIssues"}},
		},
		"non-string input": {
			Role: agent.RoleAssistant,
			ToolCalls: []agent.ToolCall{{
				ID:        "call-1",
				Name:      "AllIssues",
				Arguments: map[string]any{agent.ToolInputArgument: 42},
			}},
		},
		"undeclared argument": {
			Role: agent.RoleAssistant,
			ToolCalls: []agent.ToolCall{{
				ID:        "call-1",
				Name:      "AllIssues",
				Arguments: map[string]any{"project": "PRJ"},
			}},
		},
	}

	for name, message := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			executor := &recordingExecutor{}
			loop, err := agentreact.New(
				modeltest.NewScriptedModel(modeltest.Response{Message: message}),
				executor,
				nil,
			)
			if err != nil {
				t.Fatalf("new loop: %v", err)
			}
			state, err := loop.Execute(context.Background(), pendingState("list"), agent.EngineInput{
				Tools: capabilityDefinitions("AllIssues", "UnresolvedIssues"),
			})
			if !errors.Is(err, agent.ErrMalformedDecision) {
				t.Fatalf("expected ErrMalformedDecision, got %v", err)
			}
			if state.Status != agent.RunStatusFailed {
				t.Fatalf("unexpected status: %s", state.Status)
			}
			if state.Error == "" {
				t.Fatalf("expected error recorded on state")
			}
			if len(executor.Calls()) != 0 {
				t.Fatalf("executor must not be called")
			}
		})
	}
}

func TestExecute_ModelErrorFailsRun(t *testing.T) {
	t.Parallel()

	modelErr := errors.New("provider unavailable")
	loop, err := agentreact.New(
		modeltest.NewScriptedModel(modeltest.Response{Err: modelErr}),
		&recordingExecutor{},
		nil,
	)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	state, err := loop.Execute(context.Background(), pendingState("list"), agent.EngineInput{})
	if !errors.Is(err, modelErr) {
		t.Fatalf("expected model error, got %v", err)
	}
	if state.Status != agent.RunStatusFailed {
		t.Fatalf("unexpected status: %s", state.Status)
	}
}

func TestExecute_RequestTimeoutFailsRun(t *testing.T) {
	t.Parallel()

	timeoutErr := fmt.Errorf("provider request execute: %w", context.DeadlineExceeded)
	loop, err := agentreact.New(
		modeltest.NewScriptedModel(modeltest.Response{Err: timeoutErr}),
		&recordingExecutor{},
		nil,
	)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	state, err := loop.Execute(context.Background(), pendingState("list"), agent.EngineInput{})
	if !errors.Is(err, timeoutErr) {
		t.Fatalf("expected provider timeout, got %v", err)
	}
	if state.Status != agent.RunStatusFailed {
		t.Fatalf("unexpected status: %s", state.Status)
	}
	if !strings.Contains(state.Error, "provider request execute") {
		t.Fatalf("expected provider context in error, got %q", state.Error)
	}
}

func TestExecute_ExecutorErrorFailsRun(t *testing.T) {
	t.Parallel()

	execErr := errors.New("registry broken")
	executor := &recordingExecutor{
		executeFn: func(context.Context, agent.ToolCall) (agent.ToolResult, error) {
			return agent.ToolResult{}, execErr
		},
	}
	loop, err := agentreact.New(
		modeltest.NewScriptedModel(modeltest.Action("call-1", "AllIssues", "")),
		executor,
		nil,
	)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	state, err := loop.Execute(context.Background(), pendingState("list"), agent.EngineInput{
		Tools: capabilityDefinitions("AllIssues"),
	})
	if !errors.Is(err, execErr) {
		t.Fatalf("expected executor error, got %v", err)
	}
	if state.Status != agent.RunStatusFailed {
		t.Fatalf("unexpected status: %s", state.Status)
	}
}

func TestExecute_ResultIdentityMismatchFailsRun(t *testing.T) {
	t.Parallel()

	executor := &recordingExecutor{
		executeFn: func(_ context.Context, call agent.ToolCall) (agent.ToolResult, error) {
			return agent.ToolResult{CallID: "other", Name: call.Name, Content: "x"}, nil
		},
	}
	loop, err := agentreact.New(
		modeltest.NewScriptedModel(modeltest.Action("call-1", "AllIssues", "")),
		executor,
		nil,
	)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	state, err := loop.Execute(context.Background(), pendingState("list"), agent.EngineInput{
		Tools: capabilityDefinitions("AllIssues"),
	})
	if err == nil {
		t.Fatalf("expected identity error")
	}
	if state.Status != agent.RunStatusFailed {
		t.Fatalf("unexpected status: %s", state.Status)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := modeltest.NewScriptedModel(modeltest.Final("never"))
	events := eventinginmem.New()
	loop, err := agentreact.New(model, &recordingExecutor{}, events)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	state, err := loop.Execute(ctx, pendingState("list"), agent.EngineInput{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if state.Status != agent.RunStatusCancelled {
		t.Fatalf("unexpected status: %s", state.Status)
	}
	if len(model.Requests()) != 0 {
		t.Fatalf("model must not be called after cancellation")
	}
	if got := events.Types(); !slices.Equal(got, []agent.EventType{agent.EventTypeRunCancelled}) {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestExecute_CancellationDuringInvocation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	executor := &recordingExecutor{
		executeFn: func(ctx context.Context, _ agent.ToolCall) (agent.ToolResult, error) {
			cancel()
			return agent.ToolResult{}, ctx.Err()
		},
	}
	loop, err := agentreact.New(
		modeltest.NewScriptedModel(modeltest.Action("call-1", "AllIssues", "")),
		executor,
		nil,
	)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	state, err := loop.Execute(ctx, pendingState("list"), agent.EngineInput{
		Tools: capabilityDefinitions("AllIssues"),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if state.Status != agent.RunStatusCancelled {
		t.Fatalf("unexpected status: %s", state.Status)
	}
}

func TestExecute_RejectsNonPendingState(t *testing.T) {
	t.Parallel()

	loop, err := agentreact.New(modeltest.NewScriptedModel(), &recordingExecutor{}, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	state := pendingState("list")
	state.Status = agent.RunStatusFailed
	if _, err := loop.Execute(context.Background(), state, agent.EngineInput{}); !errors.Is(err, agent.ErrInvalidRunStateTransition) {
		t.Fatalf("expected ErrInvalidRunStateTransition, got %v", err)
	}
}

type fixedIDGenerator agent.RunID

func (g fixedIDGenerator) NewRunID(context.Context) (agent.RunID, error) {
	return agent.RunID(g), nil
}
