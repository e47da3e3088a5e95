package agent_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Gurpartap/jiraagent/agent"
	eventinginmem "github.com/Gurpartap/jiraagent/eventing/inmem"
	runstoreinmem "github.com/Gurpartap/jiraagent/runstore/inmem"
)

func newRunnerWithEngine(t *testing.T, store agent.RunStore, events agent.EventSink, engine agent.Engine) *agent.Runner {
	t.Helper()

	runner, err := agent.NewRunner(agent.Dependencies{
		IDGenerator: newCounterIDGenerator("test"),
		RunStore:    store,
		Engine:      engine,
		EventSink:   events,
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return runner
}

func TestNewRunner_RequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := agent.NewRunner(agent.Dependencies{Engine: &engineSpy{}}); !errors.Is(err, agent.ErrMissingIDGenerator) {
		t.Fatalf("expected ErrMissingIDGenerator, got %v", err)
	}
	if _, err := agent.NewRunner(agent.Dependencies{IDGenerator: newCounterIDGenerator("")}); !errors.Is(err, agent.ErrMissingEngine) {
		t.Fatalf("expected ErrMissingEngine, got %v", err)
	}
	if _, err := agent.NewRunner(agent.Dependencies{IDGenerator: newCounterIDGenerator(""), Engine: &engineSpy{}}); err != nil {
		t.Fatalf("store and sink are optional, got %v", err)
	}
}

func TestRunnerRun_SeedsScratchpadAndCompletes(t *testing.T) {
	t.Parallel()

	store := runstoreinmem.New()
	events := eventinginmem.New()
	var gotState agent.RunState
	var gotInput agent.EngineInput
	engine := &engineSpy{
		executeFn: func(_ context.Context, state agent.RunState, input agent.EngineInput) (agent.RunState, error) {
			gotState = agent.CloneRunState(state)
			gotInput = agent.EngineInput{MaxSteps: input.MaxSteps, Tools: agent.CloneToolDefinitions(input.Tools)}

			next := state
			next.Step = 1
			next.Status = agent.RunStatusCompleted
			next.Output = "done"
			return next, nil
		},
	}
	runner := newRunnerWithEngine(t, store, events, engine)

	result, err := runner.Run(context.Background(), agent.RunInput{
		SystemPrompt: "system",
		Task:         "  show me all unresolved issues ",
		MaxSteps:     3,
		Tools: []agent.ToolDefinition{
			{Name: "UnresolvedIssues", Description: "Fetch unresolved Jira issues."},
		},
	})
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if engine.calls != 1 {
		t.Fatalf("unexpected engine call count: %d", engine.calls)
	}
	if gotState.Status != agent.RunStatusPending {
		t.Fatalf("engine received unexpected status: %s", gotState.Status)
	}
	if gotState.Version != 1 {
		t.Fatalf("engine received unexpected version: %d", gotState.Version)
	}
	if len(gotState.Messages) != 2 {
		t.Fatalf("engine received unexpected message count: %d", len(gotState.Messages))
	}
	if gotState.Messages[0].Role != agent.RoleSystem || gotState.Messages[0].Content != "system" {
		t.Fatalf("unexpected first message: %+v", gotState.Messages[0])
	}
	if gotState.Messages[1].Role != agent.RoleUser || gotState.Messages[1].Content != "show me all unresolved issues" {
		t.Fatalf("unexpected second message: %+v", gotState.Messages[1])
	}
	if gotState.Task() != "show me all unresolved issues" {
		t.Fatalf("unexpected task: %q", gotState.Task())
	}
	if gotInput.MaxSteps != 3 {
		t.Fatalf("engine received unexpected max steps: %d", gotInput.MaxSteps)
	}
	if len(gotInput.Tools) != 1 || gotInput.Tools[0].Name != "UnresolvedIssues" {
		t.Fatalf("engine received unexpected tools: %+v", gotInput.Tools)
	}
	if result.State.Status != agent.RunStatusCompleted {
		t.Fatalf("unexpected status: %s", result.State.Status)
	}
	if result.State.Output != "done" {
		t.Fatalf("unexpected output: %q", result.State.Output)
	}
	if result.State.Version != 2 {
		t.Fatalf("unexpected version: %d", result.State.Version)
	}

	loaded, err := store.Load(context.Background(), result.State.ID)
	if err != nil {
		t.Fatalf("load saved state: %v", err)
	}
	if !reflect.DeepEqual(loaded, result.State) {
		t.Fatalf("saved state mismatch:\n got: %+v\nwant: %+v", loaded, result.State)
	}

	gotTypes := events.Types()
	if len(gotTypes) != 1 || gotTypes[0] != agent.EventTypeRunStarted {
		t.Fatalf("unexpected runner events: %v", gotTypes)
	}
}

func TestRunnerRun_PropagatesEngineError(t *testing.T) {
	t.Parallel()

	store := runstoreinmem.New()
	engine := &engineSpy{
		executeFn: func(_ context.Context, state agent.RunState, _ agent.EngineInput) (agent.RunState, error) {
			next := state
			next.Step = 1
			next.Status = agent.RunStatusIterationLimitExceeded
			next.Error = agent.ErrIterationLimitExceeded.Error()
			return next, agent.ErrIterationLimitExceeded
		},
	}
	runner := newRunnerWithEngine(t, store, nil, engine)

	result, err := runner.Run(context.Background(), agent.RunInput{
		Task:     "do work",
		MaxSteps: 1,
	})
	if !errors.Is(err, agent.ErrIterationLimitExceeded) {
		t.Fatalf("expected ErrIterationLimitExceeded, got: %v", err)
	}
	if result.State.Status != agent.RunStatusIterationLimitExceeded {
		t.Fatalf("unexpected status: %s", result.State.Status)
	}
	if result.State.Version != 2 {
		t.Fatalf("unexpected version: %d", result.State.Version)
	}

	loaded, loadErr := store.Load(context.Background(), result.State.ID)
	if loadErr != nil {
		t.Fatalf("load saved state: %v", loadErr)
	}
	if !reflect.DeepEqual(loaded, result.State) {
		t.Fatalf("saved state mismatch")
	}
}

func TestRunnerRun_NonTerminalEngineResultIsAnError(t *testing.T) {
	t.Parallel()

	engine := &engineSpy{
		executeFn: func(_ context.Context, state agent.RunState, _ agent.EngineInput) (agent.RunState, error) {
			next := state
			next.Status = agent.RunStatusRunning
			return next, nil
		},
	}
	runner := newRunnerWithEngine(t, nil, nil, engine)

	_, err := runner.Run(context.Background(), agent.RunInput{Task: "hello"})
	if err == nil {
		t.Fatalf("expected error for run that never completed")
	}
}

func TestRunnerRun_RejectsRewrittenHistory(t *testing.T) {
	t.Parallel()

	engine := &engineSpy{
		executeFn: func(_ context.Context, state agent.RunState, _ agent.EngineInput) (agent.RunState, error) {
			next := agent.CloneRunState(state)
			next.Messages[len(next.Messages)-1].Content = "a different task"
			next.Status = agent.RunStatusCompleted
			next.Output = "done"
			return next, nil
		},
	}
	runner := newRunnerWithEngine(t, nil, nil, engine)

	_, err := runner.Run(context.Background(), agent.RunInput{Task: "hello"})
	if !errors.Is(err, agent.ErrEngineOutputContractViolation) {
		t.Fatalf("expected ErrEngineOutputContractViolation, got %v", err)
	}
}

func TestRunnerRun_RejectsEmptyTask(t *testing.T) {
	t.Parallel()

	engine := &engineSpy{}
	runner := newRunnerWithEngine(t, nil, nil, engine)

	_, err := runner.Run(context.Background(), agent.RunInput{Task: "   "})
	if !errors.Is(err, agent.ErrTaskEmpty) {
		t.Fatalf("expected ErrTaskEmpty, got %v", err)
	}
	if engine.calls != 0 {
		t.Fatalf("engine should not execute for an empty task, calls=%d", engine.calls)
	}
}

func TestRunnerRun_RejectsEmptyGeneratedRunID(t *testing.T) {
	t.Parallel()

	store := runstoreinmem.New()
	events := eventinginmem.New()
	engine := &engineSpy{}
	runner, err := agent.NewRunner(agent.Dependencies{
		IDGenerator: emptyIDGenerator{},
		RunStore:    store,
		Engine:      engine,
		EventSink:   events,
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	result, runErr := runner.Run(context.Background(), agent.RunInput{
		Task:     "hello",
		MaxSteps: 1,
	})
	if !errors.Is(runErr, agent.ErrInvalidRunID) {
		t.Fatalf("expected ErrInvalidRunID, got: %v", runErr)
	}
	if !reflect.DeepEqual(result, agent.RunResult{}) {
		t.Fatalf("unexpected result: %+v", result)
	}
	if engine.calls != 0 {
		t.Fatalf("engine should not execute on generated run id validation failure, calls=%d", engine.calls)
	}
	if gotEvents := events.Events(); len(gotEvents) != 0 {
		t.Fatalf("unexpected events emitted: %d", len(gotEvents))
	}
	if got := store.List(context.Background()); len(got) != 0 {
		t.Fatalf("unexpected stored runs: %d", len(got))
	}
}
