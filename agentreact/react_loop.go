package agentreact

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gurpartap/jiraagent/agent"
)

const DefaultMaxSteps = 8

// ReactLoop executes the ReAct decision sequence:
// model -> one capability -> observation -> model -> ... -> final answer.
type ReactLoop struct {
	model  Model
	tools  ToolExecutor
	events agent.EventSink
}

func New(model Model, tools ToolExecutor, events agent.EventSink) (*ReactLoop, error) {
	if model == nil {
		return nil, fmt.Errorf("new react loop: %w", ErrMissingModel)
	}
	if tools == nil {
		return nil, fmt.Errorf("new react loop: %w", ErrMissingToolExecutor)
	}
	if events == nil {
		events = agent.DiscardEvents
	}
	return &ReactLoop{
		model:  model,
		tools:  tools,
		events: events,
	}, nil
}

// Execute drives a pending run until it completes, fails, is cancelled, or exhausts its step budget.
// The capability catalog is fixed to input.Tools for the whole run.
func (l *ReactLoop) Execute(ctx context.Context, state agent.RunState, input agent.EngineInput) (agent.RunState, error) {
	if ctx == nil {
		return state, agent.ErrContextNil
	}
	if err := agent.ValidateRunState(state); err != nil {
		return state, err
	}

	maxSteps := input.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	tools := agent.CloneToolDefinitions(input.Tools)
	catalog := indexToolDefinitions(tools)
	var eventErr error

	if err := agent.TransitionRunStatus(&state, agent.RunStatusRunning); err != nil {
		return state, err
	}
	for state.Step < maxSteps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return l.cancelRun(ctx, state, ctxErr, eventErr)
		}

		state.Step++

		assistant, err := l.model.Generate(ctx, ModelRequest{
			Messages: agent.CloneMessages(state.Messages),
			Tools:    agent.CloneToolDefinitions(tools),
		})
		if err != nil {
			if cancellationErr := ctx.Err(); cancellationErr != nil {
				return l.cancelRun(ctx, state, cancellationErr, eventErr)
			}
			return l.failRun(ctx, state, fmt.Errorf("model: %w", err), eventErr)
		}
		if assistant.Role == "" {
			assistant.Role = agent.RoleAssistant
		}
		if assistant.Role != agent.RoleAssistant {
			return l.failRun(ctx, state, fmt.Errorf(
				"%w: reason=unexpected_role role=%s",
				agent.ErrMalformedDecision,
				assistant.Role,
			), eventErr)
		}
		state.Messages = append(state.Messages, agent.CloneMessage(assistant))
		eventErr = errors.Join(eventErr, agent.PublishEvent(ctx, l.events, agent.Event{
			RunID:   state.ID,
			Step:    state.Step,
			Type:    agent.EventTypeAssistantMessage,
			Message: &assistant,
		}))

		step, call, err := decide(assistant, catalog)
		if err != nil {
			return l.failRun(ctx, state, err, eventErr)
		}
		if step.Final {
			if err := agent.TransitionRunStatus(&state, agent.RunStatusCompleted); err != nil {
				return state, errors.Join(err, eventErr)
			}
			state.Output = step.Thought
			eventErr = errors.Join(eventErr, agent.PublishEvent(ctx, l.events, agent.Event{
				RunID:       state.ID,
				Step:        state.Step,
				Type:        agent.EventTypeRunCompleted,
				Description: "assistant returned a final answer",
			}))
			return state, eventErr
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return l.cancelRun(ctx, state, ctxErr, eventErr)
		}
		result, err := l.tools.Execute(ctx, *call)
		if err != nil {
			if cancellationErr := ctx.Err(); cancellationErr != nil {
				return l.cancelRun(ctx, state, cancellationErr, eventErr)
			}
			return l.failRun(ctx, state, fmt.Errorf("invoke capability %q: %w", call.Name, err), eventErr)
		}
		if err := validateToolResultIdentity(*call, result); err != nil {
			return l.failRun(ctx, state, err, eventErr)
		}
		result.CallID = call.ID
		result.Name = call.Name

		state.Messages = append(state.Messages, agent.ToolResultMessage(result))
		resultCopy := result
		eventErr = errors.Join(eventErr, agent.PublishEvent(ctx, l.events, agent.Event{
			RunID:      state.ID,
			Step:       state.Step,
			Type:       agent.EventTypeToolResult,
			ToolResult: &resultCopy,
		}))
	}

	limitErr := fmt.Errorf("%w: max_steps=%d", agent.ErrIterationLimitExceeded, maxSteps)
	if err := agent.TransitionRunStatus(&state, agent.RunStatusIterationLimitExceeded); err != nil {
		return state, errors.Join(limitErr, err, eventErr)
	}
	state.Error = limitErr.Error()
	eventErr = errors.Join(eventErr, agent.PublishEvent(ctx, l.events, agent.Event{
		RunID:       state.ID,
		Step:        state.Step,
		Type:        agent.EventTypeRunFailed,
		Description: limitErr.Error(),
	}))
	return state, errors.Join(limitErr, eventErr)
}

func validateToolResultIdentity(call agent.ToolCall, result agent.ToolResult) error {
	if result.CallID != "" && result.CallID != call.ID {
		return fmt.Errorf("tool result call id mismatch: got=%q want=%q", result.CallID, call.ID)
	}
	if result.Name != "" && result.Name != call.Name {
		return fmt.Errorf("tool result name mismatch: got=%q want=%q", result.Name, call.Name)
	}
	return nil
}

func (l *ReactLoop) failRun(ctx context.Context, state agent.RunState, runErr error, eventErr error) (agent.RunState, error) {
	if runErr == nil {
		runErr = errors.New("run failed")
	}
	if transitionErr := agent.TransitionRunStatus(&state, agent.RunStatusFailed); transitionErr != nil {
		return state, errors.Join(runErr, transitionErr, eventErr)
	}
	state.Error = runErr.Error()
	eventErr = errors.Join(eventErr, agent.PublishEvent(sideEffectContext(ctx), l.events, agent.Event{
		RunID:       state.ID,
		Step:        state.Step,
		Type:        agent.EventTypeRunFailed,
		Description: runErr.Error(),
	}))
	return state, errors.Join(runErr, eventErr)
}

func (l *ReactLoop) cancelRun(ctx context.Context, state agent.RunState, runErr error, eventErr error) (agent.RunState, error) {
	if runErr == nil {
		runErr = context.Canceled
	}
	if transitionErr := agent.TransitionRunStatus(&state, agent.RunStatusCancelled); transitionErr != nil {
		return state, errors.Join(runErr, transitionErr, eventErr)
	}
	state.Error = runErr.Error()
	eventErr = errors.Join(eventErr, agent.PublishEvent(sideEffectContext(ctx), l.events, agent.Event{
		RunID:       state.ID,
		Step:        state.Step,
		Type:        agent.EventTypeRunCancelled,
		Description: runErr.Error(),
	}))
	return state, errors.Join(runErr, eventErr)
}

func sideEffectContext(ctx context.Context) context.Context {
	if ctx.Err() != nil {
		return context.WithoutCancel(ctx)
	}
	return ctx
}
