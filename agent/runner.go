package agent

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Dependencies wires application services into the runtime orchestrator.
type Dependencies struct {
	IDGenerator IDGenerator
	RunStore    RunStore
	Engine      Engine
	EventSink   EventSink
}

// Runner owns the run lifecycle: it seeds the scratchpad for one task and hands it to the engine.
type Runner struct {
	idGen  IDGenerator
	store  RunStore
	engine Engine
	events EventSink
}

func NewRunner(deps Dependencies) (*Runner, error) {
	if deps.IDGenerator == nil {
		return nil, fmt.Errorf("new runner: %w", ErrMissingIDGenerator)
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("new runner: %w", ErrMissingEngine)
	}
	if deps.EventSink == nil {
		deps.EventSink = DiscardEvents
	}
	return &Runner{
		idGen:  deps.IDGenerator,
		store:  deps.RunStore,
		engine: deps.Engine,
		events: deps.EventSink,
	}, nil
}

// PublishEvent validates and publishes one event, tagging sink failures with ErrEventPublish.
func PublishEvent(ctx context.Context, sink EventSink, event Event) error {
	if err := ValidateEvent(event); err != nil {
		return err
	}
	if err := sink.Publish(ctx, event); err != nil {
		return errors.Join(
			ErrEventPublish,
			fmt.Errorf(
				"type=%s run_id=%s step=%d: %w",
				event.Type,
				event.RunID,
				event.Step,
				err,
			),
		)
	}
	return nil
}

func validateEngineOutput(prev RunState, next RunState) error {
	if next.ID != prev.ID {
		return fmt.Errorf(
			"%w: invariant=run_id input=%q output=%q",
			ErrEngineOutputContractViolation,
			prev.ID,
			next.ID,
		)
	}
	if next.Step < prev.Step {
		return fmt.Errorf(
			"%w: invariant=step input=%d output=%d run_id=%q",
			ErrEngineOutputContractViolation,
			prev.Step,
			next.Step,
			prev.ID,
		)
	}
	if len(next.Messages) < len(prev.Messages) {
		return fmt.Errorf(
			"%w: invariant=messages_length input=%d output=%d run_id=%q",
			ErrEngineOutputContractViolation,
			len(prev.Messages),
			len(next.Messages),
			prev.ID,
		)
	}
	if !reflect.DeepEqual(next.Messages[:len(prev.Messages)], prev.Messages) {
		return fmt.Errorf(
			"%w: invariant=messages_prefix run_id=%q",
			ErrEngineOutputContractViolation,
			prev.ID,
		)
	}
	return nil
}

func sideEffectContext(ctx context.Context) context.Context {
	if ctx.Err() != nil {
		return context.WithoutCancel(ctx)
	}
	return ctx
}

// Run executes one task to a terminal state and returns it.
// The returned error is non-nil whenever the run did not complete with a final answer.
func (r *Runner) Run(ctx context.Context, input RunInput) (RunResult, error) {
	if ctx == nil {
		return RunResult{}, ErrContextNil
	}
	task := strings.TrimSpace(input.Task)
	if task == "" {
		return RunResult{}, ErrTaskEmpty
	}

	runID := input.RunID
	if runID == "" {
		generated, err := r.idGen.NewRunID(ctx)
		if err != nil {
			return RunResult{}, err
		}
		runID = generated
		if runID == "" {
			return RunResult{}, fmt.Errorf("%w: reason=generator_returned_empty", ErrInvalidRunID)
		}
	}

	state := RunState{ID: runID}
	if err := TransitionRunStatus(&state, RunStatusPending); err != nil {
		return RunResult{}, err
	}
	if input.SystemPrompt != "" {
		state.Messages = append(state.Messages, Message{
			Role:    RoleSystem,
			Content: input.SystemPrompt,
		})
	}
	state.Messages = append(state.Messages, Message{
		Role:    RoleUser,
		Content: task,
	})

	if err := r.save(ctx, &state); err != nil {
		return RunResult{}, err
	}
	eventErr := PublishEvent(sideEffectContext(ctx), r.events, Event{
		RunID:       runID,
		Step:        0,
		Type:        EventTypeRunStarted,
		Description: task,
	})

	finalState, runErr := r.engine.Execute(ctx, state, EngineInput{
		MaxSteps: input.MaxSteps,
		Tools:    CloneToolDefinitions(input.Tools),
	})
	if contractErr := validateEngineOutput(state, finalState); contractErr != nil {
		return RunResult{}, errors.Join(contractErr, eventErr)
	}
	if saveErr := r.save(ctx, &finalState); saveErr != nil {
		return RunResult{State: finalState}, errors.Join(runErr, saveErr, eventErr)
	}
	if runErr == nil && finalState.Status != RunStatusCompleted {
		runErr = fmt.Errorf("run %q ended in status %s", runID, finalState.Status)
	}
	return RunResult{State: finalState}, errors.Join(runErr, eventErr)
}

func (r *Runner) save(ctx context.Context, state *RunState) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.Save(sideEffectContext(ctx), *state); err != nil {
		return err
	}
	state.Version++
	return nil
}
