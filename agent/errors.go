package agent

import "errors"

var (
	// ErrIterationLimitExceeded is returned when the loop reaches its step budget without a final answer.
	ErrIterationLimitExceeded = errors.New("decision loop exceeded iteration limit")
	// ErrMalformedDecision is returned when a model response cannot be read as one action or a final answer.
	ErrMalformedDecision = errors.New("malformed decision")
	// ErrUnknownCapability is returned when a capability name is not in the registered catalog.
	ErrUnknownCapability = errors.New("unknown capability")
	// ErrRunNotFound is returned by run stores when a run ID is unknown.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunVersionConflict is returned by run stores on optimistic concurrency mismatch.
	ErrRunVersionConflict = errors.New("run version conflict")
	// ErrRunStateInvalid is returned when run state fails structural validation.
	ErrRunStateInvalid = errors.New("run state is invalid")
	// ErrInvalidRunID is returned when a run ID is empty.
	ErrInvalidRunID = errors.New("invalid run id")
	// ErrInvalidRunStateTransition is returned for transitions outside the run lifecycle.
	ErrInvalidRunStateTransition = errors.New("invalid run state transition")
	// ErrEventInvalid is returned when an event fails validation before publish.
	ErrEventInvalid = errors.New("event is invalid")
	// ErrEventPublish is returned when an event sink rejects an event.
	ErrEventPublish = errors.New("event publish failed")
	// ErrContextNil is returned when a nil context is passed to a runtime boundary.
	ErrContextNil = errors.New("context is nil")
	// ErrTaskEmpty is returned when a run is started without a task.
	ErrTaskEmpty = errors.New("task is empty")
	// ErrMissingIDGenerator is returned by NewRunner without an ID generator.
	ErrMissingIDGenerator = errors.New("missing id generator")
	// ErrMissingEngine is returned by NewRunner without an engine.
	ErrMissingEngine = errors.New("missing engine")
	// ErrEngineOutputContractViolation is returned when an engine rewrites run history.
	ErrEngineOutputContractViolation = errors.New("engine output contract violation")
)
