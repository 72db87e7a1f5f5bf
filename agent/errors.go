package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrContextNil is returned when a nil context reaches a blocking boundary.
	ErrContextNil = errors.New("context is nil")
	// ErrHistoryEmpty is returned when a turn is requested without any message.
	ErrHistoryEmpty = errors.New("conversation history is empty")
	// ErrHistoryStartsWithoutUser is returned when the first history entry is neither a user nor a system turn.
	ErrHistoryStartsWithoutUser = errors.New("conversation history does not start with a user turn")
	// ErrHistoryEndsWithModel is returned when the history sent to the model ends with a model turn.
	ErrHistoryEndsWithModel = errors.New("conversation history ends with a model turn")
	// ErrMessageInvalid is returned when a history entry violates its shape contract.
	ErrMessageInvalid = errors.New("message is invalid")
	// ErrToolLoopExceeded is returned when a turn reaches its step budget.
	ErrToolLoopExceeded = errors.New("tool loop exceeded max steps")
	// ErrMalformedPlan is returned when plan tool arguments cannot form a valid plan.
	ErrMalformedPlan = errors.New("malformed plan")
	// ErrPlanNotExecutable is returned for plan types that only carry a question.
	ErrPlanNotExecutable = errors.New("plan is not executable")
	// ErrModelUnavailable is returned when no model is configured.
	ErrModelUnavailable = errors.New("model is not available")
	// ErrToolDefinitionsInvalid is returned when a tool set is malformed.
	ErrToolDefinitionsInvalid = errors.New("tool definitions are invalid")
	// ErrToolArgumentsInvalid is returned when call arguments do not match the tool schema.
	ErrToolArgumentsInvalid = errors.New("tool arguments are invalid")
	// ErrInvalidTurnTransition is returned for disallowed turn state changes.
	ErrInvalidTurnTransition = errors.New("invalid turn state transition")
	// ErrEventInvalid is returned when an event violates its payload contract.
	ErrEventInvalid = errors.New("event is invalid")
	// ErrEventPublish marks failures of the event sink.
	ErrEventPublish = errors.New("event publish failed")
	// ErrToolUnrecognized is wrapped by UnrecognizedToolError.
	ErrToolUnrecognized = errors.New("tool is not recognized")
	// ErrNotFound is returned by stores and collaborators when an entity is unknown.
	ErrNotFound = errors.New("not found")
)

// UnrecognizedToolError reports a tool call naming a tool that is not offered
// or not registered. It is not recoverable by the model: the turn fails.
type UnrecognizedToolError struct {
	Name string
}

func (e *UnrecognizedToolError) Error() string {
	return fmt.Sprintf("%s: %q", ErrToolUnrecognized, e.Name)
}

func (e *UnrecognizedToolError) Unwrap() error {
	return ErrToolUnrecognized
}
