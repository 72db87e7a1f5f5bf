package assistant

import "errors"

var (
	// ErrMissingToolExecutor is returned when New is called without a tool executor.
	ErrMissingToolExecutor = errors.New("missing tool executor")
	// ErrMissingPlanExecutor is returned when New is called without a plan executor.
	ErrMissingPlanExecutor = errors.New("missing plan executor")
	// ErrTurnInFlight is returned when a session already has a turn or plan execution running.
	ErrTurnInFlight = errors.New("a turn is already in flight for this session")
	// ErrMessageEmpty is returned for blank user input.
	ErrMessageEmpty = errors.New("message is empty")
)
