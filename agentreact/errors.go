package agentreact

import "errors"

var (
	ErrMissingModel        = errors.New("turn loop model is nil")
	ErrMissingToolExecutor = errors.New("turn loop tool executor is nil")
	// ErrToolCallInvalid is returned when a model tool call has no name.
	ErrToolCallInvalid = errors.New("tool call is invalid")
)
