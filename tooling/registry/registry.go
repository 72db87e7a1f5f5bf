package registry

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Gurpartap/horizons/agent"
)

var (
	ErrToolUnregistered = errors.New("tool is not registered")
	ErrNilHandler       = errors.New("tool handler is nil")
	ErrToolNameEmpty    = errors.New("tool name is empty")
)

// Handler executes one tool call using parsed arguments and returns a
// JSON-serializable value.
type Handler func(ctx context.Context, arguments map[string]any) (any, error)

// Registry stores handlers by tool name and executes tool calls.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

var _ agent.ToolExecutor = (*Registry)(nil)

func New(initial map[string]Handler) *Registry {
	handlers := make(map[string]Handler, len(initial))
	maps.Copy(handlers, initial)
	return &Registry{handlers: handlers}
}

func (r *Registry) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.handlers))
}

// Execute runs the handler registered for call.Name. Handler failures are
// returned as error results with a nil error so the model can react to them;
// only context cancellation and lookup failures return an error.
func (r *Registry) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return agent.ToolResult{}, ctxErr
	}
	if call.Name == "" {
		return agent.ToolResult{}, fmt.Errorf("%w: call %q", ErrToolNameEmpty, call.ID)
	}

	r.mu.RLock()
	handler, ok := r.handlers[call.Name]
	r.mu.RUnlock()
	if !ok {
		return agent.ToolResult{}, fmt.Errorf("%w: %w", ErrToolUnregistered, &agent.UnrecognizedToolError{Name: call.Name})
	}
	if handler == nil {
		return agent.ToolResult{}, fmt.Errorf("%w: %q", ErrNilHandler, call.Name)
	}

	value, err := handler(ctx, agent.CloneArguments(call.Arguments))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return agent.ToolResult{}, ctxErr
		}
		return agent.ErrorResult(call, err), nil
	}

	response, err := agent.EncodeResponse(value)
	if err != nil {
		return agent.ErrorResult(call, err), nil
	}
	return agent.ToolResult{
		CallID:   call.ID,
		Name:     call.Name,
		Response: response,
	}, nil
}
