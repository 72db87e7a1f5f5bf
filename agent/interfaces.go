package agent

import "context"

// ModelRequest is the full transcript and tool surface sent on every model call.
type ModelRequest struct {
	History           []Message
	Tools             []ToolDefinition
	SystemInstruction string
}

// ModelResponse is one model reply: free text, tool calls, or both.
type ModelResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// Model is the generative model collaborator.
type Model interface {
	Generate(ctx context.Context, request ModelRequest) (ModelResponse, error)
}

// ToolExecutor resolves and executes information tool calls.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) (ToolResult, error)
}

// EventSink receives turn progress events.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// EventSinkFunc adapts a plain function to EventSink.
type EventSinkFunc func(ctx context.Context, event Event) error

func (f EventSinkFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}
