package agent

import "fmt"

// ToolKind separates auto-executed lookups from plan-terminal proposals.
type ToolKind string

const (
	// ToolKindInformation tools are read-only and executed inside a turn.
	ToolKindInformation ToolKind = "information"
	// ToolKindPlan tools end the turn with a proposal and are never executed by the loop.
	ToolKindPlan ToolKind = "plan"
)

// ToolDefinition declares a callable capability exposed to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
	Kind        ToolKind       `json:"kind"`
}

// ToolCall is requested by the model and executed by ToolExecutor.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResult is the structured output of one tool execution. Failures carry
// a single "error" key in Response.
type ToolResult struct {
	CallID   string         `json:"call_id"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

const toolErrorKey = "error"

// ErrorResult wraps err as a recoverable tool result for call.
func ErrorResult(call ToolCall, err error) ToolResult {
	message := "tool failed"
	if err != nil {
		message = err.Error()
	}
	return ToolResult{
		CallID:   call.ID,
		Name:     call.Name,
		Response: map[string]any{toolErrorKey: message},
	}
}

// Err returns the error message of a failed result, or "" on success.
func (r ToolResult) Err() string {
	if r.Response == nil {
		return ""
	}
	switch value := r.Response[toolErrorKey].(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}

// IsError reports whether the result describes a failure.
func (r ToolResult) IsError() bool {
	_, ok := r.Response[toolErrorKey]
	return ok
}

// CloneToolCall returns a deep copy of a tool call.
func CloneToolCall(in ToolCall) ToolCall {
	out := in
	out.Arguments = CloneArguments(in.Arguments)
	return out
}

// CloneToolResult returns a deep copy of a tool result.
func CloneToolResult(in ToolResult) ToolResult {
	out := in
	out.Response = CloneArguments(in.Response)
	return out
}

// CloneToolDefinitions returns deep copies of tool definitions.
func CloneToolDefinitions(in []ToolDefinition) []ToolDefinition {
	if in == nil {
		return nil
	}
	out := make([]ToolDefinition, len(in))
	for i := range in {
		out[i] = in[i]
		out[i].InputSchema = CloneArguments(in[i].InputSchema)
	}
	return out
}

// CloneArguments deep-copies a JSON-shaped map.
func CloneArguments(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(in any) any {
	switch value := in.(type) {
	case map[string]any:
		return CloneArguments(value)
	case []any:
		out := make([]any, len(value))
		for i := range value {
			out[i] = cloneValue(value[i])
		}
		return out
	case []string:
		out := make([]string, len(value))
		copy(out, value)
		return out
	case []map[string]any:
		out := make([]map[string]any, len(value))
		for i := range value {
			out[i] = CloneArguments(value[i])
		}
		return out
	default:
		return value
	}
}
