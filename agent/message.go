package agent

// Role identifies the author of a message in the conversation transcript.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	// RoleTool marks a turn carrying a tool result. Model adapters map it to
	// whatever representation their provider expects.
	RoleTool Role = "tool"
)

func (r Role) valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleModel, RoleTool:
		return true
	default:
		return false
	}
}

// Message is one entry of a conversation. Insertion order is conversational
// order and is replayed to the model unchanged.
type Message struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	Plan       *Plan       `json:"plan,omitempty"`
}

// UserMessage builds a plain user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ModelText builds a plain model reply.
func ModelText(content string) Message {
	return Message{Role: RoleModel, Content: content}
}

// ToolCallMessage records the model's request for a single tool call.
func ToolCallMessage(call ToolCall) Message {
	callCopy := CloneToolCall(call)
	return Message{Role: RoleModel, ToolCall: &callCopy}
}

// ToolResultMessage converts a tool result to a transcript message.
func ToolResultMessage(result ToolResult) Message {
	resultCopy := CloneToolResult(result)
	return Message{Role: RoleTool, ToolResult: &resultCopy}
}

// PlanMessage builds the model reply that carries a proposed plan.
func PlanMessage(plan Plan) Message {
	planCopy := ClonePlan(plan)
	return Message{Role: RoleModel, Content: plan.Summary(), Plan: &planCopy}
}

// CloneMessage returns a deep copy suitable for isolation across component boundaries.
func CloneMessage(in Message) Message {
	out := in
	if in.ToolCall != nil {
		callCopy := CloneToolCall(*in.ToolCall)
		out.ToolCall = &callCopy
	}
	if in.ToolResult != nil {
		resultCopy := CloneToolResult(*in.ToolResult)
		out.ToolResult = &resultCopy
	}
	if in.Plan != nil {
		planCopy := ClonePlan(*in.Plan)
		out.Plan = &planCopy
	}
	return out
}

// CloneMessages returns deep copies of all messages.
func CloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	for i := range in {
		out[i] = CloneMessage(in[i])
	}
	return out
}

// FirstUserMessage returns the content of the earliest plain user turn.
func FirstUserMessage(history []Message) string {
	for _, message := range history {
		if message.Role == RoleUser && message.ToolResult == nil {
			return message.Content
		}
	}
	return ""
}

// LastUserMessage returns the content of the latest plain user turn.
func LastUserMessage(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser && history[i].ToolResult == nil {
			return history[i].Content
		}
	}
	return ""
}
