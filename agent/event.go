package agent

// EventType is emitted by the turn loop for progress reporting and logs.
type EventType string

const (
	EventTypeTurnStarted   EventType = "turn_started"
	EventTypeToolCall      EventType = "tool_call"
	EventTypeToolResult    EventType = "tool_result"
	EventTypePlanGenerated EventType = "plan_generated"
	EventTypeDone          EventType = "done"
	EventTypeTurnFailed    EventType = "turn_failed"
	EventTypeTurnCancelled EventType = "turn_cancelled"
)

// Event is intentionally compact so adapters can map it to logs, callbacks, or streams.
type Event struct {
	TurnID      string      `json:"turn_id"`
	SessionID   string      `json:"session_id,omitempty"`
	Step        int         `json:"step"`
	Type        EventType   `json:"type"`
	ToolCall    *ToolCall   `json:"tool_call,omitempty"`
	ToolResult  *ToolResult `json:"tool_result,omitempty"`
	Plan        *Plan       `json:"plan,omitempty"`
	Description string      `json:"description,omitempty"`
}

// CloneEvent returns a deep copy of an event.
func CloneEvent(in Event) Event {
	out := in
	if in.ToolCall != nil {
		call := CloneToolCall(*in.ToolCall)
		out.ToolCall = &call
	}
	if in.ToolResult != nil {
		result := CloneToolResult(*in.ToolResult)
		out.ToolResult = &result
	}
	if in.Plan != nil {
		plan := ClonePlan(*in.Plan)
		out.Plan = &plan
	}
	return out
}
