package agent

import "fmt"

// ValidateEvent checks event payload invariants before publish boundaries.
func ValidateEvent(event Event) error {
	if event.Type == "" {
		return fmt.Errorf("%w: field=type reason=empty", ErrEventInvalid)
	}
	if event.TurnID == "" {
		return fmt.Errorf("%w: field=turn_id reason=empty type=%s", ErrEventInvalid, event.Type)
	}
	if event.Step < 0 {
		return fmt.Errorf(
			"%w: field=step reason=negative value=%d type=%s turn_id=%q",
			ErrEventInvalid,
			event.Step,
			event.Type,
			event.TurnID,
		)
	}

	switch event.Type {
	case EventTypeToolCall:
		if event.ToolCall == nil {
			return missingEventField(event, "tool_call")
		}
		if event.ToolCall.Name == "" {
			return missingEventField(event, "tool_call.name")
		}
	case EventTypeToolResult:
		if event.ToolResult == nil {
			return missingEventField(event, "tool_result")
		}
		if event.ToolResult.Name == "" {
			return missingEventField(event, "tool_result.name")
		}
	case EventTypePlanGenerated:
		if event.Plan == nil {
			return missingEventField(event, "plan")
		}
	case EventTypeTurnStarted, EventTypeDone, EventTypeTurnFailed, EventTypeTurnCancelled:
	default:
		return fmt.Errorf("%w: field=type reason=unknown value=%q turn_id=%q", ErrEventInvalid, event.Type, event.TurnID)
	}

	return nil
}

func missingEventField(event Event, field string) error {
	return fmt.Errorf(
		"%w: field=%s reason=empty type=%s turn_id=%q step=%d",
		ErrEventInvalid,
		field,
		event.Type,
		event.TurnID,
		event.Step,
	)
}
