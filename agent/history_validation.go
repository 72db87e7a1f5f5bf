package agent

import "fmt"

// ValidateHistory checks the invariants of a history about to be sent to the
// model. It must be non-empty with well formed entries. It must open with a
// user or system turn and must not end with a model turn. Model adapters send
// a leading system turn as a user turn.
func ValidateHistory(history []Message) error {
	if len(history) == 0 {
		return ErrHistoryEmpty
	}
	for i, message := range history {
		if err := validateMessage(message); err != nil {
			return fmt.Errorf("%w index=%d", err, i)
		}
	}
	if first := history[0].Role; first != RoleUser && first != RoleSystem {
		return fmt.Errorf("%w: role=%s", ErrHistoryStartsWithoutUser, first)
	}
	if last := history[len(history)-1]; last.Role == RoleModel {
		return ErrHistoryEndsWithModel
	}
	return nil
}

func validateMessage(message Message) error {
	if !message.Role.valid() {
		return fmt.Errorf("%w: field=role reason=unknown value=%q", ErrMessageInvalid, message.Role)
	}
	if message.ToolCall != nil {
		if message.Role != RoleModel {
			return fmt.Errorf("%w: field=tool_call reason=requires_model_role role=%s", ErrMessageInvalid, message.Role)
		}
		if message.ToolCall.Name == "" {
			return fmt.Errorf("%w: field=tool_call.name reason=empty", ErrMessageInvalid)
		}
	}
	if message.ToolResult != nil {
		if message.Role != RoleTool {
			return fmt.Errorf("%w: field=tool_result reason=requires_tool_role role=%s", ErrMessageInvalid, message.Role)
		}
		if message.ToolResult.Name == "" {
			return fmt.Errorf("%w: field=tool_result.name reason=empty", ErrMessageInvalid)
		}
	}
	if message.Role == RoleTool && message.ToolResult == nil {
		return fmt.Errorf("%w: field=tool_result reason=nil role=%s", ErrMessageInvalid, message.Role)
	}
	return nil
}
