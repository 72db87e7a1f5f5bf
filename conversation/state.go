package conversation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/catalog"
)

var (
	ErrNoPendingPlan     = errors.New("no pending plan")
	ErrNotSelectionPlan  = errors.New("plan is not a calendar selection request")
	ErrSelectionRequired = errors.New("calendar selection is empty")
)

// State is the visible history of one conversation plus the plan awaiting a
// decision. Tool exchanges of a turn live only in that turn's transcript.
type State struct {
	History     []agent.Message `json:"history"`
	PendingPlan *agent.Plan     `json:"pending_plan,omitempty"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{History: agent.CloneMessages(s.History)}
	if s.PendingPlan != nil {
		plan := agent.ClonePlan(*s.PendingPlan)
		out.PendingPlan = &plan
	}
	return out
}

// Append adds copies of messages in order.
func (s *State) Append(messages ...agent.Message) {
	for _, message := range messages {
		s.History = append(s.History, agent.CloneMessage(message))
	}
}

// RecordReply appends a turn's reply. A reply carrying a plan becomes the
// pending plan and replaces any earlier one.
func (s *State) RecordReply(reply agent.Message) {
	s.Append(reply)
	if reply.Plan != nil {
		plan := agent.ClonePlan(*reply.Plan)
		s.PendingPlan = &plan
		return
	}
	s.PendingPlan = nil
}

// TakePendingPlan removes and returns the pending plan, so a plan can be
// consumed at most once.
func (s *State) TakePendingPlan() (agent.Plan, error) {
	if s.PendingPlan == nil {
		return agent.Plan{}, ErrNoPendingPlan
	}
	plan := *s.PendingPlan
	s.PendingPlan = nil
	return plan, nil
}

// FirstUserMessage is the prompt that opened the conversation.
func (s State) FirstUserMessage() string {
	return agent.FirstUserMessage(s.History)
}

// Validate checks that the history is ready to be sent to the model.
func (s State) Validate() error {
	return agent.ValidateHistory(s.History)
}

// ResumeAfterSelection returns a copy of history extended with the replayed
// request_calendar_selection call and a synthetic result carrying the user's
// choice. The returned history ends with a tool turn and is ready for the next
// model call.
func ResumeAfterSelection(history []agent.Message, plan agent.Plan, selectedCalendarID string) ([]agent.Message, error) {
	if plan.Type != agent.PlanTypeCalendarSelection || plan.CalendarSelection == nil {
		return nil, fmt.Errorf("%w: type=%s", ErrNotSelectionPlan, plan.Type)
	}
	selectedCalendarID = strings.TrimSpace(selectedCalendarID)
	if selectedCalendarID == "" {
		return nil, ErrSelectionRequired
	}
	if len(history) == 0 {
		return nil, agent.ErrHistoryEmpty
	}

	call := agent.CloneToolCall(plan.CalendarSelection.Call)
	if call.Name == "" {
		call.Name = catalog.ToolRequestCalendarSelection
	}

	out := agent.CloneMessages(history)
	out = append(out,
		agent.ToolCallMessage(call),
		agent.ToolResultMessage(agent.ToolResult{
			CallID: call.ID,
			Name:   call.Name,
			Response: map[string]any{
				"selectedCalendarId": selectedCalendarID,
			},
		}),
	)
	return out, nil
}
