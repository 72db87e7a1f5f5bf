package catalog

import (
	"fmt"

	"github.com/Gurpartap/horizons/agent"
)

type calendarActionArgs struct {
	Action           agent.CalendarAction  `json:"action"`
	TargetCalendarID string                `json:"targetCalendarId"`
	Summary          string                `json:"summary"`
	Events           []agent.EventProposal `json:"events"`
}

type calendarSelectionArgs struct {
	Summary   string              `json:"summary"`
	Calendars []agent.CalendarRef `json:"calendars"`
}

type taskActionArgs struct {
	Action    agent.TaskAction     `json:"action"`
	ProjectID string               `json:"projectId"`
	Summary   string               `json:"summary"`
	Tasks     []agent.TaskProposal `json:"tasks"`
}

// DecodePlan converts a plan-terminal tool call into a validated plan.
// originalPrompt is recorded on variants that carry it. Any decode or
// validation failure wraps agent.ErrMalformedPlan.
func DecodePlan(call agent.ToolCall, originalPrompt string) (agent.Plan, error) {
	var plan agent.Plan
	switch call.Name {
	case ToolProposeCalendarActionPlan:
		var args calendarActionArgs
		if err := agent.DecodeArguments(call.Arguments, &args); err != nil {
			return agent.Plan{}, malformed(call, err)
		}
		plan = agent.Plan{
			Type: agent.PlanTypeCalendarAction,
			CalendarAction: &agent.CalendarActionPlan{
				Action:           args.Action,
				TargetCalendarID: args.TargetCalendarID,
				Summary:          args.Summary,
				Events:           args.Events,
				OriginalPrompt:   originalPrompt,
			},
		}
	case ToolRequestCalendarSelection:
		var args calendarSelectionArgs
		if err := agent.DecodeArguments(call.Arguments, &args); err != nil {
			return agent.Plan{}, malformed(call, err)
		}
		plan = agent.Plan{
			Type: agent.PlanTypeCalendarSelection,
			CalendarSelection: &agent.CalendarSelectionRequest{
				Summary:        args.Summary,
				Calendars:      args.Calendars,
				OriginalPrompt: originalPrompt,
				Call:           agent.CloneToolCall(call),
			},
		}
	case ToolProposeTaskPlan:
		var args taskActionArgs
		if err := agent.DecodeArguments(call.Arguments, &args); err != nil {
			return agent.Plan{}, malformed(call, err)
		}
		plan = agent.Plan{
			Type: agent.PlanTypeTaskAction,
			TaskAction: &agent.TaskActionPlan{
				Action:         args.Action,
				ProjectID:      args.ProjectID,
				Summary:        args.Summary,
				Tasks:          args.Tasks,
				OriginalPrompt: originalPrompt,
			},
		}
	case ToolSaveProjectTitles:
		var args agent.ProjectTitlesPlan
		if err := agent.DecodeArguments(call.Arguments, &args); err != nil {
			return agent.Plan{}, malformed(call, err)
		}
		plan = agent.Plan{Type: agent.PlanTypeProjectTitles, ProjectTitles: &args}
	case ToolSaveProjectDetails:
		var args agent.ProjectDetailsPlan
		if err := agent.DecodeArguments(call.Arguments, &args); err != nil {
			return agent.Plan{}, malformed(call, err)
		}
		plan = agent.Plan{Type: agent.PlanTypeProjectDetails, ProjectDetails: &args}
	default:
		return agent.Plan{}, fmt.Errorf("%w: tool=%q reason=not_a_plan_tool", agent.ErrMalformedPlan, call.Name)
	}

	if err := plan.Validate(); err != nil {
		return agent.Plan{}, fmt.Errorf("tool=%q: %w", call.Name, err)
	}
	return plan, nil
}

func malformed(call agent.ToolCall, err error) error {
	return fmt.Errorf("%w: tool=%q %v", agent.ErrMalformedPlan, call.Name, err)
}
