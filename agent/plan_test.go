package agent_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/Gurpartap/horizons/agent"
)

func TestPlanValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		plan    agent.Plan
		wantErr string
	}{
		{
			name: "create plan",
			plan: agent.Plan{
				Type: agent.PlanTypeCalendarAction,
				CalendarAction: &agent.CalendarActionPlan{
					Action:           agent.CalendarActionCreate,
					TargetCalendarID: "primary",
					Events: []agent.EventProposal{
						{Summary: "Dentist", StartTime: "2025-03-04T10:00:00Z", EndTime: "2025-03-04T11:00:00Z"},
					},
				},
			},
		},
		{
			name: "delete plan only needs event ids",
			plan: agent.Plan{
				Type: agent.PlanTypeCalendarAction,
				CalendarAction: &agent.CalendarActionPlan{
					Action:           agent.CalendarActionDelete,
					TargetCalendarID: "primary",
					Events:           []agent.EventProposal{{EventID: "e1"}},
				},
			},
		},
		{
			name: "empty events list is valid",
			plan: agent.Plan{
				Type: agent.PlanTypeCalendarAction,
				CalendarAction: &agent.CalendarActionPlan{
					Action:           agent.CalendarActionDelete,
					TargetCalendarID: "primary",
				},
			},
		},
		{
			name: "create with event id",
			plan: agent.Plan{
				Type: agent.PlanTypeCalendarAction,
				CalendarAction: &agent.CalendarActionPlan{
					Action:           agent.CalendarActionCreate,
					TargetCalendarID: "primary",
					Events: []agent.EventProposal{
						{EventID: "e1", Summary: "x", StartTime: "a", EndTime: "b"},
					},
				},
			},
			wantErr: "forbidden_for_create",
		},
		{
			name: "update without event id",
			plan: agent.Plan{
				Type: agent.PlanTypeCalendarAction,
				CalendarAction: &agent.CalendarActionPlan{
					Action:           agent.CalendarActionUpdate,
					TargetCalendarID: "primary",
					Events:           []agent.EventProposal{{Summary: "x", StartTime: "a", EndTime: "b"}},
				},
			},
			wantErr: "required_for_update",
		},
		{
			name: "unknown action",
			plan: agent.Plan{
				Type: agent.PlanTypeCalendarAction,
				CalendarAction: &agent.CalendarActionPlan{
					Action:           "archive",
					TargetCalendarID: "primary",
				},
			},
			wantErr: "field=action",
		},
		{
			name: "tag mismatch",
			plan: agent.Plan{
				Type:          agent.PlanTypeCalendarAction,
				ProjectTitles: &agent.ProjectTitlesPlan{},
			},
			wantErr: "variant_mismatch",
		},
		{
			name: "two variants",
			plan: agent.Plan{
				Type:           agent.PlanTypeProjectTitles,
				ProjectTitles:  &agent.ProjectTitlesPlan{},
				ProjectDetails: &agent.ProjectDetailsPlan{Project: agent.ProjectDraft{Title: "x"}},
			},
			wantErr: "expected_exactly_one",
		},
		{
			name: "selection without calendars",
			plan: agent.Plan{
				Type:              agent.PlanTypeCalendarSelection,
				CalendarSelection: &agent.CalendarSelectionRequest{Summary: "Which one?"},
			},
			wantErr: "field=calendars",
		},
		{
			name: "task update without id",
			plan: agent.Plan{
				Type: agent.PlanTypeTaskAction,
				TaskAction: &agent.TaskActionPlan{
					Action: agent.TaskActionUpdate,
					Tasks:  []agent.TaskProposal{{Status: agent.TaskStatusDone}},
				},
			},
			wantErr: "field=tasks.taskId",
		},
		{
			name: "task remove without id",
			plan: agent.Plan{
				Type: agent.PlanTypeTaskAction,
				TaskAction: &agent.TaskActionPlan{
					Action: agent.TaskActionRemove,
					Tasks:  []agent.TaskProposal{{Title: "Buy seeds"}},
				},
			},
			wantErr: "field=tasks.taskId",
		},
		{
			name: "task add with unknown status",
			plan: agent.Plan{
				Type: agent.PlanTypeTaskAction,
				TaskAction: &agent.TaskActionPlan{
					Action:    agent.TaskActionAdd,
					ProjectID: "1",
					Tasks:     []agent.TaskProposal{{Title: "Write", Status: "Blocked"}},
				},
			},
			wantErr: "field=tasks.status",
		},
		{
			name: "project details without title",
			plan: agent.Plan{
				Type:           agent.PlanTypeProjectDetails,
				ProjectDetails: &agent.ProjectDetailsPlan{},
			},
			wantErr: "field=project.title",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.plan.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid plan, got %v", err)
				}
				return
			}
			if !errors.Is(err, agent.ErrMalformedPlan) {
				t.Fatalf("expected ErrMalformedPlan, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("unexpected error: got=%q want substring %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestPlanMessageCarriesSummary(t *testing.T) {
	t.Parallel()

	plan := agent.Plan{
		Type: agent.PlanTypeCalendarAction,
		CalendarAction: &agent.CalendarActionPlan{
			Action:           agent.CalendarActionCreate,
			TargetCalendarID: "primary",
			Summary:          "Add dentist appointment",
		},
	}
	message := agent.PlanMessage(plan)
	if message.Role != agent.RoleModel {
		t.Fatalf("unexpected role: got=%s want=%s", message.Role, agent.RoleModel)
	}
	if message.Content != "Add dentist appointment" {
		t.Fatalf("unexpected content: %q", message.Content)
	}
	if message.Plan == nil || message.Plan.CalendarAction == plan.CalendarAction {
		t.Fatalf("expected a cloned plan, got %+v", message.Plan)
	}
}
