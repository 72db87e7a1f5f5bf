package planexec_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Gurpartap/horizons/adapters/inmem"
	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/planexec"
)

func newCalendar() *inmem.Calendar {
	calendar := inmem.NewCalendar(
		agent.Calendar{ID: "primary", Summary: "Personal", Primary: true},
		agent.Calendar{ID: "work", Summary: "Work"},
	)
	calendar.Seed(
		agent.CalendarEvent{ID: "e1", CalendarID: "primary", Summary: "Dentist", Start: "2025-01-10T09:00:00Z", End: "2025-01-10T10:00:00Z"},
		agent.CalendarEvent{ID: "e2", CalendarID: "primary", Summary: "Gym", Start: "2025-01-10T18:00:00Z", End: "2025-01-10T19:00:00Z"},
	)
	return calendar
}

func calendarPlan(action agent.CalendarAction, events ...agent.EventProposal) agent.Plan {
	return agent.Plan{
		Type: agent.PlanTypeCalendarAction,
		CalendarAction: &agent.CalendarActionPlan{
			Action:           action,
			TargetCalendarID: "primary",
			Summary:          "plan",
			Events:           events,
			OriginalPrompt:   "do it",
		},
	}
}

func TestExecute_CreateEvents(t *testing.T) {
	t.Parallel()

	calendar := newCalendar()
	executor := planexec.New(calendar, nil)

	result := executor.Execute(context.Background(), calendarPlan(agent.CalendarActionCreate,
		agent.EventProposal{Summary: "Standup", StartTime: "2025-01-11T09:00:00Z", EndTime: "2025-01-11T09:15:00Z"},
		agent.EventProposal{Summary: "Review", StartTime: "2025-01-11T14:00:00Z", EndTime: "2025-01-11T15:00:00Z"},
	))
	if !result.Success || result.Error != nil {
		t.Fatalf("unexpected failure: %+v", result)
	}
	if result.Message != "Successfully created 2 event(s)." {
		t.Fatalf("unexpected message: got=%q", result.Message)
	}
	if got := len(calendar.Events()); got != 4 {
		t.Fatalf("unexpected event count: got=%d want=4", got)
	}
	for _, item := range result.Items {
		if item.ID == "" {
			t.Fatalf("created item is missing its id: %+v", item)
		}
	}
}

func TestExecute_DeleteEvents(t *testing.T) {
	t.Parallel()

	calendar := newCalendar()
	result := planexec.New(calendar, nil).Execute(context.Background(), calendarPlan(agent.CalendarActionDelete,
		agent.EventProposal{EventID: "e1"},
		agent.EventProposal{EventID: "e2"},
	))
	if !result.Success {
		t.Fatalf("unexpected failure: %+v", result)
	}
	if result.Message != "Successfully deleted 2 event(s)." {
		t.Fatalf("unexpected message: got=%q", result.Message)
	}
	if got := len(calendar.Events()); got != 0 {
		t.Fatalf("events were not deleted: got=%d", got)
	}
}

func TestExecute_UpdateEvent(t *testing.T) {
	t.Parallel()

	calendar := newCalendar()
	result := planexec.New(calendar, nil).Execute(context.Background(), calendarPlan(agent.CalendarActionUpdate,
		agent.EventProposal{EventID: "e2", Summary: "Evening gym", StartTime: "2025-01-10T19:00:00Z", EndTime: "2025-01-10T20:00:00Z"},
	))
	if !result.Success || result.Message != "Successfully updated 1 event(s)." {
		t.Fatalf("unexpected result: %+v", result)
	}
	for _, event := range calendar.Events() {
		if event.ID == "e2" && (event.Summary != "Evening gym" || event.Start != "2025-01-10T19:00:00Z") {
			t.Fatalf("event was not updated: %+v", event)
		}
	}
}

func TestExecute_PartialFailureAttemptsEveryItem(t *testing.T) {
	t.Parallel()

	calendar := newCalendar()
	result := planexec.New(calendar, nil).Execute(context.Background(), calendarPlan(agent.CalendarActionDelete,
		agent.EventProposal{EventID: "missing"},
		agent.EventProposal{EventID: "e2"},
	))
	if result.Success {
		t.Fatalf("expected partial failure, got %+v", result)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("unexpected counts: succeeded=%d failed=%d", result.Succeeded, result.Failed)
	}
	if !strings.HasPrefix(result.Message, "Deleted 1 of 2 event(s); 1 failed: missing:") {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if !errors.Is(result.Error, planexec.ErrItemsFailed) {
		t.Fatalf("expected ErrItemsFailed, got %v", result.Error)
	}
	if got := len(calendar.Events()); got != 1 {
		t.Fatalf("second item was not attempted: remaining=%d", got)
	}
}

func TestExecute_EmptyEventsIsNoOpSuccess(t *testing.T) {
	t.Parallel()

	calendar := newCalendar()
	result := planexec.New(calendar, nil).Execute(context.Background(), calendarPlan(agent.CalendarActionCreate))
	if !result.Success || result.Succeeded != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Message != "Successfully created 0 event(s)." {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if got := len(calendar.Events()); got != 2 {
		t.Fatalf("calendar changed: got=%d want=2", got)
	}
}

func TestExecute_NonExecutablePlans(t *testing.T) {
	t.Parallel()

	executor := planexec.New(newCalendar(), inmem.NewProjects())
	plans := []agent.Plan{
		{
			Type: agent.PlanTypeCalendarSelection,
			CalendarSelection: &agent.CalendarSelectionRequest{
				Summary:   "Which calendar?",
				Calendars: []agent.CalendarRef{{ID: "primary", Summary: "Personal"}},
			},
		},
		{
			Type:          agent.PlanTypeProjectTitles,
			ProjectTitles: &agent.ProjectTitlesPlan{Titles: []string{"Garden"}},
		},
	}
	for _, plan := range plans {
		result := executor.Execute(context.Background(), plan)
		if result.Success || !errors.Is(result.Error, agent.ErrPlanNotExecutable) {
			t.Fatalf("expected ErrPlanNotExecutable for %s, got %+v", plan.Type, result)
		}
	}
}

func TestExecute_InvalidPlanIsRejected(t *testing.T) {
	t.Parallel()

	result := planexec.New(newCalendar(), nil).Execute(context.Background(), calendarPlan(agent.CalendarActionDelete,
		agent.EventProposal{Summary: "no id"},
	))
	if result.Success || !errors.Is(result.Error, agent.ErrMalformedPlan) {
		t.Fatalf("expected ErrMalformedPlan, got %+v", result)
	}
}

func TestExecute_MissingCollaborators(t *testing.T) {
	t.Parallel()

	executor := planexec.New(nil, nil)
	result := executor.Execute(context.Background(), calendarPlan(agent.CalendarActionCreate))
	if !errors.Is(result.Error, planexec.ErrCalendarNotConfigured) {
		t.Fatalf("expected ErrCalendarNotConfigured, got %v", result.Error)
	}
	result = executor.Execute(context.Background(), agent.Plan{
		Type:       agent.PlanTypeTaskAction,
		TaskAction: &agent.TaskActionPlan{Action: agent.TaskActionAdd, ProjectID: "p", Summary: "s"},
	})
	if !errors.Is(result.Error, planexec.ErrProjectsNotConfigured) {
		t.Fatalf("expected ErrProjectsNotConfigured, got %v", result.Error)
	}
}

func TestExecute_TaskPlanAddThenUpdate(t *testing.T) {
	t.Parallel()

	projects := inmem.NewProjects()
	project, err := projects.CreateProject(context.Background(), agent.NewProject{Title: "Garden"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	executor := planexec.New(nil, projects)

	added := executor.Execute(context.Background(), agent.Plan{
		Type: agent.PlanTypeTaskAction,
		TaskAction: &agent.TaskActionPlan{
			Action:    agent.TaskActionAdd,
			ProjectID: project.ID,
			Summary:   "Add two tasks",
			Tasks: []agent.TaskProposal{
				{Title: "Buy seeds", DurationMinutes: 30},
				{Title: "Plant", Status: agent.TaskStatusInProgress},
			},
		},
	})
	if !added.Success || added.Message != "Successfully added 2 task(s)." {
		t.Fatalf("unexpected add result: %+v", added)
	}

	updated := executor.Execute(context.Background(), agent.Plan{
		Type: agent.PlanTypeTaskAction,
		TaskAction: &agent.TaskActionPlan{
			Action:  agent.TaskActionUpdate,
			Summary: "Finish seeds",
			Tasks:   []agent.TaskProposal{{TaskID: added.Items[0].ID, Status: agent.TaskStatusDone}},
		},
	})
	if !updated.Success || updated.Message != "Successfully updated 1 task(s)." {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	all, err := projects.GetAllProjects(context.Background())
	if err != nil {
		t.Fatalf("get projects: %v", err)
	}
	tasks := all[0].Tasks
	if len(tasks) != 2 {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	if tasks[0].Status != agent.TaskStatusDone || tasks[0].DurationMinutes != 30 {
		t.Fatalf("update did not apply or clobbered fields: %+v", tasks[0])
	}
	if tasks[1].Status != agent.TaskStatusInProgress {
		t.Fatalf("unexpected status: %+v", tasks[1])
	}
}

func TestExecute_TaskPlanRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	projects := inmem.NewProjects()
	project, err := projects.CreateProject(ctx, agent.NewProject{Title: "Garden"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	task, err := projects.AddTask(ctx, project.ID, agent.NewTask{Title: "Buy seeds"})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	result := planexec.New(nil, projects).Execute(ctx, agent.Plan{
		Type: agent.PlanTypeTaskAction,
		TaskAction: &agent.TaskActionPlan{
			Action:  agent.TaskActionRemove,
			Summary: "Drop seeds and a stale task",
			Tasks:   []agent.TaskProposal{{TaskID: task.ID}, {TaskID: "missing"}},
		},
	})
	if result.Success || result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("unexpected remove result: %+v", result)
	}
	if !strings.HasPrefix(result.Message, "Removed 1 of 2 task(s)") {
		t.Fatalf("unexpected message: got=%q want prefix %q", result.Message, "Removed 1 of 2 task(s)")
	}
	if result.Items[0].ID != task.ID || result.Items[1].Error == "" {
		t.Fatalf("unexpected items: %+v", result.Items)
	}
	all, _ := projects.GetAllProjects(ctx)
	if len(all[0].Tasks) != 0 {
		t.Fatalf("task survived remove: %+v", all[0].Tasks)
	}
}

func TestExecute_ProjectDetailsCreatesProjectThenTasks(t *testing.T) {
	t.Parallel()

	projects := inmem.NewProjects()
	result := planexec.New(nil, projects).Execute(context.Background(), agent.Plan{
		Type: agent.PlanTypeProjectDetails,
		ProjectDetails: &agent.ProjectDetailsPlan{
			Project: agent.ProjectDraft{Title: "Garden", Body: "Spring planting"},
			Tasks:   []agent.TaskDraft{{Title: "Buy seeds"}, {Title: "Plant", Status: agent.TaskStatusDone}},
		},
	})
	if !result.Success {
		t.Fatalf("unexpected failure: %+v", result)
	}
	if result.Message != `Successfully created project "Garden" with 2 task(s).` {
		t.Fatalf("unexpected message: %q", result.Message)
	}

	all, err := projects.GetAllProjects(context.Background())
	if err != nil {
		t.Fatalf("get projects: %v", err)
	}
	if len(all) != 1 || all[0].Title != "Garden" || len(all[0].Tasks) != 2 {
		t.Fatalf("unexpected projects: %+v", all)
	}
	if all[0].Tasks[0].Status != agent.TaskStatusToDo {
		t.Fatalf("default status not applied: %+v", all[0].Tasks[0])
	}
}

func TestExecute_CancelledContextFailsRemainingItems(t *testing.T) {
	t.Parallel()

	calendar := newCalendar()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := planexec.New(calendar, nil).Execute(ctx, calendarPlan(agent.CalendarActionDelete,
		agent.EventProposal{EventID: "e1"},
	))
	if result.Success || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := len(calendar.Events()); got != 2 {
		t.Fatalf("calendar changed after cancellation: got=%d", got)
	}
}
