package assistant_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Gurpartap/horizons/adapters/inmem"
	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/assistant"
	"github.com/Gurpartap/horizons/planexec"
	sessioninmem "github.com/Gurpartap/horizons/sessionstore/inmem"
	"github.com/Gurpartap/horizons/tooling/toolset"
)

// mutationCounter wraps the in-memory collaborators and counts every call
// that changes state.
type mutationCounter struct {
	*inmem.Calendar
	projects *inmem.Projects

	mu        sync.Mutex
	mutations []string
}

func (c *mutationCounter) record(name string) {
	c.mu.Lock()
	c.mutations = append(c.mutations, name)
	c.mu.Unlock()
}

func (c *mutationCounter) Mutations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.mutations...)
}

func (c *mutationCounter) CreateEvent(ctx context.Context, calendarID string, input agent.EventInput) (agent.CalendarEvent, error) {
	c.record("CreateEvent")
	return c.Calendar.CreateEvent(ctx, calendarID, input)
}

func (c *mutationCounter) UpdateEvent(ctx context.Context, calendarID, eventID string, input agent.EventInput) (agent.CalendarEvent, error) {
	c.record("UpdateEvent")
	return c.Calendar.UpdateEvent(ctx, calendarID, eventID, input)
}

func (c *mutationCounter) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	c.record("DeleteEvent")
	return c.Calendar.DeleteEvent(ctx, calendarID, eventID)
}

type countingProjects struct {
	counter *mutationCounter
}

func (p countingProjects) GetAllProjects(ctx context.Context) ([]agent.Project, error) {
	return p.counter.projects.GetAllProjects(ctx)
}

func (p countingProjects) CreateProject(ctx context.Context, project agent.NewProject) (agent.Project, error) {
	p.counter.record("CreateProject")
	return p.counter.projects.CreateProject(ctx, project)
}

func (p countingProjects) AddTask(ctx context.Context, projectID string, task agent.NewTask) (agent.Task, error) {
	p.counter.record("AddTask")
	return p.counter.projects.AddTask(ctx, projectID, task)
}

func (p countingProjects) UpdateTask(ctx context.Context, taskID string, patch agent.TaskPatch) (agent.Task, error) {
	p.counter.record("UpdateTask")
	return p.counter.projects.UpdateTask(ctx, taskID, patch)
}

func (p countingProjects) DeleteTask(ctx context.Context, taskID string) error {
	p.counter.record("DeleteTask")
	return p.counter.projects.DeleteTask(ctx, taskID)
}

type fixture struct {
	counter  *mutationCounter
	service  *assistant.Service
	manager  *assistant.Manager
	updates  *updateRecorder
	calendar *inmem.Calendar
}

type updateRecorder struct {
	mu     sync.Mutex
	events []agent.EventType
}

func (r *updateRecorder) record(_ context.Context, event agent.Event) {
	r.mu.Lock()
	r.events = append(r.events, event.Type)
	r.mu.Unlock()
}

func (r *updateRecorder) Types() []agent.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]agent.EventType(nil), r.events...)
}

var fixedNow = time.Date(2025, time.January, 9, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, model agent.Model) *fixture {
	t.Helper()

	calendar := inmem.NewCalendarIn(time.UTC,
		agent.Calendar{ID: "cal-personal", Summary: "Personal", Primary: true},
		agent.Calendar{ID: "cal-work", Summary: "Work"},
	)
	calendar.Seed(
		agent.CalendarEvent{ID: "evt-a", CalendarID: "cal-work", Summary: "Standup", Start: "2025-01-10T09:00:00Z", End: "2025-01-10T09:15:00Z"},
		agent.CalendarEvent{ID: "evt-b", CalendarID: "cal-work", Summary: "Planning", Start: "2025-01-10T13:00:00Z", End: "2025-01-10T14:00:00Z"},
		agent.CalendarEvent{ID: "evt-c", CalendarID: "cal-personal", Summary: "Gym", Start: "2025-01-10T18:00:00Z", End: "2025-01-10T19:00:00Z"},
	)
	counter := &mutationCounter{Calendar: calendar, projects: inmem.NewProjects()}
	projects := countingProjects{counter: counter}
	updates := &updateRecorder{}

	service, err := assistant.New(
		model,
		toolset.New(counter, projects),
		planexec.New(counter, projects),
		assistant.WithOnUpdate(updates.record),
		assistant.WithClock(func() time.Time { return fixedNow }),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	manager, err := assistant.NewManager(service, sessioninmem.New())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return &fixture{
		counter:  counter,
		service:  service,
		manager:  manager,
		updates:  updates,
		calendar: calendar,
	}
}

func deletePlanArgs() map[string]any {
	return map[string]any{
		"action":           "delete",
		"targetCalendarId": "cal-work",
		"summary":          "Delete your two meetings on Friday.",
		"events": []any{
			map[string]any{"eventId": "evt-a", "summary": "Standup", "startTime": "2025-01-10T09:00:00Z", "endTime": "2025-01-10T09:15:00Z"},
			map[string]any{"eventId": "evt-b", "summary": "Planning", "startTime": "2025-01-10T13:00:00Z", "endTime": "2025-01-10T14:00:00Z"},
		},
	}
}

func selectionArgs() map[string]any {
	return map[string]any{
		"summary": "Which calendar are your meetings on?",
		"calendars": []any{
			map[string]any{"id": "cal-personal", "summary": "Personal"},
			map[string]any{"id": "cal-work", "summary": "Work"},
		},
	}
}
