// Package toolset binds the information tools of the calendar assistant to
// their collaborators.
package toolset

import (
	"context"
	"errors"
	"strings"

	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/catalog"
	"github.com/Gurpartap/horizons/tooling/registry"
)

var (
	ErrCalendarUnavailable = errors.New("calendar service is not configured")
	ErrProjectsUnavailable = errors.New("project store is not configured")
)

// New returns a registry executing every information tool of
// catalog.ModeCalendarAssistant. A nil collaborator makes its tools fail
// with a recoverable error instead of being unregistered.
func New(calendar agent.CalendarService, projects agent.ProjectStore) *registry.Registry {
	h := handlers{calendar: calendar, projects: projects}
	return registry.New(map[string]registry.Handler{
		catalog.ToolListCalendars:     h.listCalendars,
		catalog.ToolGetCalendarEvents: h.getCalendarEvents,
		catalog.ToolGetProjects:       h.getProjects,
	})
}

type handlers struct {
	calendar agent.CalendarService
	projects agent.ProjectStore
}

type noArgs struct{}

type getCalendarEventsArgs struct {
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	CalendarIDs []string `json:"calendarIds"`
}

func (a getCalendarEventsArgs) query() (agent.EventQuery, error) {
	start := strings.TrimSpace(a.StartDate)
	end := strings.TrimSpace(a.EndDate)
	if start == "" {
		return agent.EventQuery{}, errors.New("startDate is required")
	}
	if end == "" {
		return agent.EventQuery{}, errors.New("endDate is required")
	}
	ids := make([]string, 0, len(a.CalendarIDs))
	for _, id := range a.CalendarIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return agent.EventQuery{CalendarIDs: ids, Start: start, End: end}, nil
}

type calendarView struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary"`
}

type eventView struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	Start      string `json:"start"`
	End        string `json:"end"`
	CalendarID string `json:"calendarId"`
}

type projectView struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Body  string     `json:"body,omitempty"`
	Tasks []taskView `json:"tasks"`
}

type taskView struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

func (h handlers) listCalendars(ctx context.Context, arguments map[string]any) (any, error) {
	if err := agent.DecodeArguments(arguments, &noArgs{}); err != nil {
		return nil, err
	}
	if h.calendar == nil {
		return nil, ErrCalendarUnavailable
	}
	calendars, err := h.calendar.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]calendarView, 0, len(calendars))
	for _, calendar := range calendars {
		views = append(views, calendarView(calendar))
	}
	return map[string]any{"calendars": views}, nil
}

func (h handlers) getCalendarEvents(ctx context.Context, arguments map[string]any) (any, error) {
	var args getCalendarEventsArgs
	if err := agent.DecodeArguments(arguments, &args); err != nil {
		return nil, err
	}
	query, err := args.query()
	if err != nil {
		return nil, err
	}
	if h.calendar == nil {
		return nil, ErrCalendarUnavailable
	}
	events, err := h.calendar.ListEvents(ctx, query)
	if err != nil {
		return nil, err
	}
	views := make([]eventView, 0, len(events))
	for _, event := range events {
		views = append(views, eventView{
			ID:         event.ID,
			Summary:    event.Summary,
			Start:      event.Start,
			End:        event.End,
			CalendarID: event.CalendarID,
		})
	}
	return map[string]any{"events": views}, nil
}

func (h handlers) getProjects(ctx context.Context, arguments map[string]any) (any, error) {
	if err := agent.DecodeArguments(arguments, &noArgs{}); err != nil {
		return nil, err
	}
	if h.projects == nil {
		return nil, ErrProjectsUnavailable
	}
	projects, err := h.projects.GetAllProjects(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]projectView, 0, len(projects))
	for _, project := range projects {
		view := projectView{
			ID:    project.ID,
			Title: project.Title,
			Body:  project.Body,
			Tasks: make([]taskView, 0, len(project.Tasks)),
		}
		for _, task := range project.Tasks {
			view.Tasks = append(view.Tasks, taskView{ID: task.ID, Title: task.Title, Status: task.Status})
		}
		views = append(views, view)
	}
	return map[string]any{"projects": views}, nil
}
