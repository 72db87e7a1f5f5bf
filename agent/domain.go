package agent

import "context"

// Task statuses understood by the project store.
const (
	TaskStatusToDo       = "To Do"
	TaskStatusInProgress = "In Progress"
	TaskStatusDone       = "Done"
)

// ValidTaskStatus reports whether status is one of the known task statuses.
func ValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusToDo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

// Calendar is one calendar visible to the user.
type Calendar struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary"`
}

// CalendarEvent is a calendar event as reported by the calendar service.
type CalendarEvent struct {
	ID          string `json:"id"`
	CalendarID  string `json:"calendarId"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// EventQuery selects events overlapping [Start, End). Start and End are the
// ISO 8601 strings the model produced; the calendar service interprets them.
// Empty CalendarIDs means every calendar the service can see.
type EventQuery struct {
	CalendarIDs []string
	Start       string
	End         string
}

// EventInput carries the writable fields of an event.
type EventInput struct {
	Summary     string
	Description string
	Start       string
	End         string
}

// Project groups tasks under a title.
type Project struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	Tasks []Task `json:"tasks,omitempty"`
}

// Task is one actionable item within a project.
type Task struct {
	ID              string `json:"id"`
	ProjectID       string `json:"projectId"`
	Title           string `json:"title"`
	Body            string `json:"body,omitempty"`
	Status          string `json:"status"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	MinChunkMinutes int    `json:"minChunkMinutes,omitempty"`
	Location        string `json:"location,omitempty"`
}

// NewProject carries the fields of a project to create.
type NewProject struct {
	Title string
	Body  string
}

// NewTask carries the fields of a task to create. Empty Status defaults to TaskStatusToDo.
type NewTask struct {
	Title           string
	Body            string
	Status          string
	DurationMinutes int
	MinChunkMinutes int
	Location        string
}

// TaskPatch updates the non-nil fields of a task.
type TaskPatch struct {
	Title           *string
	Body            *string
	Status          *string
	DurationMinutes *int
	MinChunkMinutes *int
	Location        *string
}

// CalendarService is the calendar collaborator. Implementations own their
// authentication and transport.
type CalendarService interface {
	ListCalendars(ctx context.Context) ([]Calendar, error)
	ListEvents(ctx context.Context, query EventQuery) ([]CalendarEvent, error)
	CreateEvent(ctx context.Context, calendarID string, input EventInput) (CalendarEvent, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, input EventInput) (CalendarEvent, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// ProjectStore is the project backlog collaborator.
type ProjectStore interface {
	GetAllProjects(ctx context.Context) ([]Project, error)
	CreateProject(ctx context.Context, project NewProject) (Project, error)
	AddTask(ctx context.Context, projectID string, task NewTask) (Task, error)
	UpdateTask(ctx context.Context, taskID string, patch TaskPatch) (Task, error)
	DeleteTask(ctx context.Context, taskID string) error
}
