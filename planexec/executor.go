package planexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Gurpartap/horizons/agent"
)

var (
	ErrItemsFailed           = errors.New("plan items failed")
	ErrCalendarNotConfigured = errors.New("calendar service is not configured")
	ErrProjectsNotConfigured = errors.New("project store is not configured")
)

// ItemResult is the outcome of one event or task of a plan.
type ItemResult struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the item was applied.
func (r ItemResult) OK() bool {
	return r.Error == ""
}

// Result aggregates the outcome of executing one plan. Every item is attempted
// even after an earlier one fails.
type Result struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Error     error        `json:"-"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Items     []ItemResult `json:"items,omitempty"`
}

// Executor applies confirmed plans to the calendar and the project store.
// Execution is not idempotent: executing the same plan twice applies it twice.
type Executor struct {
	calendar agent.CalendarService
	projects agent.ProjectStore
	logger   *slog.Logger
}

type Option func(*Executor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(calendar agent.CalendarService, projects agent.ProjectStore, opts ...Option) *Executor {
	e := &Executor{
		calendar: calendar,
		projects: projects,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute applies a validated plan. Selection requests and title lists are
// not executable and yield agent.ErrPlanNotExecutable.
func (e *Executor) Execute(ctx context.Context, plan agent.Plan) Result {
	if ctx == nil {
		return failure(agent.ErrContextNil)
	}
	if err := plan.Validate(); err != nil {
		return failure(err)
	}

	switch plan.Type {
	case agent.PlanTypeCalendarAction:
		return e.executeCalendar(ctx, plan.CalendarAction)
	case agent.PlanTypeTaskAction:
		return e.executeTasks(ctx, plan.TaskAction)
	case agent.PlanTypeProjectDetails:
		return e.executeProjectDetails(ctx, plan.ProjectDetails)
	default:
		return failure(fmt.Errorf("%w: type=%s", agent.ErrPlanNotExecutable, plan.Type))
	}
}

func (e *Executor) executeCalendar(ctx context.Context, plan *agent.CalendarActionPlan) Result {
	if e.calendar == nil {
		return failure(ErrCalendarNotConfigured)
	}

	items := make([]ItemResult, 0, len(plan.Events))
	for i, proposal := range plan.Events {
		item := ItemResult{Index: i, ID: proposal.EventID, Title: proposal.Summary}
		if ctxErr := ctx.Err(); ctxErr != nil {
			item.Error = ctxErr.Error()
			items = append(items, item)
			continue
		}

		var err error
		switch plan.Action {
		case agent.CalendarActionCreate:
			var created agent.CalendarEvent
			created, err = e.calendar.CreateEvent(ctx, plan.TargetCalendarID, eventInput(proposal))
			if err == nil {
				item.ID = created.ID
			}
		case agent.CalendarActionUpdate:
			_, err = e.calendar.UpdateEvent(ctx, plan.TargetCalendarID, proposal.EventID, eventInput(proposal))
		case agent.CalendarActionDelete:
			err = e.calendar.DeleteEvent(ctx, plan.TargetCalendarID, proposal.EventID)
		}
		if err != nil {
			item.Error = err.Error()
			e.logger.WarnContext(ctx, "calendar plan item failed",
				slog.String("action", string(plan.Action)),
				slog.String("calendar_id", plan.TargetCalendarID),
				slog.Int("index", i),
				slog.Any("err", err),
			)
		}
		items = append(items, item)
	}

	return aggregate(calendarVerb(plan.Action), "event(s)", items)
}

func (e *Executor) executeTasks(ctx context.Context, plan *agent.TaskActionPlan) Result {
	if e.projects == nil {
		return failure(ErrProjectsNotConfigured)
	}

	items := make([]ItemResult, 0, len(plan.Tasks))
	for i, proposal := range plan.Tasks {
		item := ItemResult{Index: i, ID: proposal.TaskID, Title: proposal.Title}
		if ctxErr := ctx.Err(); ctxErr != nil {
			item.Error = ctxErr.Error()
			items = append(items, item)
			continue
		}

		var (
			task agent.Task
			err  error
		)
		switch plan.Action {
		case agent.TaskActionAdd:
			task, err = e.projects.AddTask(ctx, plan.ProjectID, agent.NewTask{
				Title:           proposal.Title,
				Body:            proposal.Body,
				Status:          proposal.Status,
				DurationMinutes: proposal.DurationMinutes,
				MinChunkMinutes: proposal.MinChunkMinutes,
				Location:        proposal.Location,
			})
		case agent.TaskActionUpdate:
			task, err = e.projects.UpdateTask(ctx, proposal.TaskID, taskPatch(proposal))
		case agent.TaskActionRemove:
			err = e.projects.DeleteTask(ctx, proposal.TaskID)
			task.ID = proposal.TaskID
		}
		if err != nil {
			item.Error = err.Error()
			e.logger.WarnContext(ctx, "task plan item failed",
				slog.String("action", string(plan.Action)),
				slog.String("project_id", plan.ProjectID),
				slog.Int("index", i),
				slog.Any("err", err),
			)
		} else {
			item.ID = task.ID
			if item.Title == "" {
				item.Title = task.Title
			}
		}
		items = append(items, item)
	}

	return aggregate(taskVerb(plan.Action), "task(s)", items)
}

func (e *Executor) executeProjectDetails(ctx context.Context, plan *agent.ProjectDetailsPlan) Result {
	if e.projects == nil {
		return failure(ErrProjectsNotConfigured)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return failure(ctxErr)
	}

	project, err := e.projects.CreateProject(ctx, agent.NewProject{
		Title: plan.Project.Title,
		Body:  plan.Project.Body,
	})
	if err != nil {
		return failure(fmt.Errorf("create project %q: %w", plan.Project.Title, err))
	}

	items := make([]ItemResult, 0, len(plan.Tasks))
	for i, draft := range plan.Tasks {
		item := ItemResult{Index: i, Title: draft.Title}
		if ctxErr := ctx.Err(); ctxErr != nil {
			item.Error = ctxErr.Error()
			items = append(items, item)
			continue
		}
		task, err := e.projects.AddTask(ctx, project.ID, agent.NewTask{
			Title:  draft.Title,
			Body:   draft.Body,
			Status: draft.Status,
		})
		if err != nil {
			item.Error = err.Error()
		} else {
			item.ID = task.ID
		}
		items = append(items, item)
	}

	result := aggregate("added", "task(s)", items)
	if result.Success {
		result.Message = fmt.Sprintf("Successfully created project %q with %d task(s).", project.Title, result.Succeeded)
	} else {
		result.Message = fmt.Sprintf("Created project %q; %s", project.Title, result.Message)
	}
	return result
}

func aggregate(verb, noun string, items []ItemResult) Result {
	result := Result{Items: items}
	failures := make([]string, 0)
	errs := make([]error, 0)
	for _, item := range items {
		if item.OK() {
			result.Succeeded++
			continue
		}
		result.Failed++
		label := item.ID
		if label == "" {
			label = item.Title
		}
		if label == "" {
			label = fmt.Sprintf("#%d", item.Index)
		}
		failures = append(failures, fmt.Sprintf("%s: %s", label, item.Error))
		errs = append(errs, errors.New(item.Error))
	}

	if result.Failed == 0 {
		result.Success = true
		result.Message = fmt.Sprintf("Successfully %s %d %s.", verb, result.Succeeded, noun)
		return result
	}

	result.Message = fmt.Sprintf("%s %d of %d %s; %d failed: %s",
		capitalize(verb), result.Succeeded, len(items), noun, result.Failed, strings.Join(failures, "; "))
	result.Error = errors.Join(append([]error{fmt.Errorf("%w: failed=%d total=%d", ErrItemsFailed, result.Failed, len(items))}, errs...)...)
	return result
}

func failure(err error) Result {
	return Result{
		Message: err.Error(),
		Error:   err,
	}
}

func eventInput(proposal agent.EventProposal) agent.EventInput {
	return agent.EventInput{
		Summary:     proposal.Summary,
		Description: proposal.Description,
		Start:       proposal.StartTime,
		End:         proposal.EndTime,
	}
}

func taskPatch(proposal agent.TaskProposal) agent.TaskPatch {
	var patch agent.TaskPatch
	if proposal.Title != "" {
		patch.Title = &proposal.Title
	}
	if proposal.Body != "" {
		patch.Body = &proposal.Body
	}
	if proposal.Status != "" {
		patch.Status = &proposal.Status
	}
	if proposal.DurationMinutes != 0 {
		patch.DurationMinutes = &proposal.DurationMinutes
	}
	if proposal.MinChunkMinutes != 0 {
		patch.MinChunkMinutes = &proposal.MinChunkMinutes
	}
	if proposal.Location != "" {
		patch.Location = &proposal.Location
	}
	return patch
}

func calendarVerb(action agent.CalendarAction) string {
	switch action {
	case agent.CalendarActionCreate:
		return "created"
	case agent.CalendarActionDelete:
		return "deleted"
	default:
		return "updated"
	}
}

func taskVerb(action agent.TaskAction) string {
	switch action {
	case agent.TaskActionAdd:
		return "added"
	case agent.TaskActionRemove:
		return "removed"
	default:
		return "updated"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
