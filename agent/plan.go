package agent

import (
	"fmt"
	"strings"
)

// PlanType tags the variant carried by a Plan.
type PlanType string

const (
	PlanTypeCalendarAction    PlanType = "calendar_plan"
	PlanTypeCalendarSelection PlanType = "calendar_selection_request"
	PlanTypeTaskAction        PlanType = "task_plan"
	PlanTypeProjectTitles     PlanType = "project_titles"
	PlanTypeProjectDetails    PlanType = "project_details"
)

// CalendarAction is the mutation a calendar plan applies to every event.
type CalendarAction string

const (
	CalendarActionCreate CalendarAction = "create"
	CalendarActionDelete CalendarAction = "delete"
	CalendarActionUpdate CalendarAction = "update"
)

// TaskAction is the mutation a task plan applies to every task.
type TaskAction string

const (
	TaskActionAdd    TaskAction = "add"
	TaskActionUpdate TaskAction = "update"
	TaskActionRemove TaskAction = "remove"
)

// Plan is a proposed set of mutations awaiting human confirmation, or a
// question the model needs answered before it can propose one. Exactly one
// variant is set and it matches Type.
type Plan struct {
	Type              PlanType                  `json:"type"`
	CalendarAction    *CalendarActionPlan       `json:"calendar_action,omitempty"`
	CalendarSelection *CalendarSelectionRequest `json:"calendar_selection,omitempty"`
	TaskAction        *TaskActionPlan           `json:"task_action,omitempty"`
	ProjectTitles     *ProjectTitlesPlan        `json:"project_titles,omitempty"`
	ProjectDetails    *ProjectDetailsPlan       `json:"project_details,omitempty"`
}

// CalendarActionPlan applies one action to a list of events on one calendar.
type CalendarActionPlan struct {
	Action           CalendarAction  `json:"action"`
	TargetCalendarID string          `json:"targetCalendarId"`
	Summary          string          `json:"summary"`
	Events           []EventProposal `json:"events"`
	OriginalPrompt   string          `json:"originalPrompt"`
}

// EventProposal describes one event of a calendar plan. Times are ISO-8601
// strings passed through to the calendar unparsed.
type EventProposal struct {
	EventID     string `json:"eventId,omitempty"`
	Summary     string `json:"summary"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Description string `json:"description,omitempty"`
}

// CalendarSelectionRequest asks the user to pick one calendar. Call is the
// intercepted tool call, replayed verbatim when the conversation resumes.
type CalendarSelectionRequest struct {
	Summary        string        `json:"summary"`
	Calendars      []CalendarRef `json:"calendars"`
	OriginalPrompt string        `json:"originalPrompt"`
	Call           ToolCall      `json:"call"`
}

// CalendarRef is the minimal calendar identity shown in a selection prompt.
type CalendarRef struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
}

// TaskActionPlan applies one action to a list of tasks within a project.
type TaskActionPlan struct {
	Action         TaskAction     `json:"action"`
	ProjectID      string         `json:"projectId"`
	Summary        string         `json:"summary"`
	Tasks          []TaskProposal `json:"tasks"`
	OriginalPrompt string         `json:"originalPrompt"`
}

// TaskProposal describes one task of a task plan. TaskID is required for
// updates and removals.
type TaskProposal struct {
	TaskID          string `json:"taskId,omitempty"`
	Title           string `json:"title,omitempty"`
	Body            string `json:"body,omitempty"`
	Status          string `json:"status,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	MinChunkMinutes int    `json:"minChunkMinutes,omitempty"`
	Location        string `json:"location,omitempty"`
}

// ProjectTitlesPlan is the first extraction pass: the project titles found in a document.
type ProjectTitlesPlan struct {
	Titles []string `json:"titles"`
}

// ProjectDetailsPlan is the second extraction pass for a single project.
type ProjectDetailsPlan struct {
	Project ProjectDraft `json:"project"`
	Tasks   []TaskDraft  `json:"tasks"`
}

// ProjectDraft is an extracted project before it is persisted.
type ProjectDraft struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// TaskDraft is an extracted task before it is persisted.
type TaskDraft struct {
	Title  string `json:"title"`
	Body   string `json:"body,omitempty"`
	Status string `json:"status,omitempty"`
}

// Summary returns the human-readable summary of the plan, when it has one.
func (p Plan) Summary() string {
	switch {
	case p.CalendarAction != nil:
		return p.CalendarAction.Summary
	case p.CalendarSelection != nil:
		return p.CalendarSelection.Summary
	case p.TaskAction != nil:
		return p.TaskAction.Summary
	case p.ProjectTitles != nil:
		return fmt.Sprintf("Found %d project(s).", len(p.ProjectTitles.Titles))
	case p.ProjectDetails != nil:
		return fmt.Sprintf("Extracted project %q with %d task(s).", p.ProjectDetails.Project.Title, len(p.ProjectDetails.Tasks))
	default:
		return ""
	}
}

// OriginalPrompt returns the user request the plan answers, when recorded.
func (p Plan) OriginalPrompt() string {
	switch {
	case p.CalendarAction != nil:
		return p.CalendarAction.OriginalPrompt
	case p.CalendarSelection != nil:
		return p.CalendarSelection.OriginalPrompt
	case p.TaskAction != nil:
		return p.TaskAction.OriginalPrompt
	default:
		return ""
	}
}

// Validate checks that the tag agrees with the populated variant and that the
// variant satisfies its own invariants.
func (p Plan) Validate() error {
	variants := 0
	for _, set := range []bool{
		p.CalendarAction != nil,
		p.CalendarSelection != nil,
		p.TaskAction != nil,
		p.ProjectTitles != nil,
		p.ProjectDetails != nil,
	} {
		if set {
			variants++
		}
	}
	if variants != 1 {
		return fmt.Errorf("%w: field=variant reason=expected_exactly_one count=%d type=%q", ErrMalformedPlan, variants, p.Type)
	}

	switch p.Type {
	case PlanTypeCalendarAction:
		if p.CalendarAction == nil {
			return planTypeMismatch(p.Type)
		}
		return p.CalendarAction.validate()
	case PlanTypeCalendarSelection:
		if p.CalendarSelection == nil {
			return planTypeMismatch(p.Type)
		}
		return p.CalendarSelection.validate()
	case PlanTypeTaskAction:
		if p.TaskAction == nil {
			return planTypeMismatch(p.Type)
		}
		return p.TaskAction.validate()
	case PlanTypeProjectTitles:
		if p.ProjectTitles == nil {
			return planTypeMismatch(p.Type)
		}
		return p.ProjectTitles.validate()
	case PlanTypeProjectDetails:
		if p.ProjectDetails == nil {
			return planTypeMismatch(p.Type)
		}
		return p.ProjectDetails.validate()
	case "":
		return fmt.Errorf("%w: field=type reason=empty", ErrMalformedPlan)
	default:
		return fmt.Errorf("%w: field=type reason=unknown value=%q", ErrMalformedPlan, p.Type)
	}
}

func planTypeMismatch(planType PlanType) error {
	return fmt.Errorf("%w: field=type reason=variant_mismatch value=%q", ErrMalformedPlan, planType)
}

func (p *CalendarActionPlan) validate() error {
	switch p.Action {
	case CalendarActionCreate, CalendarActionDelete, CalendarActionUpdate:
	default:
		return fmt.Errorf("%w: field=action reason=unsupported value=%q", ErrMalformedPlan, p.Action)
	}
	if strings.TrimSpace(p.TargetCalendarID) == "" {
		return fmt.Errorf("%w: field=targetCalendarId reason=empty", ErrMalformedPlan)
	}
	for i, event := range p.Events {
		if err := event.validate(p.Action); err != nil {
			return fmt.Errorf("%w index=%d", err, i)
		}
	}
	return nil
}

func (e EventProposal) validate(action CalendarAction) error {
	switch action {
	case CalendarActionCreate:
		if e.EventID != "" {
			return fmt.Errorf("%w: field=events.eventId reason=forbidden_for_create", ErrMalformedPlan)
		}
	default:
		if strings.TrimSpace(e.EventID) == "" {
			return fmt.Errorf("%w: field=events.eventId reason=required_for_%s", ErrMalformedPlan, action)
		}
	}
	if action == CalendarActionDelete {
		return nil
	}
	if strings.TrimSpace(e.Summary) == "" {
		return fmt.Errorf("%w: field=events.summary reason=empty", ErrMalformedPlan)
	}
	if strings.TrimSpace(e.StartTime) == "" || strings.TrimSpace(e.EndTime) == "" {
		return fmt.Errorf("%w: field=events.startTime/endTime reason=empty", ErrMalformedPlan)
	}
	return nil
}

func (r *CalendarSelectionRequest) validate() error {
	if len(r.Calendars) == 0 {
		return fmt.Errorf("%w: field=calendars reason=empty", ErrMalformedPlan)
	}
	for i, calendar := range r.Calendars {
		if strings.TrimSpace(calendar.ID) == "" {
			return fmt.Errorf("%w: field=calendars.id reason=empty index=%d", ErrMalformedPlan, i)
		}
	}
	return nil
}

func (p *TaskActionPlan) validate() error {
	switch p.Action {
	case TaskActionAdd, TaskActionUpdate, TaskActionRemove:
	default:
		return fmt.Errorf("%w: field=action reason=unsupported value=%q", ErrMalformedPlan, p.Action)
	}
	if p.Action == TaskActionAdd && strings.TrimSpace(p.ProjectID) == "" {
		return fmt.Errorf("%w: field=projectId reason=empty", ErrMalformedPlan)
	}
	for i, task := range p.Tasks {
		switch p.Action {
		case TaskActionAdd:
			if strings.TrimSpace(task.Title) == "" {
				return fmt.Errorf("%w: field=tasks.title reason=empty index=%d", ErrMalformedPlan, i)
			}
		case TaskActionUpdate, TaskActionRemove:
			if strings.TrimSpace(task.TaskID) == "" {
				return fmt.Errorf("%w: field=tasks.taskId reason=empty index=%d", ErrMalformedPlan, i)
			}
		}
		if task.Status != "" && !ValidTaskStatus(task.Status) {
			return fmt.Errorf("%w: field=tasks.status reason=unsupported value=%q index=%d", ErrMalformedPlan, task.Status, i)
		}
	}
	return nil
}

func (p *ProjectTitlesPlan) validate() error {
	for i, title := range p.Titles {
		if strings.TrimSpace(title) == "" {
			return fmt.Errorf("%w: field=titles reason=empty index=%d", ErrMalformedPlan, i)
		}
	}
	return nil
}

func (p *ProjectDetailsPlan) validate() error {
	if strings.TrimSpace(p.Project.Title) == "" {
		return fmt.Errorf("%w: field=project.title reason=empty", ErrMalformedPlan)
	}
	for i, task := range p.Tasks {
		if strings.TrimSpace(task.Title) == "" {
			return fmt.Errorf("%w: field=tasks.title reason=empty index=%d", ErrMalformedPlan, i)
		}
		if task.Status != "" && !ValidTaskStatus(task.Status) {
			return fmt.Errorf("%w: field=tasks.status reason=unsupported value=%q index=%d", ErrMalformedPlan, task.Status, i)
		}
	}
	return nil
}

// ClonePlan returns a deep copy of a plan.
func ClonePlan(in Plan) Plan {
	out := in
	if in.CalendarAction != nil {
		action := *in.CalendarAction
		action.Events = append([]EventProposal(nil), in.CalendarAction.Events...)
		out.CalendarAction = &action
	}
	if in.CalendarSelection != nil {
		selection := *in.CalendarSelection
		selection.Calendars = append([]CalendarRef(nil), in.CalendarSelection.Calendars...)
		selection.Call = CloneToolCall(in.CalendarSelection.Call)
		out.CalendarSelection = &selection
	}
	if in.TaskAction != nil {
		action := *in.TaskAction
		action.Tasks = append([]TaskProposal(nil), in.TaskAction.Tasks...)
		out.TaskAction = &action
	}
	if in.ProjectTitles != nil {
		titles := *in.ProjectTitles
		titles.Titles = append([]string(nil), in.ProjectTitles.Titles...)
		out.ProjectTitles = &titles
	}
	if in.ProjectDetails != nil {
		details := *in.ProjectDetails
		details.Tasks = append([]TaskDraft(nil), in.ProjectDetails.Tasks...)
		out.ProjectDetails = &details
	}
	return out
}
