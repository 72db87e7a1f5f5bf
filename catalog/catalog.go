// Package catalog declares the tools offered to the model in each assistant
// mode and converts plan-terminal tool calls into typed plans.
package catalog

import (
	"fmt"
	"time"

	"github.com/Gurpartap/horizons/agent"
)

// Mode selects the tool set and instruction offered to the model.
type Mode string

const (
	ModeCalendarAssistant Mode = "calendar_assistant"
	ModeDocumentExtractor Mode = "document_extractor"
)

// Tool names.
const (
	ToolListCalendars             = "list_calendars"
	ToolGetCalendarEvents         = "get_calendar_events"
	ToolGetProjects               = "get_projects"
	ToolProposeCalendarActionPlan = "propose_calendar_action_plan"
	ToolRequestCalendarSelection  = "request_calendar_selection"
	ToolProposeTaskPlan           = "propose_task_plan"
	ToolSaveProjectTitles         = "save_project_titles"
	ToolSaveProjectDetails        = "save_project_details"
)

// Tools returns the tool definitions of mode. Unknown modes have no tools.
// Every call returns fresh values.
func Tools(mode Mode) []agent.ToolDefinition {
	switch mode {
	case ModeCalendarAssistant:
		return []agent.ToolDefinition{
			listCalendarsTool(),
			getCalendarEventsTool(),
			getProjectsTool(),
			proposeCalendarActionPlanTool(),
			requestCalendarSelectionTool(),
			proposeTaskPlanTool(),
		}
	case ModeDocumentExtractor:
		return []agent.ToolDefinition{
			saveProjectTitlesTool(),
			saveProjectDetailsTool(),
		}
	default:
		return nil
	}
}

// Only returns the subset of mode's tools named in names, in catalog order.
func Only(mode Mode, names ...string) []agent.ToolDefinition {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}
	all := Tools(mode)
	out := make([]agent.ToolDefinition, 0, len(names))
	for _, definition := range all {
		if _, ok := wanted[definition.Name]; ok {
			out = append(out, definition)
		}
	}
	return out
}

// IsPlanTool reports whether name is plan-terminal in any mode.
func IsPlanTool(name string) bool {
	switch name {
	case ToolProposeCalendarActionPlan,
		ToolRequestCalendarSelection,
		ToolProposeTaskPlan,
		ToolSaveProjectTitles,
		ToolSaveProjectDetails:
		return true
	default:
		return false
	}
}

// ParseMode validates a user-supplied mode name.
func ParseMode(input string) (Mode, error) {
	switch Mode(input) {
	case ModeCalendarAssistant, ModeDocumentExtractor:
		return Mode(input), nil
	default:
		return "", fmt.Errorf(
			"unsupported mode %q (allowed: %q, %q)",
			input,
			ModeCalendarAssistant,
			ModeDocumentExtractor,
		)
	}
}

// SystemInstruction returns the instruction sent with every model call in mode.
func SystemInstruction(mode Mode, now time.Time) string {
	switch mode {
	case ModeCalendarAssistant:
		return fmt.Sprintf(
			"You are a personal planning assistant. The current time is %s. "+
				"Use list_calendars, get_calendar_events and get_projects to look things up. "+
				"Never change anything directly: propose calendar changes with %s, task changes with %s, "+
				"and ask with %s when it is unclear which calendar to use.",
			now.Format(time.RFC3339),
			ToolProposeCalendarActionPlan,
			ToolProposeTaskPlan,
			ToolRequestCalendarSelection,
		)
	case ModeDocumentExtractor:
		return "You extract projects and their tasks from free-form documents. " +
			"Only report what the document states. Task status must be one of \"To Do\", \"In Progress\" or \"Done\"."
	default:
		return ""
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProperty(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func listCalendarsTool() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        ToolListCalendars,
		Description: "Lists the calendars the user can read and write.",
		InputSchema: objectSchema(map[string]any{}),
		Kind:        agent.ToolKindInformation,
	}
}

func getCalendarEventsTool() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        ToolGetCalendarEvents,
		Description: "Gets calendar events between two ISO-8601 timestamps.",
		InputSchema: objectSchema(map[string]any{
			"startDate": stringProperty("Inclusive range start, ISO-8601."),
			"endDate":   stringProperty("Exclusive range end, ISO-8601."),
			"calendarIds": map[string]any{
				"type":        "array",
				"description": "Calendars to search. Omit to search all calendars.",
				"items":       map[string]any{"type": "string"},
			},
		}, "startDate", "endDate"),
		Kind: agent.ToolKindInformation,
	}
}

func getProjectsTool() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        ToolGetProjects,
		Description: "Lists all projects with their tasks.",
		InputSchema: objectSchema(map[string]any{}),
		Kind:        agent.ToolKindInformation,
	}
}

func proposeCalendarActionPlanTool() agent.ToolDefinition {
	event := objectSchema(map[string]any{
		"eventId":     stringProperty("Existing event id. Required for delete and update."),
		"summary":     stringProperty("Event title."),
		"startTime":   stringProperty("ISO-8601 start time."),
		"endTime":     stringProperty("ISO-8601 end time."),
		"description": stringProperty("Optional event description."),
	}, "summary", "startTime", "endTime")
	return agent.ToolDefinition{
		Name:        ToolProposeCalendarActionPlan,
		Description: "Proposes creating, deleting or updating calendar events. The user confirms before anything changes.",
		InputSchema: objectSchema(map[string]any{
			"action": map[string]any{
				"type": "string",
				"enum": []string{
					string(agent.CalendarActionCreate),
					string(agent.CalendarActionDelete),
					string(agent.CalendarActionUpdate),
				},
			},
			"targetCalendarId": stringProperty("Calendar the action applies to."),
			"summary":          stringProperty("One sentence describing the change for the user."),
			"events":           map[string]any{"type": "array", "items": event},
		}, "action", "targetCalendarId", "summary", "events"),
		Kind: agent.ToolKindPlan,
	}
}

func requestCalendarSelectionTool() agent.ToolDefinition {
	calendar := objectSchema(map[string]any{
		"id":      stringProperty("Calendar id."),
		"summary": stringProperty("Calendar name."),
	}, "id", "summary")
	return agent.ToolDefinition{
		Name:        ToolRequestCalendarSelection,
		Description: "Asks the user which calendar to use.",
		InputSchema: objectSchema(map[string]any{
			"summary":   stringProperty("The question shown to the user."),
			"calendars": map[string]any{"type": "array", "items": calendar},
		}, "summary", "calendars"),
		Kind: agent.ToolKindPlan,
	}
}

func proposeTaskPlanTool() agent.ToolDefinition {
	task := objectSchema(map[string]any{
		"taskId":          stringProperty("Existing task id. Required for update and remove."),
		"title":           stringProperty("Task title. Required for add."),
		"body":            stringProperty("Task notes."),
		"status":          taskStatusProperty(),
		"durationMinutes": map[string]any{"type": "integer"},
		"minChunkMinutes": map[string]any{"type": "integer"},
		"location":        stringProperty("Where the task happens."),
	})
	return agent.ToolDefinition{
		Name:        ToolProposeTaskPlan,
		Description: "Proposes adding, updating or removing project tasks. The user confirms before anything changes.",
		InputSchema: objectSchema(map[string]any{
			"action": map[string]any{
				"type": "string",
				"enum": []string{string(agent.TaskActionAdd), string(agent.TaskActionUpdate), string(agent.TaskActionRemove)},
			},
			"projectId": stringProperty("Project the tasks belong to. Required for add."),
			"summary":   stringProperty("One sentence describing the change for the user."),
			"tasks":     map[string]any{"type": "array", "items": task},
		}, "action", "summary", "tasks"),
		Kind: agent.ToolKindPlan,
	}
}

func saveProjectTitlesTool() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        ToolSaveProjectTitles,
		Description: "Records the title of every project found in the document.",
		InputSchema: objectSchema(map[string]any{
			"titles": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		}, "titles"),
		Kind: agent.ToolKindPlan,
	}
}

func saveProjectDetailsTool() agent.ToolDefinition {
	task := objectSchema(map[string]any{
		"title":  stringProperty("Task title."),
		"body":   stringProperty("Task notes."),
		"status": taskStatusProperty(),
	}, "title")
	return agent.ToolDefinition{
		Name:        ToolSaveProjectDetails,
		Description: "Records one project and its tasks.",
		InputSchema: objectSchema(map[string]any{
			"project": objectSchema(map[string]any{
				"title": stringProperty("Project title."),
				"body":  stringProperty("Project description."),
			}, "title"),
			"tasks": map[string]any{"type": "array", "items": task},
		}, "project", "tasks"),
		Kind: agent.ToolKindPlan,
	}
}

func taskStatusProperty() map[string]any {
	return map[string]any{
		"type": "string",
		"enum": []string{agent.TaskStatusToDo, agent.TaskStatusInProgress, agent.TaskStatusDone},
	}
}
