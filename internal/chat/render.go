package chat

import (
	"fmt"
	"io"
	"strings"

	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/planexec"
)

const defaultPrompt = "you> "

type Renderer struct {
	out    io.Writer
	prompt string
}

func NewRenderer(out io.Writer, prompt string) *Renderer {
	if out == nil {
		out = io.Discard
	}
	if prompt == "" {
		prompt = defaultPrompt
	}
	return &Renderer{out: out, prompt: prompt}
}

func (r *Renderer) ShowPrompt() error {
	_, err := io.WriteString(r.out, r.prompt)
	return err
}

func (r *Renderer) PrintLine(line string) error {
	_, err := fmt.Fprintln(r.out, line)
	return err
}

// PrintReply renders a model reply. Plans are listed with the commands that
// act on them.
func (r *Renderer) PrintReply(reply agent.Message) error {
	if reply.Plan == nil {
		return r.PrintLine("assistant> " + reply.Content)
	}
	return r.PrintLine(formatPlan(*reply.Plan))
}

func (r *Renderer) PrintResult(result planexec.Result) error {
	lines := []string{"assistant> " + result.Message}
	for _, item := range result.Items {
		if item.Error != "" {
			label := item.Title
			if label == "" {
				label = fmt.Sprintf("item %d", item.Index+1)
			}
			lines = append(lines, fmt.Sprintf("  failed %s: %s", label, item.Error))
		}
	}
	return r.PrintLine(strings.Join(lines, "\n"))
}

func formatPlan(plan agent.Plan) string {
	var b strings.Builder
	b.WriteString("assistant> ")
	b.WriteString(plan.Summary())
	switch {
	case plan.CalendarAction != nil:
		action := plan.CalendarAction
		fmt.Fprintf(&b, "\n  %s on calendar %s:", action.Action, action.TargetCalendarID)
		for _, event := range action.Events {
			fmt.Fprintf(&b, "\n  - %s (%s to %s)", event.Summary, event.StartTime, event.EndTime)
		}
		b.WriteString("\n/confirm to apply, /discard to drop")
	case plan.CalendarSelection != nil:
		for i, calendar := range plan.CalendarSelection.Calendars {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, calendar.Summary)
		}
		b.WriteString("\n/select <number> to choose, /discard to drop")
	case plan.TaskAction != nil:
		action := plan.TaskAction
		fmt.Fprintf(&b, "\n  %s in project %s:", action.Action, action.ProjectID)
		for _, task := range action.Tasks {
			label := task.Title
			if label == "" {
				label = task.TaskID
			}
			fmt.Fprintf(&b, "\n  - %s", label)
		}
		b.WriteString("\n/confirm to apply, /discard to drop")
	}
	return b.String()
}
