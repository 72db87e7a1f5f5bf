// Package chat is a line-oriented terminal conversation with one assistant
// session.
package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/planexec"
)

var ErrQuit = errors.New("quit chat")

// Conversation is the session surface the REPL drives.
type Conversation interface {
	Send(ctx context.Context, text string) (agent.Message, error)
	Confirm(ctx context.Context) (planexec.Result, error)
	Select(ctx context.Context, calendarID string) (agent.Message, error)
	Discard(ctx context.Context) error
}

type REPL struct {
	in           *bufio.Reader
	renderer     *Renderer
	conversation Conversation
	// calendars are the choices of the last selection request, in display order.
	calendars []agent.CalendarRef
}

func NewREPL(in io.Reader, renderer *Renderer, conversation Conversation) *REPL {
	if in == nil {
		in = strings.NewReader("")
	}
	if renderer == nil {
		renderer = NewRenderer(io.Discard, defaultPrompt)
	}
	return &REPL{
		in:           bufio.NewReader(in),
		renderer:     renderer,
		conversation: conversation,
	}
}

func (r *REPL) Run(ctx context.Context) error {
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil
		}

		if err := r.renderer.ShowPrompt(); err != nil {
			return err
		}
		line, err := r.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if errors.Is(err, io.EOF) {
				return nil
			}
			continue
		}

		dispatchErr := r.dispatch(ctx, trimmed)
		switch {
		case dispatchErr == nil:
		case errors.Is(dispatchErr, ErrQuit):
			return nil
		default:
			if writeErr := r.renderer.PrintLine("error: " + dispatchErr.Error()); writeErr != nil {
				return writeErr
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

func (r *REPL) dispatch(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		reply, err := r.conversation.Send(ctx, line)
		return r.reply(reply, err)
	}

	command, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	switch strings.TrimPrefix(command, "/") {
	case "confirm":
		result, err := r.conversation.Confirm(ctx)
		if err != nil && result.Message == "" {
			return err
		}
		r.calendars = nil
		if printErr := r.renderer.PrintResult(result); printErr != nil {
			return printErr
		}
		return err
	case "select":
		calendarID, err := r.resolveCalendar(args)
		if err != nil {
			return err
		}
		reply, err := r.conversation.Select(ctx, calendarID)
		return r.reply(reply, err)
	case "discard":
		if err := r.conversation.Discard(ctx); err != nil {
			return err
		}
		r.calendars = nil
		return r.renderer.PrintLine("assistant> Plan discarded.")
	case "help":
		return r.renderer.PrintLine("/confirm  /select <number|calendar id>  /discard  /quit")
	case "quit", "exit":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %q (try /help)", command)
	}
}

func (r *REPL) reply(reply agent.Message, err error) error {
	if reply.Role == "" {
		return err
	}
	r.calendars = nil
	if reply.Plan != nil && reply.Plan.CalendarSelection != nil {
		r.calendars = reply.Plan.CalendarSelection.Calendars
	}
	if printErr := r.renderer.PrintReply(reply); printErr != nil {
		return printErr
	}
	return err
}

// resolveCalendar maps a 1-based choice from the last selection request to a
// calendar ID. Anything else is passed through as an ID.
func (r *REPL) resolveCalendar(arg string) (string, error) {
	if arg == "" {
		return "", errors.New("/select requires a calendar number or id")
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return arg, nil
	}
	if n < 1 || n > len(r.calendars) {
		return "", fmt.Errorf("no calendar numbered %d", n)
	}
	return r.calendars[n-1].ID, nil
}
