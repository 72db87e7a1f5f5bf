package agentreact

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/catalog"
)

const DefaultMaxSteps = 10

// TurnInput is everything one turn needs. History is never mutated.
type TurnInput struct {
	TurnID            string
	SessionID         string
	History           []agent.Message
	Tools             []agent.ToolDefinition
	SystemInstruction string
	// OriginalPrompt is recorded on generated plans. Empty means the last
	// user message of History.
	OriginalPrompt string
	MaxSteps       int
}

// TurnResult describes how a turn ended.
type TurnResult struct {
	TurnID string
	State  agent.TurnState
	// Reply is the final model message: plain text or a plan proposal.
	Reply agent.Message
	// Transcript holds the tool exchanges appended during the turn, followed by Reply.
	Transcript       []agent.Message
	Steps            int
	DroppedToolCalls int
	// EventErr collects event sink failures. They never change the outcome.
	EventErr error
}

// ReactLoop executes one conversational turn:
// model -> information tool -> tool result -> model -> ... -> text or plan.
// Plan tools end the turn and are never executed.
type ReactLoop struct {
	model  agent.Model
	tools  agent.ToolExecutor
	events agent.EventSink
}

func New(model agent.Model, tools agent.ToolExecutor, events agent.EventSink) (*ReactLoop, error) {
	if model == nil {
		return nil, fmt.Errorf("new react loop: %w", ErrMissingModel)
	}
	if tools == nil {
		return nil, fmt.Errorf("new react loop: %w", ErrMissingToolExecutor)
	}
	if events == nil {
		events = agent.NoopEventSink{}
	}
	return &ReactLoop{
		model:  model,
		tools:  tools,
		events: events,
	}, nil
}

type turn struct {
	loop           *ReactLoop
	input          TurnInput
	originalPrompt string
	result         TurnResult
	history        []agent.Message
}

func (l *ReactLoop) Run(ctx context.Context, input TurnInput) (TurnResult, error) {
	if ctx == nil {
		return TurnResult{}, agent.ErrContextNil
	}
	if err := agent.ValidateHistory(input.History); err != nil {
		return TurnResult{}, err
	}
	if err := agent.ValidateToolDefinitions(input.Tools); err != nil {
		return TurnResult{}, err
	}

	t := &turn{
		loop:           l,
		input:          input,
		originalPrompt: input.OriginalPrompt,
		history:        agent.CloneMessages(input.History),
	}
	if t.input.TurnID == "" {
		t.input.TurnID = uuid.NewString()
	}
	if t.originalPrompt == "" {
		t.originalPrompt = agent.LastUserMessage(input.History)
	}
	maxSteps := input.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	t.result.TurnID = t.input.TurnID

	if err := agent.TransitionTurnState(&t.result.State, agent.TurnStateAwaitingModel); err != nil {
		return t.result, err
	}
	t.publish(ctx, agent.Event{Type: agent.EventTypeTurnStarted})

	toolDefinitions := agent.IndexToolDefinitions(input.Tools)
	for t.result.Steps < maxSteps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return t.cancel(ctx, ctxErr)
		}
		t.result.Steps++

		response, err := l.model.Generate(ctx, agent.ModelRequest{
			History:           agent.CloneMessages(t.history),
			Tools:             agent.CloneToolDefinitions(input.Tools),
			SystemInstruction: input.SystemInstruction,
		})
		if err != nil {
			// Wrapped context errors from a live ctx, such as retry attempt
			// timeouts, are failures.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return t.cancel(ctx, ctxErr)
			}
			return t.fail(ctx, fmt.Errorf("generate: %w", err))
		}

		if len(response.ToolCalls) == 0 {
			if err := agent.TransitionTurnState(&t.result.State, agent.TurnStateTextReceived); err != nil {
				return t.fail(ctx, err)
			}
			return t.finish(ctx, agent.ModelText(response.Text), "model returned a final answer")
		}

		// Only the first call of a response is honored.
		call := agent.CloneToolCall(response.ToolCalls[0])
		dropped := len(response.ToolCalls) - 1
		t.result.DroppedToolCalls += dropped
		if call.Name == "" {
			return t.fail(ctx, fmt.Errorf("%w: step=%d reason=empty_name", ErrToolCallInvalid, t.result.Steps))
		}
		if call.ID == "" {
			call.ID = fmt.Sprintf("%s-call-%d", t.input.TurnID, t.result.Steps)
		}

		definition, offered := toolDefinitions[call.Name]
		if !offered {
			return t.fail(ctx, &agent.UnrecognizedToolError{Name: call.Name})
		}
		if definition.Kind == agent.ToolKindPlan || catalog.IsPlanTool(call.Name) {
			plan, err := catalog.DecodePlan(call, t.originalPrompt)
			if err != nil {
				return t.fail(ctx, err)
			}
			if err := agent.TransitionTurnState(&t.result.State, agent.TurnStatePlanReceived); err != nil {
				return t.fail(ctx, err)
			}
			t.publish(ctx, agent.Event{Type: agent.EventTypePlanGenerated, Plan: &plan})
			return t.finish(ctx, agent.PlanMessage(plan), fmt.Sprintf("plan proposed: %s", plan.Type))
		}

		if err := agent.TransitionTurnState(&t.result.State, agent.TurnStateToolCallReceived); err != nil {
			return t.fail(ctx, err)
		}
		callEvent := agent.Event{Type: agent.EventTypeToolCall, ToolCall: &call}
		if dropped > 0 {
			callEvent.Description = fmt.Sprintf("dropped %d additional tool call(s)", dropped)
		}
		t.publish(ctx, callEvent)

		result, err := t.dispatch(ctx, call, definition)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return t.cancel(ctx, ctxErr)
			}
			return t.fail(ctx, err)
		}

		exchange := []agent.Message{agent.ToolCallMessage(call), agent.ToolResultMessage(result)}
		t.history = append(t.history, exchange...)
		t.result.Transcript = append(t.result.Transcript, agent.CloneMessages(exchange)...)
		t.publish(ctx, agent.Event{Type: agent.EventTypeToolResult, ToolResult: &result})

		if err := agent.TransitionTurnState(&t.result.State, agent.TurnStateAwaitingModel); err != nil {
			return t.fail(ctx, err)
		}
	}

	return t.fail(ctx, fmt.Errorf("%w: max_steps=%d", agent.ErrToolLoopExceeded, maxSteps))
}

// dispatch executes an information tool. Argument validation failures are
// returned to the model as error results.
func (t *turn) dispatch(ctx context.Context, call agent.ToolCall, definition agent.ToolDefinition) (agent.ToolResult, error) {
	if err := agent.ValidateToolCallArguments(call, definition); err != nil {
		return agent.ErrorResult(call, err), nil
	}
	result, err := t.loop.tools.Execute(ctx, call)
	if err != nil {
		return agent.ToolResult{}, err
	}
	result.CallID = call.ID
	result.Name = call.Name
	if result.Response == nil {
		result.Response = map[string]any{}
	}
	return result, nil
}

func (t *turn) finish(ctx context.Context, reply agent.Message, description string) (TurnResult, error) {
	t.result.Reply = agent.CloneMessage(reply)
	t.result.Transcript = append(t.result.Transcript, agent.CloneMessage(reply))
	t.publish(ctx, agent.Event{Type: agent.EventTypeDone, Description: description})
	return t.result, nil
}

func (t *turn) fail(ctx context.Context, runErr error) (TurnResult, error) {
	if runErr == nil {
		runErr = errors.New("turn failed")
	}
	if transitionErr := agent.TransitionTurnState(&t.result.State, agent.TurnStateFailed); transitionErr != nil {
		return t.result, errors.Join(runErr, transitionErr)
	}
	t.publish(ctx, agent.Event{Type: agent.EventTypeTurnFailed, Description: runErr.Error()})
	return t.result, runErr
}

func (t *turn) cancel(ctx context.Context, runErr error) (TurnResult, error) {
	if runErr == nil {
		runErr = context.Canceled
	}
	if transitionErr := agent.TransitionTurnState(&t.result.State, agent.TurnStateCancelled); transitionErr != nil {
		return t.result, errors.Join(runErr, transitionErr)
	}
	t.publish(context.WithoutCancel(ctx), agent.Event{Type: agent.EventTypeTurnCancelled, Description: runErr.Error()})
	return t.result, runErr
}

func (t *turn) publish(ctx context.Context, event agent.Event) {
	event.TurnID = t.input.TurnID
	event.SessionID = t.input.SessionID
	event.Step = t.result.Steps
	t.result.EventErr = errors.Join(t.result.EventErr, publishEvent(ctx, t.loop.events, event))
}

func publishEvent(ctx context.Context, sink agent.EventSink, event agent.Event) error {
	if err := agent.ValidateEvent(event); err != nil {
		return err
	}
	if err := sink.Publish(ctx, agent.CloneEvent(event)); err != nil {
		return errors.Join(
			agent.ErrEventPublish,
			fmt.Errorf(
				"type=%s turn_id=%s step=%d: %w",
				event.Type,
				event.TurnID,
				event.Step,
				err,
			),
		)
	}
	return nil
}
