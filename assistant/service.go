// Package assistant is the caller boundary of the calendar assistant: it runs
// turns, executes confirmed plans, and resumes after calendar selection.
package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/agentreact"
	"github.com/Gurpartap/horizons/catalog"
	"github.com/Gurpartap/horizons/conversation"
	"github.com/Gurpartap/horizons/eventing"
	"github.com/Gurpartap/horizons/planexec"
)

// Fixed replies shown to the user.
const (
	UnavailableReply = "The AI is not available. Please check your API key in the settings."
	FailureReply     = "An error occurred while processing your request."
)

// UpdateFunc receives progress updates at the tool_call, plan_generated and
// done checkpoints of a turn.
type UpdateFunc func(ctx context.Context, event agent.Event)

type Service struct {
	model    agent.Model
	tools    agent.ToolExecutor
	plans    *planexec.Executor
	events   agent.EventSink
	onUpdate UpdateFunc
	logger   *slog.Logger
	now      func() time.Time
	maxSteps int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEventSink receives every turn event.
func WithEventSink(sink agent.EventSink) Option {
	return func(s *Service) {
		s.events = sink
	}
}

func WithOnUpdate(fn UpdateFunc) Option {
	return func(s *Service) {
		s.onUpdate = fn
	}
}

func WithMaxSteps(maxSteps int) Option {
	return func(s *Service) {
		s.maxSteps = maxSteps
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a service. A nil model is allowed: the service then answers
// every turn with UnavailableReply.
func New(model agent.Model, tools agent.ToolExecutor, plans *planexec.Executor, opts ...Option) (*Service, error) {
	if tools == nil {
		return nil, fmt.Errorf("new assistant: %w", ErrMissingToolExecutor)
	}
	if plans == nil {
		return nil, fmt.Errorf("new assistant: %w", ErrMissingPlanExecutor)
	}
	s := &Service{
		model:    model,
		tools:    tools,
		plans:    plans,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		maxSteps: agentreact.DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ready reports whether a model is configured.
func (s *Service) Ready() bool {
	return s.model != nil
}

// RunTurn runs one turn over history. The reply is plain text or carries a
// Plan; proposing a plan never changes the calendar or the project store.
//
// Orchestration failures return FailureReply together with the error. Invalid
// history and cancellation return only the error.
func (s *Service) RunTurn(ctx context.Context, history []agent.Message) (agent.Message, error) {
	return s.turn(ctx, turnRequest{history: history})
}

// ExecutePlan applies a confirmed plan. Callers are responsible for invoking
// it at most once per plan.
func (s *Service) ExecutePlan(ctx context.Context, plan agent.Plan) planexec.Result {
	result := s.plans.Execute(ctx, plan)
	attrs := []slog.Attr{
		slog.String("plan_type", string(plan.Type)),
		slog.Bool("success", result.Success),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
	}
	if result.Error != nil {
		attrs = append(attrs, slog.Any("err", result.Error))
		s.logger.LogAttrs(ctx, slog.LevelWarn, "plan execution failed", attrs...)
	} else {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "plan executed", attrs...)
	}
	return result
}

// ContinueAfterSelection resumes a conversation paused on a calendar
// selection request. Plans proposed afterwards record the first user message
// of history as their original prompt.
func (s *Service) ContinueAfterSelection(ctx context.Context, history []agent.Message, plan agent.Plan, selectedCalendarID string) (agent.Message, error) {
	return s.continueAfterSelection(ctx, "", history, plan, selectedCalendarID)
}

func (s *Service) continueAfterSelection(ctx context.Context, sessionID string, history []agent.Message, plan agent.Plan, selectedCalendarID string) (agent.Message, error) {
	if !s.Ready() {
		return s.unavailable(ctx), nil
	}
	resumed, err := conversation.ResumeAfterSelection(history, plan, selectedCalendarID)
	if err != nil {
		return agent.Message{}, err
	}
	return s.turn(ctx, turnRequest{
		sessionID:      sessionID,
		history:        resumed,
		originalPrompt: agent.FirstUserMessage(history),
	})
}

type turnRequest struct {
	sessionID      string
	history        []agent.Message
	originalPrompt string
}

func (s *Service) turn(ctx context.Context, req turnRequest) (agent.Message, error) {
	if ctx == nil {
		return agent.Message{}, agent.ErrContextNil
	}
	if !s.Ready() {
		return s.unavailable(ctx), nil
	}
	if err := agent.ValidateHistory(req.history); err != nil {
		return agent.Message{}, err
	}

	loop, err := agentreact.New(s.model, s.tools, s.sink())
	if err != nil {
		return agent.ModelText(FailureReply), err
	}
	result, err := loop.Run(ctx, agentreact.TurnInput{
		SessionID:         req.sessionID,
		History:           req.history,
		Tools:             catalog.Tools(catalog.ModeCalendarAssistant),
		SystemInstruction: catalog.SystemInstruction(catalog.ModeCalendarAssistant, s.now()),
		OriginalPrompt:    req.originalPrompt,
		MaxSteps:          s.maxSteps,
	})
	if result.EventErr != nil {
		s.logger.WarnContext(ctx, "turn event delivery failed",
			slog.String("turn_id", result.TurnID),
			slog.Any("err", result.EventErr),
		)
	}
	if err != nil {
		if ctx.Err() != nil {
			return agent.Message{}, err
		}
		s.logger.ErrorContext(ctx, "turn failed",
			slog.String("turn_id", result.TurnID),
			slog.String("session_id", req.sessionID),
			slog.Int("steps", result.Steps),
			slog.Any("err", err),
		)
		return agent.ModelText(FailureReply), fmt.Errorf("run turn: %w", err)
	}
	if result.DroppedToolCalls > 0 {
		s.logger.InfoContext(ctx, "model emitted extra tool calls; only the first of each response ran",
			slog.String("turn_id", result.TurnID),
			slog.Int("dropped", result.DroppedToolCalls),
		)
	}
	return result.Reply, nil
}

func (s *Service) unavailable(ctx context.Context) agent.Message {
	s.logger.WarnContext(ctx, "model is not configured")
	return agent.ModelText(UnavailableReply)
}

func (s *Service) sink() agent.EventSink {
	sinks := []agent.EventSink{s.events}
	if s.onUpdate != nil {
		update := s.onUpdate
		sinks = append(sinks, eventing.Only(
			agent.EventSinkFunc(func(ctx context.Context, event agent.Event) error {
				update(ctx, event)
				return nil
			}),
			agent.EventTypeToolCall,
			agent.EventTypePlanGenerated,
			agent.EventTypeDone,
		))
	}
	return eventing.Fanout(sinks...)
}
