package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/conversation"
	"github.com/Gurpartap/horizons/planexec"
	"github.com/Gurpartap/horizons/sessionstore"
)

// Session owns one conversation. At most one turn or plan execution runs at
// a time; a concurrent call fails fast with ErrTurnInFlight.
type Session struct {
	manager  *Manager
	inFlight atomic.Bool

	mu       sync.RWMutex
	snapshot sessionstore.Snapshot
}

func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.ID
}

// Snapshot returns a copy of the persisted session.
func (s *Session) Snapshot() sessionstore.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// Send appends a user message and runs a turn. A reply carrying a plan
// becomes the pending plan; any reply replaces an earlier pending plan.
func (s *Session) Send(ctx context.Context, text string) (agent.Message, error) {
	if strings.TrimSpace(text) == "" {
		return agent.Message{}, ErrMessageEmpty
	}
	if !s.begin() {
		return agent.Message{}, ErrTurnInFlight
	}
	defer s.end()

	snapshot := s.Snapshot()
	snapshot.State.Append(agent.UserMessage(text))

	reply, err := s.manager.service.turn(ctx, turnRequest{
		sessionID: snapshot.ID,
		history:   snapshot.State.History,
	})
	if reply.Role == "" {
		return reply, err
	}
	snapshot.State.RecordReply(reply)
	if saveErr := s.save(ctx, snapshot); saveErr != nil {
		return reply, errors.Join(err, saveErr)
	}
	return reply, err
}

// Confirm executes the pending plan. The plan is cleared and persisted before
// it runs, so a second Confirm cannot apply it again.
func (s *Session) Confirm(ctx context.Context) (planexec.Result, error) {
	if !s.begin() {
		return planexec.Result{}, ErrTurnInFlight
	}
	defer s.end()

	snapshot := s.Snapshot()
	if snapshot.State.PendingPlan != nil && snapshot.State.PendingPlan.Type == agent.PlanTypeCalendarSelection {
		return planexec.Result{}, fmt.Errorf("%w: calendar selection must be answered with Select", agent.ErrPlanNotExecutable)
	}
	plan, err := snapshot.State.TakePendingPlan()
	if err != nil {
		return planexec.Result{}, err
	}
	if err := s.save(ctx, snapshot); err != nil {
		return planexec.Result{}, err
	}

	result := s.manager.service.ExecutePlan(ctx, plan)

	snapshot = s.Snapshot()
	snapshot.State.Append(agent.ModelText(result.Message))
	if err := s.save(context.WithoutCancel(ctx), snapshot); err != nil {
		return result, err
	}
	return result, nil
}

// Select answers a pending calendar selection request and resumes the turn.
func (s *Session) Select(ctx context.Context, calendarID string) (agent.Message, error) {
	if !s.begin() {
		return agent.Message{}, ErrTurnInFlight
	}
	defer s.end()

	snapshot := s.Snapshot()
	if snapshot.State.PendingPlan == nil {
		return agent.Message{}, conversation.ErrNoPendingPlan
	}
	plan := agent.ClonePlan(*snapshot.State.PendingPlan)

	reply, err := s.manager.service.continueAfterSelection(ctx, snapshot.ID, snapshot.State.History, plan, calendarID)
	if reply.Role == "" {
		return reply, err
	}
	snapshot.State.RecordReply(reply)
	if saveErr := s.save(ctx, snapshot); saveErr != nil {
		return reply, errors.Join(err, saveErr)
	}
	return reply, err
}

// Discard drops the pending plan without executing it.
func (s *Session) Discard(ctx context.Context) error {
	if !s.begin() {
		return ErrTurnInFlight
	}
	defer s.end()

	snapshot := s.Snapshot()
	if _, err := snapshot.State.TakePendingPlan(); err != nil {
		return err
	}
	return s.save(ctx, snapshot)
}

func (s *Session) begin() bool {
	return s.inFlight.CompareAndSwap(false, true)
}

func (s *Session) end() {
	s.inFlight.Store(false)
}

func (s *Session) save(ctx context.Context, snapshot sessionstore.Snapshot) error {
	snapshot.UpdatedAt = s.manager.now().UTC()
	if err := s.manager.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save session %q: %w", snapshot.ID, err)
	}
	snapshot.Version++

	s.mu.Lock()
	s.snapshot = snapshot.Clone()
	s.mu.Unlock()
	return nil
}
