package assistant_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gurpartap/horizons/adapters/modeltest"
	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/assistant"
	"github.com/Gurpartap/horizons/catalog"
	"github.com/Gurpartap/horizons/conversation"
	"github.com/Gurpartap/horizons/sessionstore"
)

func TestSession_SelectThenConfirmExecutesOnce(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Call("call-1", catalog.ToolRequestCalendarSelection, selectionArgs()),
		modeltest.Call("call-2", catalog.ToolProposeCalendarActionPlan, deletePlanArgs()),
	)
	f := newFixture(t, model)
	ctx := context.Background()

	session, err := f.manager.Create(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	reply, err := session.Send(ctx, "delete my meetings")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply.Plan == nil || reply.Plan.Type != agent.PlanTypeCalendarSelection {
		t.Fatalf("expected selection request, got %+v", reply)
	}
	if _, err := session.Confirm(ctx); !errors.Is(err, agent.ErrPlanNotExecutable) {
		t.Fatalf("selection must not be confirmable, got %v", err)
	}

	reply, err = session.Select(ctx, "cal-work")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if reply.Plan == nil || reply.Plan.Type != agent.PlanTypeCalendarAction {
		t.Fatalf("expected calendar plan, got %+v", reply)
	}
	if len(f.counter.Mutations()) != 0 {
		t.Fatalf("mutations before confirmation: %v", f.counter.Mutations())
	}

	result, err := session.Confirm(ctx)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !result.Success || result.Message != "Successfully deleted 2 event(s)." {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, err := session.Confirm(ctx); !errors.Is(err, conversation.ErrNoPendingPlan) {
		t.Fatalf("second confirm must fail with ErrNoPendingPlan, got %v", err)
	}
	if got := len(f.counter.Mutations()); got != 2 {
		t.Fatalf("plan applied more than once: mutations=%d", got)
	}

	snapshot := session.Snapshot()
	if snapshot.State.PendingPlan != nil {
		t.Fatalf("pending plan not cleared: %+v", snapshot.State.PendingPlan)
	}
	history := snapshot.State.History
	if len(history) != 4 {
		t.Fatalf("unexpected visible history length: got=%d want=4 history=%+v", len(history), history)
	}
	for _, message := range history {
		if message.ToolCall != nil || message.ToolResult != nil {
			t.Fatalf("tool exchanges leaked into visible history: %+v", message)
		}
	}
	if history[3].Content != result.Message {
		t.Fatalf("execution result not recorded: %+v", history[3])
	}

	stored, err := f.manager.Get(ctx, session.ID())
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if stored.Snapshot().Version != snapshot.Version {
		t.Fatalf("manager returned a stale session: got=%d want=%d", stored.Snapshot().Version, snapshot.Version)
	}
}

func TestSession_RejectsConcurrentTurn(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	model := modeltest.NewScriptedModel(
		modeltest.Response{Response: agent.ModelResponse{Text: "done"}, Wait: release},
	)
	f := newFixture(t, model)
	ctx := context.Background()

	session, err := f.manager.Create(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := session.Send(ctx, "first")
		done <- err
	}()

	for model.Calls() == 0 {
		select {
		case err := <-done:
			t.Fatalf("first turn ended early: %v", err)
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := session.Send(ctx, "second"); !errors.Is(err, assistant.ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight, got %v", err)
	}
	if err := session.Discard(ctx); !errors.Is(err, assistant.ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight for discard, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if got := len(session.Snapshot().State.History); got != 2 {
		t.Fatalf("unexpected history length: got=%d want=2", got)
	}
}

func TestSession_DiscardDropsPendingPlan(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Call("call-1", catalog.ToolProposeCalendarActionPlan, deletePlanArgs()),
	)
	f := newFixture(t, model)
	ctx := context.Background()

	session, err := f.manager.Create(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := session.Send(ctx, "delete my work meetings"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := session.Discard(ctx); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if _, err := session.Confirm(ctx); !errors.Is(err, conversation.ErrNoPendingPlan) {
		t.Fatalf("expected ErrNoPendingPlan after discard, got %v", err)
	}
	if err := session.Discard(ctx); !errors.Is(err, conversation.ErrNoPendingPlan) {
		t.Fatalf("expected ErrNoPendingPlan on second discard, got %v", err)
	}
	if len(f.counter.Mutations()) != 0 {
		t.Fatalf("discarded plan was applied: %v", f.counter.Mutations())
	}
}

func TestSession_FailedTurnRecordsFixedReply(t *testing.T) {
	t.Parallel()

	f := newFixture(t, modeltest.NewScriptedModel(modeltest.Fail(errors.New("backend down"))))
	ctx := context.Background()

	session, err := f.manager.Create(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	reply, err := session.Send(ctx, "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	if reply.Content != assistant.FailureReply {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	history := session.Snapshot().State.History
	if len(history) != 2 || history[1].Content != assistant.FailureReply {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestSession_EmptyMessageRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, modeltest.NewScriptedModel())
	session, err := f.manager.Create(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := session.Send(context.Background(), "   "); !errors.Is(err, assistant.ErrMessageEmpty) {
		t.Fatalf("expected ErrMessageEmpty, got %v", err)
	}
}

func TestManager_GetUnknownSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t, modeltest.NewScriptedModel())
	if _, err := f.manager.Get(context.Background(), "missing"); !errors.Is(err, sessionstore.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
