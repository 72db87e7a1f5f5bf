package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Gurpartap/horizons/agent"
)

type modelFunc func(context.Context, agent.ModelRequest) (agent.ModelResponse, error)

func (f modelFunc) Generate(ctx context.Context, request agent.ModelRequest) (agent.ModelResponse, error) {
	return f(ctx, request)
}

type executorFunc func(context.Context, agent.ToolCall) (agent.ToolResult, error)

func (f executorFunc) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	return f(ctx, call)
}

func TestWrapModel_FailTwiceThenSucceed(t *testing.T) {
	t.Parallel()

	attempts := 0
	model := modelFunc(func(context.Context, agent.ModelRequest) (agent.ModelResponse, error) {
		attempts++
		if attempts < 3 {
			return agent.ModelResponse{}, fmt.Errorf("attempt %d failed", attempts)
		}
		return agent.ModelResponse{Text: "ok"}, nil
	})

	response, err := WrapModel(model, Config{MaxAttempts: 3}).Generate(context.Background(), agent.ModelRequest{})
	if err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("unexpected attempts: %d", attempts)
	}
	if response.Text != "ok" {
		t.Fatalf("unexpected response: %+v", response)
	}
}

func TestWrapModel_AlwaysFailReturnsLastError(t *testing.T) {
	t.Parallel()

	attempts := 0
	var lastErr error
	model := modelFunc(func(context.Context, agent.ModelRequest) (agent.ModelResponse, error) {
		attempts++
		lastErr = fmt.Errorf("attempt %d failed", attempts)
		return agent.ModelResponse{}, lastErr
	})

	_, err := WrapModel(model, Config{MaxAttempts: 3}).Generate(context.Background(), agent.ModelRequest{})
	if !errors.Is(err, lastErr) {
		t.Fatalf("unexpected error: got=%v want=%v", err, lastErr)
	}
	if attempts != 3 {
		t.Fatalf("unexpected attempts: got=%d want=3", attempts)
	}
}

func TestWrapModel_NilReturnsNil(t *testing.T) {
	t.Parallel()

	if WrapModel(nil, Config{}) != nil {
		t.Fatalf("expected nil wrapper for nil model")
	}
	if WrapToolExecutor(nil, Config{}) != nil {
		t.Fatalf("expected nil wrapper for nil executor")
	}
}

func TestWrapToolExecutor_DoesNotRetryUnrecognizedTool(t *testing.T) {
	t.Parallel()

	attempts := 0
	executor := executorFunc(func(_ context.Context, call agent.ToolCall) (agent.ToolResult, error) {
		attempts++
		return agent.ToolResult{}, &agent.UnrecognizedToolError{Name: call.Name}
	})

	_, err := WrapToolExecutor(executor, Config{MaxAttempts: 3}).Execute(context.Background(), agent.ToolCall{Name: "missing"})
	if !errors.Is(err, agent.ErrToolUnrecognized) {
		t.Fatalf("expected ErrToolUnrecognized, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("unexpected attempts: got=%d want=1", attempts)
	}
}

func TestDo_ShouldRetryFalseStopsImmediately(t *testing.T) {
	t.Parallel()

	attempts := 0
	_, err := Do(context.Background(), Config{
		MaxAttempts: 3,
		ShouldRetry: func(error) bool { return false },
	}, func(context.Context) (int, error) {
		attempts++
		return 0, errors.New("permanent")
	})
	if err == nil || attempts != 1 {
		t.Fatalf("unexpected result: attempts=%d err=%v", attempts, err)
	}
}

func TestDo_AttemptTimeoutIsRetried(t *testing.T) {
	t.Parallel()

	attempts := 0
	retried := []int{}
	value, err := Do(context.Background(), Config{
		MaxAttempts:    3,
		AttemptTimeout: 10 * time.Millisecond,
		OnRetry: func(attempt int, _ error) {
			retried = append(retried, attempt)
		},
	}, func(ctx context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "second", nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if value != "second" || attempts != 2 {
		t.Fatalf("unexpected result: value=%q attempts=%d", value, attempts)
	}
	if len(retried) != 1 || retried[0] != 2 {
		t.Fatalf("unexpected retry callbacks: %+v", retried)
	}
}

func TestDo_AllAttemptsTimeOut(t *testing.T) {
	t.Parallel()

	attempts := 0
	_, err := Do(context.Background(), Config{
		MaxAttempts:    2,
		AttemptTimeout: 5 * time.Millisecond,
	}, func(ctx context.Context) (struct{}, error) {
		attempts++
		<-ctx.Done()
		return struct{}{}, ctx.Err()
	})
	if !errors.Is(err, ErrAttemptTimedOut) {
		t.Fatalf("expected ErrAttemptTimedOut, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("unexpected attempts: got=%d want=2", attempts)
	}
}

func TestDo_CancelledParentStopsRetries(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := Do(ctx, Config{MaxAttempts: 5}, func(context.Context) (int, error) {
		attempts++
		cancel()
		return 0, errors.New("transient")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("unexpected attempts after cancellation: got=%d want=1", attempts)
	}

	if _, err := Do(ctx, Config{MaxAttempts: 5}, func(context.Context) (int, error) {
		t.Fatalf("fn must not run with a cancelled context")
		return 0, nil
	}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
