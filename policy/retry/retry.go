package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gurpartap/horizons/agent"
)

// ErrAttemptTimedOut is the cancellation cause of an attempt that exceeded AttemptTimeout.
var ErrAttemptTimedOut = errors.New("attempt timed out")

// Config controls retry behavior for wrapped model, tool, and pipeline calls.
// Retries are immediate; there is no backoff.
type Config struct {
	MaxAttempts int
	// AttemptTimeout bounds each attempt. Zero means attempts share the caller's deadline.
	AttemptTimeout time.Duration
	ShouldRetry    func(error) bool
	// OnRetry is invoked before every attempt after the first.
	OnRetry func(attempt int, lastErr error)
}

// Do runs fn until it succeeds, the attempt budget is spent, or ctx ends.
// The last error is returned.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}

	attempts := normalizedAttempts(cfg.MaxAttempts)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}
		value, err, timedOut := runAttempt(ctx, cfg.AttemptTimeout, fn)
		if err == nil {
			return value, nil
		}
		if timedOut {
			err = fmt.Errorf("%w after %s: %w", ErrAttemptTimedOut, cfg.AttemptTimeout, err)
		}
		lastErr = err
		if attempt == attempts || !shouldRetry(ctx, cfg, err, timedOut) {
			break
		}
	}
	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error, bool) {
	if timeout <= 0 {
		value, err := fn(ctx)
		return value, err, false
	}
	attemptCtx, cancel := context.WithTimeoutCause(ctx, timeout, ErrAttemptTimedOut)
	defer cancel()
	value, err := fn(attemptCtx)
	timedOut := err != nil && ctx.Err() == nil && errors.Is(context.Cause(attemptCtx), ErrAttemptTimedOut)
	return value, err, timedOut
}

// WrapModel wraps a model with deterministic, error-only retries.
func WrapModel(model agent.Model, cfg Config) agent.Model {
	if model == nil {
		return nil
	}
	return &modelWrapper{
		next: model,
		cfg:  cfg,
	}
}

type modelWrapper struct {
	next agent.Model
	cfg  Config
}

func (w *modelWrapper) Generate(ctx context.Context, request agent.ModelRequest) (agent.ModelResponse, error) {
	return Do(ctx, w.cfg, func(ctx context.Context) (agent.ModelResponse, error) {
		return w.next.Generate(ctx, request)
	})
}

// WrapToolExecutor wraps a tool executor with deterministic, error-only retries.
// Error results are not retried; only executor errors are.
func WrapToolExecutor(executor agent.ToolExecutor, cfg Config) agent.ToolExecutor {
	if executor == nil {
		return nil
	}
	return &toolExecutorWrapper{
		next: executor,
		cfg:  cfg,
	}
}

type toolExecutorWrapper struct {
	next agent.ToolExecutor
	cfg  Config
}

func (w *toolExecutorWrapper) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	return Do(ctx, w.cfg, func(ctx context.Context) (agent.ToolResult, error) {
		return w.next.Execute(ctx, call)
	})
}

func normalizedAttempts(maxAttempts int) int {
	if maxAttempts < 1 {
		return 1
	}
	return maxAttempts
}

func shouldRetry(ctx context.Context, cfg Config, err error, timedOut bool) bool {
	if ctx.Err() != nil {
		return false
	}
	if cfg.ShouldRetry == nil {
		if timedOut {
			return true
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		var unrecognized *agent.UnrecognizedToolError
		return !errors.As(err, &unrecognized)
	}
	return cfg.ShouldRetry(err)
}
