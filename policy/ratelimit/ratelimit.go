// Package ratelimit throttles model calls with a token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/Gurpartap/horizons/agent"
)

// PerMinute returns a limiter allowing n calls per minute with a burst of one.
// n <= 0 returns nil, which disables throttling.
func PerMinute(n int) *rate.Limiter {
	if n <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
}

// WrapModel waits on limiter before every model call. A nil limiter returns
// model unchanged.
func WrapModel(model agent.Model, limiter *rate.Limiter) agent.Model {
	if model == nil || limiter == nil {
		return model
	}
	return &modelWrapper{next: model, limiter: limiter}
}

type modelWrapper struct {
	next    agent.Model
	limiter *rate.Limiter
}

func (w *modelWrapper) Generate(ctx context.Context, request agent.ModelRequest) (agent.ModelResponse, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return agent.ModelResponse{}, ctxErr
		}
		return agent.ModelResponse{}, fmt.Errorf("rate limit model call: %w", err)
	}
	return w.next.Generate(ctx, request)
}
