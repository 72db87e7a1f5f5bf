// Package policylimit bounds request bodies and request lifetimes.
package policylimit

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const (
	DefaultMaxRequestBodyBytes = 1 << 20
	DefaultRequestTimeout      = 2 * time.Minute
)

var (
	ErrRequestTooLarge = errors.New("policy request body too large")
	ErrRequestTimedOut = errors.New("policy request timeout exceeded")
)

type Config struct {
	MaxRequestBodyBytes int64
	RequestTimeout      time.Duration
}

func NormalizeConfig(cfg Config) Config {
	if cfg.MaxRequestBodyBytes <= 0 {
		cfg.MaxRequestBodyBytes = DefaultMaxRequestBodyBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	return cfg
}

// Middleware caps the request body and cancels the request context with
// ErrRequestTimedOut as its cause once RequestTimeout elapses.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	cfg = NormalizeConfig(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxRequestBodyBytes)
			}

			ctx, cancel := context.WithTimeoutCause(r.Context(), cfg.RequestTimeout, ErrRequestTimedOut)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
