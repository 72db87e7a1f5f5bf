// Package httpapi exposes the assistant, its sessions and the document
// importer over JSON HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/Gurpartap/horizons/assistant"
	"github.com/Gurpartap/horizons/extraction"
	"github.com/Gurpartap/horizons/internal/policyauth"
	"github.com/Gurpartap/horizons/internal/policylimit"
)

type PolicyConfig struct {
	// AuthToken guards mutating routes. Empty disables authentication.
	AuthToken           string
	MaxRequestBodyBytes int64
	RequestTimeout      time.Duration
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MaxRequestBodyBytes: policylimit.DefaultMaxRequestBodyBytes,
		RequestTimeout:      policylimit.DefaultRequestTimeout,
	}
}

func normalizePolicyConfig(input PolicyConfig) PolicyConfig {
	defaults := DefaultPolicyConfig()
	if input.MaxRequestBodyBytes <= 0 {
		input.MaxRequestBodyBytes = defaults.MaxRequestBodyBytes
	}
	if input.RequestTimeout <= 0 {
		input.RequestTimeout = defaults.RequestTimeout
	}
	return input
}

// Backend is what the routes serve. Importer may be nil, in which case the
// import route answers 503.
type Backend struct {
	Assistant *assistant.Service
	Sessions  *assistant.Manager
	Importer  *extraction.Pipeline
}

type handlers struct {
	backend Backend
}

func NewRouter(backend Backend, policy ...PolicyConfig) http.Handler {
	normalized := DefaultPolicyConfig()
	if len(policy) > 0 {
		normalized = normalizePolicyConfig(policy[0])
	}

	h := &handlers{backend: backend}

	reject := func(w http.ResponseWriter, _ *http.Request, err error) {
		writeMappedError(w, err)
	}

	applyMutatingPolicies := chain(
		policyauth.Middleware(normalized.AuthToken, reject),
		policylimit.Middleware(policylimit.Config{
			MaxRequestBodyBytes: normalized.MaxRequestBodyBytes,
			RequestTimeout:      normalized.RequestTimeout,
		}),
	)

	mux := http.NewServeMux()
	mux.Handle("POST /v1/turns", applyMutatingPolicies(http.HandlerFunc(h.handleTurn)))
	mux.Handle("POST /v1/turns/continue", applyMutatingPolicies(http.HandlerFunc(h.handleTurnContinue)))
	mux.Handle("POST /v1/plans/execute", applyMutatingPolicies(http.HandlerFunc(h.handlePlanExecute)))
	mux.Handle("POST /v1/sessions", applyMutatingPolicies(http.HandlerFunc(h.handleSessionCreate)))
	mux.Handle("POST /v1/sessions/{session_id}/messages", applyMutatingPolicies(http.HandlerFunc(h.handleSessionMessage)))
	mux.Handle("POST /v1/sessions/{session_id}/plan/confirm", applyMutatingPolicies(http.HandlerFunc(h.handleSessionConfirm)))
	mux.Handle("POST /v1/sessions/{session_id}/plan/select", applyMutatingPolicies(http.HandlerFunc(h.handleSessionSelect)))
	mux.Handle("POST /v1/sessions/{session_id}/plan/discard", applyMutatingPolicies(http.HandlerFunc(h.handleSessionDiscard)))
	mux.Handle("POST /v1/imports", applyMutatingPolicies(http.HandlerFunc(h.handleImport)))
	mux.HandleFunc("GET /v1/sessions/{session_id}", h.handleSessionQuery)
	return mux
}

type middleware func(http.Handler) http.Handler

func chain(middlewares ...middleware) middleware {
	return func(next http.Handler) http.Handler {
		wrapped := next
		for i := len(middlewares) - 1; i >= 0; i-- {
			wrapped = middlewares[i](wrapped)
		}
		return wrapped
	}
}
