// Package runtimewire composes the assistant, its sessions and the importer
// from configuration.
package runtimewire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Gurpartap/horizons/adapters/gemini"
	"github.com/Gurpartap/horizons/adapters/googlecalendar"
	"github.com/Gurpartap/horizons/adapters/inmem"
	"github.com/Gurpartap/horizons/adapters/sqlitestore"
	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/assistant"
	"github.com/Gurpartap/horizons/config"
	"github.com/Gurpartap/horizons/eventing"
	eventinginmem "github.com/Gurpartap/horizons/eventing/inmem"
	"github.com/Gurpartap/horizons/eventing/logsink"
	"github.com/Gurpartap/horizons/extraction"
	"github.com/Gurpartap/horizons/internal/httpapi"
	"github.com/Gurpartap/horizons/planexec"
	"github.com/Gurpartap/horizons/policy/ratelimit"
	"github.com/Gurpartap/horizons/policy/retry"
	sessioninmem "github.com/Gurpartap/horizons/sessionstore/inmem"
	"github.com/Gurpartap/horizons/tooling/toolset"
)

const (
	toolAttempts      = 2
	eventHistoryLimit = 1000
)

// Runtime contains the composed runtime dependencies.
type Runtime struct {
	Assistant *assistant.Service
	Sessions  *assistant.Manager
	// Importer is nil when no model is configured.
	Importer *extraction.Pipeline
	// Events keeps the most recent turn events of the process.
	Events   *eventinginmem.Sink
	Calendar agent.CalendarService
	Projects agent.ProjectStore

	closers []io.Closer
}

// Dependencies overrides collaborators normally built from configuration.
// Nil fields are built from cfg.
type Dependencies struct {
	Model    agent.Model
	Calendar agent.CalendarService
	Projects agent.ProjectStore
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	return NewWithDependencies(ctx, cfg, logger, Dependencies{})
}

func NewWithDependencies(ctx context.Context, cfg config.Config, logger *slog.Logger, deps Dependencies) (*Runtime, error) {
	if ctx == nil {
		return nil, agent.ErrContextNil
	}
	if logger == nil {
		return nil, errors.New("new runtime: nil logger")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new runtime config: %w", err)
	}

	rt := &Runtime{Events: eventinginmem.NewBounded(eventHistoryLimit)}

	model := deps.Model
	if model == nil {
		built, err := newModel(ctx, cfg.AI, logger)
		if err != nil {
			return nil, err
		}
		model = built
	}

	rt.Calendar = deps.Calendar
	if rt.Calendar == nil {
		calendar, err := newCalendar(ctx, cfg.Calendar, logger)
		if err != nil {
			return nil, err
		}
		rt.Calendar = calendar
	}

	rt.Projects = deps.Projects
	if rt.Projects == nil {
		projects, closer, err := newProjects(ctx, cfg.Projects, logger)
		if err != nil {
			return nil, err
		}
		rt.Projects = projects
		if closer != nil {
			rt.closers = append(rt.closers, closer)
		}
	}

	events := eventing.Fanout(rt.Events, logsink.New(logger, cfg.Log.Format))

	tools := retry.WrapToolExecutor(toolset.New(rt.Calendar, rt.Projects), retry.Config{
		MaxAttempts: toolAttempts,
		OnRetry: func(attempt int, lastErr error) {
			logger.Warn("retrying tool call", slog.Int("attempt", attempt), slog.Any("err", lastErr))
		},
	})
	plans := planexec.New(rt.Calendar, rt.Projects, planexec.WithLogger(logger))

	service, err := assistant.New(model, tools, plans,
		assistant.WithLogger(logger),
		assistant.WithEventSink(events),
	)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("new runtime assistant: %w", err), rt.Close())
	}
	rt.Assistant = service

	sessions, err := assistant.NewManager(service, sessioninmem.New())
	if err != nil {
		return nil, errors.Join(fmt.Errorf("new runtime sessions: %w", err), rt.Close())
	}
	rt.Sessions = sessions

	if model != nil {
		importer, err := extraction.New(model, rt.Projects,
			extraction.WithLogger(logger),
			extraction.WithEventSink(events),
			extraction.WithAttempts(cfg.Import.Attempts),
			extraction.WithAttemptTimeout(cfg.Import.AttemptTimeout),
		)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("new runtime importer: %w", err), rt.Close())
		}
		rt.Importer = importer
	}

	return rt, nil
}

// Backend returns what the HTTP routes serve.
func (r *Runtime) Backend() httpapi.Backend {
	return httpapi.Backend{
		Assistant: r.Assistant,
		Sessions:  r.Sessions,
		Importer:  r.Importer,
	}
}

// Close releases stores opened by the runtime.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// newModel returns nil without an API key; the assistant then answers with
// its unavailable reply.
func newModel(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (agent.Model, error) {
	if cfg.APIKey == "" {
		logger.Warn("no model API key configured", slog.String("env_var", cfg.APIKeyEnvVar))
		return nil, nil
	}
	model, err := gemini.New(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("new runtime model: %w", err)
	}
	throttled := ratelimit.WrapModel(model, ratelimit.PerMinute(cfg.RequestsPerMinute))
	return retry.WrapModel(throttled, retry.Config{
		MaxAttempts:    cfg.MaxAttempts,
		AttemptTimeout: cfg.Timeout,
		OnRetry: func(attempt int, lastErr error) {
			logger.Warn("retrying model call",
				slog.String("model", cfg.Model),
				slog.Int("attempt", attempt),
				slog.Any("err", lastErr),
			)
		},
	}), nil
}

func newCalendar(ctx context.Context, cfg config.CalendarConfig, logger *slog.Logger) (agent.CalendarService, error) {
	switch cfg.Backend {
	case config.BackendGoogle:
		calendar, err := googlecalendar.New(ctx, cfg.CredentialsFile, cfg.TokenFile, googlecalendar.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("new runtime calendar: %w", err)
		}
		return calendar, nil
	default:
		return inmem.NewCalendar(agent.Calendar{ID: "primary", Summary: "Primary", Primary: true}), nil
	}
}

func newProjects(ctx context.Context, cfg config.ProjectsConfig, logger *slog.Logger) (agent.ProjectStore, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		store, err := sqlitestore.Open(ctx, cfg.SQLitePath, sqlitestore.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("new runtime projects: %w", err)
		}
		return store, store, nil
	default:
		return inmem.NewProjects(), nil, nil
	}
}
