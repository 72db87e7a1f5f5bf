// Package extraction turns a free-form document into projects and tasks in
// two model passes: one for the project titles, then one per new title for its
// details.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/agentreact"
	"github.com/Gurpartap/horizons/catalog"
	"github.com/Gurpartap/horizons/planexec"
	"github.com/Gurpartap/horizons/policy/retry"
	"github.com/Gurpartap/horizons/tooling/registry"
)

const (
	DefaultAttempts       = 3
	DefaultAttemptTimeout = 2 * time.Minute
)

var (
	ErrMissingModel    = errors.New("extraction model is nil")
	ErrMissingProjects = errors.New("extraction project store is nil")
	ErrDocumentEmpty   = errors.New("document is empty")
	// ErrUnexpectedReply is returned when a pass ends without the expected plan tool call.
	ErrUnexpectedReply = errors.New("model did not return the expected plan")
)

// TitleFailure is a title whose extraction or persistence failed.
type TitleFailure struct {
	Title string `json:"title"`
	Err   error  `json:"-"`
	// Error is Err rendered for JSON callers.
	Error string `json:"error"`
}

// Report summarizes one pipeline run.
type Report struct {
	Created []string       `json:"created"`
	Skipped []string       `json:"skipped"`
	Failed  []TitleFailure `json:"failed"`
}

type Pipeline struct {
	model          agent.Model
	projects       agent.ProjectStore
	plans          *planexec.Executor
	tools          agent.ToolExecutor
	events         agent.EventSink
	logger         *slog.Logger
	attempts       int
	attemptTimeout time.Duration
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithEventSink(sink agent.EventSink) Option {
	return func(p *Pipeline) {
		p.events = sink
	}
}

// WithAttempts sets how many times each pass is tried before giving up.
func WithAttempts(attempts int) Option {
	return func(p *Pipeline) {
		if attempts > 0 {
			p.attempts = attempts
		}
	}
}

// WithAttemptTimeout bounds every attempt. Zero disables the bound.
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) {
		if timeout >= 0 {
			p.attemptTimeout = timeout
		}
	}
}

func New(model agent.Model, projects agent.ProjectStore, opts ...Option) (*Pipeline, error) {
	if model == nil {
		return nil, fmt.Errorf("new extraction pipeline: %w", ErrMissingModel)
	}
	if projects == nil {
		return nil, fmt.Errorf("new extraction pipeline: %w", ErrMissingProjects)
	}
	p := &Pipeline{
		model:          model,
		projects:       projects,
		tools:          registry.New(nil),
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		attempts:       DefaultAttempts,
		attemptTimeout: DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.plans = planexec.New(nil, projects, planexec.WithLogger(p.logger))
	return p, nil
}

// Run extracts every project of document. Titles already present in the
// project store are skipped. A title that keeps failing is reported in
// Report.Failed and does not stop the run; only a failed title pass or
// cancellation returns an error.
func (p *Pipeline) Run(ctx context.Context, document string) (Report, error) {
	if ctx == nil {
		return Report{}, agent.ErrContextNil
	}
	if strings.TrimSpace(document) == "" {
		return Report{}, ErrDocumentEmpty
	}

	titles, err := p.extractTitles(ctx, document)
	if err != nil {
		return Report{}, fmt.Errorf("extract project titles: %w", err)
	}
	existing, err := p.existingTitles(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list existing projects: %w", err)
	}
	p.logger.InfoContext(ctx, "project titles extracted", slog.Int("count", len(titles)))

	report := Report{
		Created: []string{},
		Skipped: []string{},
		Failed:  []TitleFailure{},
	}
	chunks := SplitChunks(document)
	seen := make(map[string]struct{}, len(titles))
	for _, title := range titles {
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}

		if _, ok := existing[title]; ok {
			p.logger.InfoContext(ctx, "skipping existing project", slog.String("title", title))
			report.Skipped = append(report.Skipped, title)
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}

		if err := p.importTitle(ctx, title, chunkFor(chunks, title, document)); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			p.logger.ErrorContext(ctx, "project extraction failed",
				slog.String("title", title),
				slog.Any("err", err),
			)
			report.Failed = append(report.Failed, TitleFailure{Title: title, Err: err, Error: err.Error()})
			continue
		}
		report.Created = append(report.Created, title)
	}
	return report, nil
}

func (p *Pipeline) extractTitles(ctx context.Context, document string) ([]string, error) {
	prompt := "List the title of every project in the following document by calling " +
		catalog.ToolSaveProjectTitles + ".\n\n" + document
	plan, err := p.pass(ctx, "titles", prompt, catalog.ToolSaveProjectTitles, agent.PlanTypeProjectTitles)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(plan.ProjectTitles.Titles))
	for _, title := range plan.ProjectTitles.Titles {
		if title = strings.TrimSpace(title); title != "" {
			titles = append(titles, title)
		}
	}
	return titles, nil
}

func (p *Pipeline) importTitle(ctx context.Context, title, chunk string) error {
	prompt := fmt.Sprintf(
		"Extract the project titled %q and its tasks from the following text by calling %s.\n\n%s",
		title,
		catalog.ToolSaveProjectDetails,
		chunk,
	)
	plan, err := p.pass(ctx, title, prompt, catalog.ToolSaveProjectDetails, agent.PlanTypeProjectDetails)
	if err != nil {
		return err
	}
	plan.ProjectDetails.Project.Title = title

	result := p.plans.Execute(ctx, plan)
	if result.Success {
		p.logger.InfoContext(ctx, "project imported",
			slog.String("title", title),
			slog.Int("tasks", result.Succeeded),
		)
		return nil
	}
	if len(result.Items) == 0 {
		return result.Error
	}
	p.logger.WarnContext(ctx, "project imported with task failures",
		slog.String("title", title),
		slog.Int("tasks", result.Succeeded),
		slog.Int("failed", result.Failed),
		slog.Any("err", result.Error),
	)
	return nil
}

// pass runs one extraction turn restricted to tool and retries it until the
// model answers with a plan of planType.
func (p *Pipeline) pass(ctx context.Context, label, prompt, tool string, planType agent.PlanType) (agent.Plan, error) {
	loop, err := agentreact.New(p.model, p.tools, p.events)
	if err != nil {
		return agent.Plan{}, err
	}
	input := agentreact.TurnInput{
		History:           []agent.Message{agent.UserMessage(prompt)},
		Tools:             catalog.Only(catalog.ModeDocumentExtractor, tool),
		SystemInstruction: catalog.SystemInstruction(catalog.ModeDocumentExtractor, time.Now()),
	}
	cfg := retry.Config{
		MaxAttempts:    p.attempts,
		AttemptTimeout: p.attemptTimeout,
		ShouldRetry:    func(error) bool { return true },
		OnRetry: func(attempt int, lastErr error) {
			p.logger.WarnContext(ctx, "retrying extraction pass",
				slog.String("pass", label),
				slog.Int("attempt", attempt),
				slog.Any("err", lastErr),
			)
		},
	}
	return retry.Do(ctx, cfg, func(attemptCtx context.Context) (agent.Plan, error) {
		result, err := loop.Run(attemptCtx, input)
		if err != nil {
			return agent.Plan{}, err
		}
		plan := result.Reply.Plan
		if plan == nil || plan.Type != planType {
			return agent.Plan{}, fmt.Errorf("%w: want=%s", ErrUnexpectedReply, tool)
		}
		return agent.ClonePlan(*plan), nil
	})
}

func (p *Pipeline) existingTitles(ctx context.Context) (map[string]struct{}, error) {
	projects, err := p.projects.GetAllProjects(ctx)
	if err != nil {
		return nil, err
	}
	titles := make(map[string]struct{}, len(projects))
	for _, project := range projects {
		titles[project.Title] = struct{}{}
	}
	return titles, nil
}
