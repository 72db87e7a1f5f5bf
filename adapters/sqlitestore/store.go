// Package sqlitestore persists projects and tasks in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Gurpartap/horizons/agent"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id    TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	body  TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS tasks (
	id        TEXT PRIMARY KEY,
	projectId TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	title     TEXT NOT NULL,
	body      TEXT NOT NULL DEFAULT '',
	status    TEXT NOT NULL DEFAULT 'To Do',
	duration  INTEGER NOT NULL DEFAULT 0,
	minChunk  INTEGER NOT NULL DEFAULT 0,
	location  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS tasks_project_id ON tasks(projectId);
`

var ErrTitleEmpty = errors.New("title is empty")

type Store struct {
	db     *sql.DB
	logger *slog.Logger
	newID  func() string
}

var _ agent.ProjectStore = (*Store)(nil)

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens or creates the database at path and creates missing tables.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %q: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, errors.Join(fmt.Errorf("create sqlite tables: %w", err), db.Close())
	}
	s.logger.DebugContext(ctx, "project store opened", slog.String("path", path))
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetAllProjects returns every project with its tasks in insertion order.
func (s *Store) GetAllProjects(ctx context.Context) ([]agent.Project, error) {
	projects, err := s.projects(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(projects))
	for i, project := range projects {
		index[project.ID] = i
	}
	for _, task := range tasks {
		if i, ok := index[task.ProjectID]; ok {
			projects[i].Tasks = append(projects[i].Tasks, task)
		}
	}
	return projects, nil
}

// projects and tasks each release their connection before returning; the
// pool holds a single connection.
func (s *Store) projects(ctx context.Context) ([]agent.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, body FROM projects ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]agent.Project, 0)
	for rows.Next() {
		var project agent.Project
		if err := rows.Scan(&project.ID, &project.Title, &project.Body); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	return projects, nil
}

func (s *Store) tasks(ctx context.Context) ([]agent.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []agent.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) CreateProject(ctx context.Context, project agent.NewProject) (agent.Project, error) {
	if strings.TrimSpace(project.Title) == "" {
		return agent.Project{}, fmt.Errorf("create project: %w", ErrTitleEmpty)
	}
	created := agent.Project{
		ID:    s.newID(),
		Title: project.Title,
		Body:  project.Body,
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, title, body) VALUES (?, ?, ?)`,
		created.ID, created.Title, created.Body,
	); err != nil {
		return agent.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return created, nil
}

func (s *Store) AddTask(ctx context.Context, projectID string, task agent.NewTask) (agent.Task, error) {
	if strings.TrimSpace(task.Title) == "" {
		return agent.Task{}, fmt.Errorf("add task: %w", ErrTitleEmpty)
	}
	status := task.Status
	if status == "" {
		status = agent.TaskStatusToDo
	}
	if !agent.ValidTaskStatus(status) {
		return agent.Task{}, fmt.Errorf("add task: unsupported status %q", status)
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, projectID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return agent.Task{}, fmt.Errorf("%w: project %q", agent.ErrNotFound, projectID)
	}
	if err != nil {
		return agent.Task{}, fmt.Errorf("lookup project %q: %w", projectID, err)
	}

	created := agent.Task{
		ID:              s.newID(),
		ProjectID:       projectID,
		Title:           task.Title,
		Body:            task.Body,
		Status:          status,
		DurationMinutes: task.DurationMinutes,
		MinChunkMinutes: task.MinChunkMinutes,
		Location:        task.Location,
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, projectId, title, body, status, duration, minChunk, location) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.ProjectID, created.Title, created.Body, created.Status,
		created.DurationMinutes, created.MinChunkMinutes, created.Location,
	); err != nil {
		return agent.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return created, nil
}

// UpdateTask applies the non-nil fields of patch.
func (s *Store) UpdateTask(ctx context.Context, taskID string, patch agent.TaskPatch) (agent.Task, error) {
	if patch.Status != nil && !agent.ValidTaskStatus(*patch.Status) {
		return agent.Task{}, fmt.Errorf("update task: unsupported status %q", *patch.Status)
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return agent.Task{}, fmt.Errorf("update task: %w", ErrTitleEmpty)
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Body != nil {
		add("body", *patch.Body)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.DurationMinutes != nil {
		add("duration", *patch.DurationMinutes)
	}
	if patch.MinChunkMinutes != nil {
		add("minChunk", *patch.MinChunkMinutes)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return agent.Task{}, fmt.Errorf("begin update task: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(sets) > 0 {
		args = append(args, taskID)
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
			return agent.Task{}, fmt.Errorf("update task %q: %w", taskID, err)
		}
	}
	task, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return agent.Task{}, fmt.Errorf("%w: task %q", agent.ErrNotFound, taskID)
	}
	if err != nil {
		return agent.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return agent.Task{}, fmt.Errorf("commit update task: %w", err)
	}
	return task, nil
}

func (s *Store) DeleteTask(ctx context.Context, taskID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("delete task %q: %w", taskID, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %q: %w", taskID, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: task %q", agent.ErrNotFound, taskID)
	}
	return nil
}

const taskColumns = `id, projectId, title, body, status, duration, minChunk, location`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (agent.Task, error) {
	var task agent.Task
	err := row.Scan(
		&task.ID,
		&task.ProjectID,
		&task.Title,
		&task.Body,
		&task.Status,
		&task.DurationMinutes,
		&task.MinChunkMinutes,
		&task.Location,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return agent.Task{}, err
	}
	if err != nil {
		return agent.Task{}, fmt.Errorf("scan task: %w", err)
	}
	return task, nil
}
