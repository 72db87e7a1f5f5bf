package inmem

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Gurpartap/horizons/agent"
)

// Projects is an in-memory project store for local development and tests.
type Projects struct {
	mu         sync.RWMutex
	projects   []agent.Project
	projectIDs *CounterIDGenerator
	taskIDs    *CounterIDGenerator
}

var _ agent.ProjectStore = (*Projects)(nil)

func NewProjects() *Projects {
	return &Projects{
		projectIDs: NewCounterIDGenerator("prj"),
		taskIDs:    NewCounterIDGenerator("tsk"),
	}
}

func (s *Projects) GetAllProjects(ctx context.Context) ([]agent.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]agent.Project, len(s.projects))
	for i, project := range s.projects {
		out[i] = project
		out[i].Tasks = slices.Clone(project.Tasks)
	}
	return out, nil
}

func (s *Projects) CreateProject(ctx context.Context, project agent.NewProject) (agent.Project, error) {
	if err := ctx.Err(); err != nil {
		return agent.Project{}, err
	}
	if strings.TrimSpace(project.Title) == "" {
		return agent.Project{}, fmt.Errorf("create project: title is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	created := agent.Project{
		ID:    s.projectIDs.Next(),
		Title: project.Title,
		Body:  project.Body,
	}
	s.projects = append(s.projects, created)
	return created, nil
}

func (s *Projects) AddTask(ctx context.Context, projectID string, task agent.NewTask) (agent.Task, error) {
	if err := ctx.Err(); err != nil {
		return agent.Task{}, err
	}
	if strings.TrimSpace(task.Title) == "" {
		return agent.Task{}, fmt.Errorf("add task: title is empty")
	}
	status := task.Status
	if status == "" {
		status = agent.TaskStatusToDo
	}
	if !agent.ValidTaskStatus(status) {
		return agent.Task{}, fmt.Errorf("add task: unsupported status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.projectIndex(projectID)
	if index < 0 {
		return agent.Task{}, fmt.Errorf("%w: project %q", agent.ErrNotFound, projectID)
	}
	created := agent.Task{
		ID:              s.taskIDs.Next(),
		ProjectID:       projectID,
		Title:           task.Title,
		Body:            task.Body,
		Status:          status,
		DurationMinutes: task.DurationMinutes,
		MinChunkMinutes: task.MinChunkMinutes,
		Location:        task.Location,
	}
	s.projects[index].Tasks = append(s.projects[index].Tasks, created)
	return created, nil
}

func (s *Projects) UpdateTask(ctx context.Context, taskID string, patch agent.TaskPatch) (agent.Task, error) {
	if err := ctx.Err(); err != nil {
		return agent.Task{}, err
	}
	if patch.Status != nil && !agent.ValidTaskStatus(*patch.Status) {
		return agent.Task{}, fmt.Errorf("update task: unsupported status %q", *patch.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.projects {
		for j := range s.projects[i].Tasks {
			task := &s.projects[i].Tasks[j]
			if task.ID != taskID {
				continue
			}
			applyTaskPatch(task, patch)
			return *task, nil
		}
	}
	return agent.Task{}, fmt.Errorf("%w: task %q", agent.ErrNotFound, taskID)
}

func (s *Projects) DeleteTask(ctx context.Context, taskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.projects {
		for j := range s.projects[i].Tasks {
			if s.projects[i].Tasks[j].ID == taskID {
				s.projects[i].Tasks = slices.Delete(s.projects[i].Tasks, j, j+1)
				return nil
			}
		}
	}
	return fmt.Errorf("%w: task %q", agent.ErrNotFound, taskID)
}

func (s *Projects) projectIndex(projectID string) int {
	for i := range s.projects {
		if s.projects[i].ID == projectID {
			return i
		}
	}
	return -1
}

func applyTaskPatch(task *agent.Task, patch agent.TaskPatch) {
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Body != nil {
		task.Body = *patch.Body
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.DurationMinutes != nil {
		task.DurationMinutes = *patch.DurationMinutes
	}
	if patch.MinChunkMinutes != nil {
		task.MinChunkMinutes = *patch.MinChunkMinutes
	}
	if patch.Location != nil {
		task.Location = *patch.Location
	}
}
