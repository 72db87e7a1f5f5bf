package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Gurpartap/horizons/agent"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "horizons.db")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestStore_ProjectAndTaskLifecycle(t *testing.T) {
	t.Parallel()

	store, _ := openTestStore(t)
	ctx := context.Background()

	project, err := store.CreateProject(ctx, agent.NewProject{Title: "Garden", Body: "South bed"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	task, err := store.AddTask(ctx, project.ID, agent.NewTask{Title: "Order mulch", DurationMinutes: 30})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if task.Status != agent.TaskStatusToDo {
		t.Fatalf("unexpected default status: got=%q want=%q", task.Status, agent.TaskStatusToDo)
	}

	status := agent.TaskStatusDone
	location := "Garden centre"
	updated, err := store.UpdateTask(ctx, task.ID, agent.TaskPatch{Status: &status, Location: &location})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Status != status || updated.Location != location || updated.Title != "Order mulch" || updated.DurationMinutes != 30 {
		t.Fatalf("unexpected updated task: %+v", updated)
	}

	projects, err := store.GetAllProjects(ctx)
	if err != nil {
		t.Fatalf("get projects: %v", err)
	}
	if len(projects) != 1 || len(projects[0].Tasks) != 1 {
		t.Fatalf("unexpected projects: %+v", projects)
	}
	if projects[0].Body != "South bed" || projects[0].Tasks[0].Status != status {
		t.Fatalf("unexpected stored values: %+v", projects[0])
	}

	if err := store.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := store.DeleteTask(ctx, task.ID); !errors.Is(err, agent.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	projects, err = store.GetAllProjects(ctx)
	if err != nil {
		t.Fatalf("get projects: %v", err)
	}
	if len(projects) != 1 || len(projects[0].Tasks) != 0 {
		t.Fatalf("task survived delete: %+v", projects)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	store, path := openTestStore(t)
	ctx := context.Background()
	if _, err := store.CreateProject(ctx, agent.NewProject{Title: "Kitchen"}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	projects, err := reopened.GetAllProjects(ctx)
	if err != nil {
		t.Fatalf("get projects: %v", err)
	}
	if len(projects) != 1 || projects[0].Title != "Kitchen" {
		t.Fatalf("unexpected projects after reopen: %+v", projects)
	}
}

func TestStore_Errors(t *testing.T) {
	t.Parallel()

	store, _ := openTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateProject(ctx, agent.NewProject{Title: " "}); !errors.Is(err, ErrTitleEmpty) {
		t.Fatalf("expected ErrTitleEmpty, got %v", err)
	}
	if _, err := store.AddTask(ctx, "missing", agent.NewTask{Title: "x"}); !errors.Is(err, agent.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing project, got %v", err)
	}
	project, err := store.CreateProject(ctx, agent.NewProject{Title: "P"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := store.AddTask(ctx, project.ID, agent.NewTask{Title: "x", Status: "Someday"}); err == nil {
		t.Fatalf("expected unsupported status error")
	}
	title := "renamed"
	if _, err := store.UpdateTask(ctx, "missing", agent.TaskPatch{Title: &title}); !errors.Is(err, agent.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing task, got %v", err)
	}
}
