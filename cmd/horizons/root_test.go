package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Gurpartap/horizons/adapters/inmem"
	"github.com/Gurpartap/horizons/adapters/modeltest"
	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/catalog"
	"github.com/Gurpartap/horizons/internal/runtimewire"
)

type harness struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	dir    string
}

func (h *harness) run(t *testing.T, stdin string, deps runtimewire.Dependencies, args ...string) error {
	t.Helper()

	configPath := filepath.Join(h.dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c := &cli{
		stdin:     strings.NewReader(stdin),
		stdout:    &h.stdout,
		stderr:    &h.stderr,
		lookupEnv: func(string) (string, bool) { return "", false },
		deps:      deps,
	}
	root := c.command()
	root.SetArgs(append([]string{"--config", configPath, "--env-file", filepath.Join(h.dir, "missing.env")}, args...))
	return root.ExecuteContext(context.Background())
}

func TestImportCommand(t *testing.T) {
	t.Parallel()

	projects := inmem.NewProjects()
	if _, err := projects.CreateProject(context.Background(), agent.NewProject{Title: "Kitchen"}); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	model := modeltest.NewScriptedModel(
		modeltest.Call("titles", catalog.ToolSaveProjectTitles, map[string]any{"titles": []any{"Garden", "Kitchen"}}),
		modeltest.Call("details", catalog.ToolSaveProjectDetails, map[string]any{
			"project": map[string]any{"title": "Garden"},
			"tasks":   []any{map[string]any{"title": "Order mulch"}},
		}),
	)

	h := &harness{dir: t.TempDir()}
	err := h.run(t, "Garden\n  - Order mulch\nKitchen\n", runtimewire.Dependencies{Model: model, Projects: projects}, "import", "-")
	if err != nil {
		t.Fatalf("import: %v stderr=%s", err, h.stderr.String())
	}
	out := h.stdout.String()
	if !strings.Contains(out, "created  Garden") || !strings.Contains(out, "skipped  Kitchen (already exists)") {
		t.Fatalf("unexpected output: %s", out)
	}
	if !strings.Contains(h.stderr.String(), "project imported") {
		t.Fatalf("import was not logged: %s", h.stderr.String())
	}
}

func TestImportCommandRequiresModel(t *testing.T) {
	t.Parallel()

	h := &harness{dir: t.TempDir()}
	err := h.run(t, "Garden\n", runtimewire.Dependencies{}, "import", "-")
	if err == nil || !strings.Contains(err.Error(), "GOOGLE_API_KEY") {
		t.Fatalf("expected missing model error, got %v", err)
	}
}

func TestChatCommand(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(modeltest.Text("Hello there."))
	h := &harness{dir: t.TempDir()}
	if err := h.run(t, "hi\n/quit\n", runtimewire.Dependencies{Model: model}, "chat"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(h.stdout.String(), "assistant> Hello there.") {
		t.Fatalf("unexpected output: %s", h.stdout.String())
	}
}

func TestRootRejectsInvalidFlags(t *testing.T) {
	t.Parallel()

	h := &harness{dir: t.TempDir()}
	err := h.run(t, "", runtimewire.Dependencies{}, "--log-format", "xml", "chat")
	if err == nil || !strings.Contains(err.Error(), "log.format") {
		t.Fatalf("expected log format error, got %v", err)
	}
}
