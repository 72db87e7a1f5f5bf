package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gurpartap/horizons/adapters/modeltest"
	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/config"
	"github.com/Gurpartap/horizons/internal/runtimewire"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testApp struct {
	app     *App
	baseURL string
	logs    *lockedBuffer
	errCh   chan error
}

func startApp(t *testing.T, model agent.Model) *testApp {
	t.Helper()

	logs := &lockedBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	cfg := config.Default()

	runtime, err := runtimewire.NewWithDependencies(context.Background(), cfg, logger, runtimewire.Dependencies{Model: model})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	application, err := New(cfg.HTTP, runtime, logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Serve(listener)
	}()

	baseURL := "http://" + listener.Addr().String()
	waitForHealthz(t, baseURL)
	return &testApp{app: application, baseURL: baseURL, logs: logs, errCh: errCh}
}

func (a *testApp) shutdown(t *testing.T, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.app.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown app: %v", err)
	}
	select {
	case err := <-a.errCh:
		if err != nil {
			t.Fatalf("server exited with error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for server exit")
	}
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	ready := startApp(t, modeltest.NewScriptedModel())
	defer ready.shutdown(t, 2*time.Second)
	if status, body := get(t, ready.baseURL+"/readyz"); status != http.StatusOK || body != "ready" {
		t.Fatalf("readyz mismatch: got=%d body=%q", status, body)
	}

	unconfigured := startApp(t, nil)
	defer unconfigured.shutdown(t, 2*time.Second)
	if status, body := get(t, unconfigured.baseURL+"/readyz"); status != http.StatusServiceUnavailable || body != "model not configured" {
		t.Fatalf("readyz without model: got=%d body=%q", status, body)
	}
}

func TestRequestsAreLogged(t *testing.T) {
	t.Parallel()

	a := startApp(t, modeltest.NewScriptedModel())
	defer a.shutdown(t, 2*time.Second)

	if status, _ := get(t, a.baseURL+"/v1/sessions/missing-session"); status != http.StatusNotFound {
		t.Fatalf("unknown session status mismatch: got=%d want=%d", status, http.StatusNotFound)
	}
	logs := a.logs.String()
	if !strings.Contains(logs, `msg="http request"`) || !strings.Contains(logs, "session_id=missing-session") || !strings.Contains(logs, "status=404") {
		t.Fatalf("request log missing fields: %s", logs)
	}
}

func TestShutdownForcesCloseOfInFlightTurn(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	defer close(block)
	model := modeltest.NewScriptedModel(modeltest.Response{Wait: block})
	a := startApp(t, model)

	go func() {
		body := strings.NewReader(`{"history":[{"role":"user","content":"hi"}]}`)
		resp, err := http.Post(a.baseURL+"/v1/turns", "application/json", body)
		if err == nil {
			resp.Body.Close()
		}
	}()
	deadline := time.Now().Add(2 * time.Second)
	for model.Calls() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("turn did not reach the model")
		}
		time.Sleep(5 * time.Millisecond)
	}

	a.shutdown(t, 50*time.Millisecond)
	if !strings.Contains(a.logs.String(), "graceful shutdown timed out; forcing connection close") {
		t.Fatalf("expected forced-close shutdown warning log, got: %s", a.logs.String())
	}
}

func TestShutdownWithoutInFlightRequestIsGraceful(t *testing.T) {
	t.Parallel()

	a := startApp(t, modeltest.NewScriptedModel())
	a.shutdown(t, 2*time.Second)
	if strings.Contains(a.logs.String(), "forcing connection close") {
		t.Fatalf("expected graceful shutdown, got: %s", a.logs.String())
	}
	if status, body := serveLocal(a.app, "/readyz"); status != http.StatusServiceUnavailable || body != "not ready" {
		t.Fatalf("readyz after shutdown: got=%d body=%q", status, body)
	}
}

func TestNewValidatesArguments(t *testing.T) {
	t.Parallel()

	runtime, err := runtimewire.NewWithDependencies(context.Background(), config.Default(), slog.New(slog.DiscardHandler), runtimewire.Dependencies{})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	cfg := config.Default().HTTP
	if _, err := New(config.HTTPConfig{}, runtime, slog.New(slog.DiscardHandler)); err == nil {
		t.Fatalf("expected error for empty addr")
	}
	if _, err := New(cfg, nil, slog.New(slog.DiscardHandler)); err == nil {
		t.Fatalf("expected error for nil runtime")
	}
	if _, err := New(cfg, runtime, nil); err == nil {
		t.Fatalf("expected error for nil logger")
	}
}

func waitForHealthz(t *testing.T, baseURL string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("healthz did not become ready before deadline")
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func serveLocal(a *App, path string) (int, string) {
	recorder := httptest.NewRecorder()
	a.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
	return recorder.Code, recorder.Body.String()
}
