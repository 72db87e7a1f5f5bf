// Package app owns the HTTP server lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/Gurpartap/horizons/config"
	"github.com/Gurpartap/horizons/internal/httpapi"
	"github.com/Gurpartap/horizons/internal/runtimewire"
)

type App struct {
	cfg     config.HTTPConfig
	logger  *slog.Logger
	runtime *runtimewire.Runtime
	server  *http.Server
	ready   atomic.Bool
}

func New(cfg config.HTTPConfig, runtime *runtimewire.Runtime, logger *slog.Logger) (*App, error) {
	if cfg.Addr == "" {
		return nil, errors.New("new app: empty http addr")
	}
	if runtime == nil {
		return nil, errors.New("new app: nil runtime")
	}
	if logger == nil {
		return nil, errors.New("new app: nil logger")
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, errors.New("new app: shutdown timeout must be > 0")
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		runtime: runtime,
	}

	apiRouter := httpapi.NewRouter(runtime.Backend(), httpapi.PolicyConfig{
		AuthToken:           cfg.AuthToken,
		MaxRequestBodyBytes: cfg.MaxBodyBytes,
		RequestTimeout:      cfg.RequestTimeout,
	})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	mux.Handle("/", apiRouter)
	a.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: requestLoggingMiddleware(logger)(mux),
	}

	return a, nil
}

// Handler returns the root handler, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) Start() error {
	listener, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Addr, err)
	}
	return a.Serve(listener)
}

// Serve accepts connections on listener until Shutdown.
func (a *App) Serve(listener net.Listener) error {
	a.ready.Store(true)
	a.logger.Info("http server listening", slog.String("addr", listener.Addr().String()))

	err := a.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	a.ready.Store(false)
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return errors.New("shutdown: nil context")
	}
	a.ready.Store(false)

	err := a.server.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		a.logger.Warn("graceful shutdown timed out; forcing connection close")
		if closeErr := a.server.Close(); closeErr != nil {
			err = fmt.Errorf("shutdown timeout and forced close failed: %w", errors.Join(err, closeErr))
		} else {
			err = nil
		}
	}
	if closeErr := a.runtime.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("close runtime: %w", closeErr))
	}
	return err
}

func (a *App) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writePlain(w, http.StatusOK, "ok")
}

func (a *App) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !a.ready.Load() {
		writePlain(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	if !a.runtime.Assistant.Ready() {
		writePlain(w, http.StatusServiceUnavailable, "model not configured")
		return
	}
	writePlain(w, http.StatusOK, "ready")
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
