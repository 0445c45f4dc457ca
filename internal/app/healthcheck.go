package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/specialistvlad/buildtree/internal/ctxlog"
)

const diagnosticsShutdownTimeout = 5 * time.Second

// healthStatus is the body of GET /health.
type healthStatus struct {
	Status   string `json:"status"`
	Builds   int    `json:"builds"`
	Projects int    `json:"projects"`
}

func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(app.ctx).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
	app.writeJSON(w, healthStatus{
		Status:   "ok",
		Builds:   len(app.tree.Builds(r.Context())),
		Projects: len(app.tree.AllProjects(r.Context())),
	})
}

// locksHandler serves the coordinator's lock table. It never takes a project
// lock, so it answers even while the all-projects lock is held.
func (app *App) locksHandler(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(app.ctx).Debug("Locks endpoint hit.", "remote_addr", r.RemoteAddr)
	app.writeJSON(w, app.tree.Snapshot())
}

func (app *App) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		ctxlog.FromContext(app.ctx).Error("Failed to encode diagnostics response.", "error", err)
	}
}

// handler returns the routes of the diagnostics server.
func (app *App) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", app.healthHandler)
	mux.HandleFunc("GET /locks", app.locksHandler)
	return mux
}

// healthCheckServer starts the diagnostics server in the background when a
// port is configured.
func (app *App) healthCheckServer() {
	logger := ctxlog.FromContext(app.ctx)
	if app.config.HealthcheckPort == 0 {
		logger.Debug("Diagnostics server disabled.")
		return
	}

	addr := fmt.Sprintf(":%d", app.config.HealthcheckPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	app.httpServer = srv

	go func() {
		logger.Info("🩺 Diagnostics server listening.", "health", "http://localhost"+addr+"/health", "locks", "http://localhost"+addr+"/locks")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Diagnostics server stopped.", "error", err)
		}
	}()
}

func (app *App) closeHealthCheckServer() error {
	if app.httpServer == nil {
		return nil
	}
	logger := ctxlog.FromContext(app.ctx)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(app.ctx), diagnosticsShutdownTimeout)
	defer cancel()
	if err := app.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Diagnostics server shutdown failed.", "error", err)
		return fmt.Errorf("shutting down diagnostics server: %w", err)
	}
	app.httpServer = nil
	logger.Debug("Diagnostics server shut down.")
	return nil
}
