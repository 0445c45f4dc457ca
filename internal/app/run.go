package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildtree/internal/ctxlog"
	"github.com/specialistvlad/buildtree/internal/executor"
)

// Run loads the build tree and executes the configured workload over it.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	if err := a.connectEventSink(ctx); err != nil {
		return err
	}

	if err := a.LoadTree(); err != nil {
		return err
	}

	action, err := executor.ActionByName(a.config.Action)
	if err != nil {
		return err
	}

	if len(a.tree.AllProjects(ctx)) == 0 || a.config.Rounds == 0 {
		a.logger.Warn("Nothing to execute.", "rounds", a.config.Rounds)
		return nil
	}

	a.logger.Info("🚀 Starting concurrent execution...", "action", a.config.Action, "rounds", a.config.Rounds, "workers", a.config.WorkerCount)
	exec := executor.New(a.tree, a.config.WorkerCount, action)
	stats, err := exec.Run(ctx, a.config.Rounds)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	snap := a.tree.Snapshot()
	a.logger.Info("🏁 Execution finished.",
		"rounds", stats.Rounds,
		"jobs", stats.Jobs,
		"duration", stats.Duration,
		"uncontrolled_accesses", snap.UncontrolledAccesses,
	)
	a.logger.Debug("App.Run method finished.")
	return nil
}
