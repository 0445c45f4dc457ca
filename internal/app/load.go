package app

import (
	"fmt"

	"github.com/specialistvlad/buildtree/internal/ctxlog"
	"github.com/specialistvlad/buildtree/internal/project"
)

// LoadTree reads the build tree description and registers every build in
// declaration order.
func (a *App) LoadTree() error {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Loading build tree...", "tree_path", a.config.TreePath)

	model, err := a.loader.Load(a.ctx, a.config.TreePath)
	if err != nil {
		return fmt.Errorf("failed to load build tree: %w", err)
	}

	for _, b := range model.Builds {
		build := project.NewBuildState(b.ID, b.Dir)
		if err := a.tree.RegisterBuild(a.ctx, build, b.Root); err != nil {
			return fmt.Errorf("failed to register build %s from %s: %w", b.ID, b.Source, err)
		}
		logger.Debug("Build registered.", "build", b.ID.String(), "projects", b.Root.Count())
	}

	a.model = model
	logger.Info("Build tree loaded.", "builds", len(model.Builds), "projects", model.ProjectCount())
	return nil
}
