package projectlock

import (
	"context"

	"github.com/specialistvlad/buildtree/internal/buildid"
	"github.com/specialistvlad/buildtree/internal/project"
)

// WithProject is WithProjectLock for actions that produce a value.
func WithProject[T any](ctx context.Context, c *Coordinator, id buildid.Project, action func(context.Context, *project.State) (T, error)) (T, error) {
	var result T
	err := c.WithProjectLock(ctx, id, func(ctx context.Context, s *project.State) error {
		var err error
		result, err = action(ctx, s)
		return err
	})
	return result, err
}

// WithAllProjects is WithAllProjectsLock for actions that produce a value.
func WithAllProjects[T any](ctx context.Context, c *Coordinator, action func(context.Context) (T, error)) (T, error) {
	var result T
	err := c.WithAllProjectsLock(ctx, func(ctx context.Context) error {
		var err error
		result, err = action(ctx)
		return err
	})
	return result, err
}

// AllowUncontrolledAccess is AllowUncontrolledAccessToAnyProject for actions
// that produce a value.
func AllowUncontrolledAccess[T any](ctx context.Context, c *Coordinator, action func(context.Context) (T, error)) (T, error) {
	var result T
	err := c.AllowUncontrolledAccessToAnyProject(ctx, func(ctx context.Context) error {
		var err error
		result, err = action(ctx)
		return err
	})
	return result, err
}
