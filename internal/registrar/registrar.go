// Package registrar turns declared project trees into registered project
// states.
//
// A build is assembled completely in private and then handed to the store in
// one call, so concurrent readers either see the whole build or none of it.
package registrar

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildtree/internal/buildid"
	"github.com/specialistvlad/buildtree/internal/ctxlog"
	"github.com/specialistvlad/buildtree/internal/errors"
	"github.com/specialistvlad/buildtree/internal/event"
	"github.com/specialistvlad/buildtree/internal/project"
	"github.com/specialistvlad/buildtree/internal/projectstore"
)

// Registrar registers builds and late projects into a store.
type Registrar struct {
	store projectstore.Store
	bus   *event.Bus
}

// New creates a Registrar. bus may be nil.
func New(store projectstore.Store, bus *event.Bus) *Registrar {
	return &Registrar{store: store, bus: bus}
}

// RegisterBuild registers build together with every project of tree, whose
// root descriptor is the build's root project. Paths are derived from the
// descriptor names; any Path already set on a descriptor is ignored.
func (r *Registrar) RegisterBuild(ctx context.Context, build *project.BuildState, tree *project.Descriptor) (*project.BuildProjectRegistry, error) {
	if build == nil {
		return nil, errors.NewValidationError("build", "", "must not be nil")
	}
	logger := ctxlog.FromContext(ctx).With("build", build.ID().String())

	if tree == nil {
		return nil, errors.NewValidationError("project tree", build.ID().String(), "root project is required")
	}

	states, err := buildStates(build, tree)
	if err != nil {
		return nil, fmt.Errorf("registering build %s: %w", build.ID(), err)
	}

	if err := r.store.AddBuild(ctx, build, states); err != nil {
		return nil, fmt.Errorf("registering build %s: %w", build.ID(), err)
	}

	reg, err := r.store.ProjectsFor(ctx, build.ID())
	if err != nil {
		return nil, err
	}

	logger.Debug("Build registered.", "projects", len(states))
	for _, st := range states {
		r.bus.Publish(event.NewProjectRegisteredEvent(st.String()))
	}
	r.bus.Publish(event.NewBuildRegisteredEvent(build.ID().String(), len(states)))
	return reg, nil
}

// RegisterProject registers a single, late-discovered project. d.Path must be
// set.
func (r *Registrar) RegisterProject(ctx context.Context, build *project.BuildState, d *project.Descriptor) (*project.State, error) {
	st, err := r.store.RegisterProject(ctx, build, d)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Project registered.", "project", st.String())
	r.bus.Publish(event.NewProjectRegisteredEvent(st.String()))
	return st, nil
}

// buildStates creates the states of tree depth-first, linking children to
// their parents. Nothing is shared until the caller publishes the result.
func buildStates(build *project.BuildState, tree *project.Descriptor) ([]*project.State, error) {
	states := make([]*project.State, 0, tree.Count())

	var visit func(d *project.Descriptor, path buildid.Path, parent *project.State) error
	visit = func(d *project.Descriptor, path buildid.Path, parent *project.State) error {
		declared := *d
		declared.Path = path
		st := project.NewState(build, &declared, parent)
		if parent != nil {
			parent.AddChild(st)
		}
		states = append(states, st)

		names := make(map[string]struct{}, len(d.Children))
		for _, child := range d.Children {
			if child == nil {
				continue
			}
			if _, dup := names[child.Name]; dup {
				return errors.NewValidationError("project name", child.Name, "declared twice under "+st.String())
			}
			names[child.Name] = struct{}{}

			childPath, err := path.Child(child.Name)
			if err != nil {
				return fmt.Errorf("project under %s: %w", st, err)
			}
			if err := visit(child, childPath, st); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(tree, buildid.Root, nil); err != nil {
		return nil, err
	}
	return states, nil
}
