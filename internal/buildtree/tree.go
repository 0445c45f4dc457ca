// Package buildtree owns the project registry of one build tree: the project
// store, the registrar that fills it and the lock coordinator that arbitrates
// access to project state.
//
// A Tree is created when a build tree starts and closed when it ends. There is
// no process-wide instance; callers pass the Tree to whatever needs it.
package buildtree

import (
	"context"

	"github.com/specialistvlad/buildtree/internal/buildid"
	"github.com/specialistvlad/buildtree/internal/event"
	"github.com/specialistvlad/buildtree/internal/inmemoryprojects"
	"github.com/specialistvlad/buildtree/internal/project"
	"github.com/specialistvlad/buildtree/internal/projectlock"
	"github.com/specialistvlad/buildtree/internal/projectstore"
	"github.com/specialistvlad/buildtree/internal/registrar"
)

// Tree is the project registry of a build tree.
type Tree struct {
	store     projectstore.Store
	registrar *registrar.Registrar
	locks     *projectlock.Coordinator
	bus       *event.Bus
}

type options struct {
	store    projectstore.Store
	bus      *event.Bus
	lockOpts []projectlock.Option
}

// Option configures a Tree.
type Option func(*options)

// WithStore replaces the default in-memory store.
func WithStore(store projectstore.Store) Option {
	return func(o *options) { o.store = store }
}

// WithEventBus publishes registration and lock events to bus.
func WithEventBus(bus *event.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithGlobalPriority gives waiting all-projects requests priority over new
// project lock requests.
func WithGlobalPriority() Option {
	return func(o *options) { o.lockOpts = append(o.lockOpts, projectlock.WithGlobalPriority()) }
}

// New creates an empty Tree.
func New(opts ...Option) *Tree {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = inmemoryprojects.New()
	}

	lockOpts := append([]projectlock.Option{projectlock.WithEventBus(o.bus)}, o.lockOpts...)
	return &Tree{
		store:     o.store,
		registrar: registrar.New(o.store, o.bus),
		locks:     projectlock.New(o.store, lockOpts...),
		bus:       o.bus,
	}
}

// RegisterBuild registers build with the project tree rooted at root.
func (t *Tree) RegisterBuild(ctx context.Context, build *project.BuildState, root *project.Descriptor) error {
	_, err := t.registrar.RegisterBuild(ctx, build, root)
	return err
}

// RegisterProject registers a single project of build. d.Path must be set.
func (t *Tree) RegisterProject(ctx context.Context, build *project.BuildState, d *project.Descriptor) (*project.State, error) {
	return t.registrar.RegisterProject(ctx, build, d)
}

// AllProjects returns every registered project.
func (t *Tree) AllProjects(ctx context.Context) []*project.State {
	return t.store.AllProjects(ctx)
}

// StateFor returns the state of a project.
func (t *Tree) StateFor(ctx context.Context, id buildid.Project) (*project.State, error) {
	return t.store.StateFor(ctx, id)
}

// ProjectsFor returns the projects of a build.
func (t *Tree) ProjectsFor(ctx context.Context, id buildid.Build) (*project.BuildProjectRegistry, error) {
	return t.store.ProjectsFor(ctx, id)
}

// Builds returns the registered builds.
func (t *Tree) Builds(ctx context.Context) []*project.BuildState {
	return t.store.Builds(ctx)
}

// WithProjectLock runs action holding the lock of the identified project.
func (t *Tree) WithProjectLock(ctx context.Context, id buildid.Project, action func(context.Context, *project.State) error) error {
	return t.locks.WithProjectLock(ctx, id, action)
}

// WithAllProjectsLock runs action holding the lock of every project.
func (t *Tree) WithAllProjectsLock(ctx context.Context, action func(context.Context) error) error {
	return t.locks.WithAllProjectsLock(ctx, action)
}

// AllowUncontrolledAccessToAnyProject runs action without any lock.
func (t *Tree) AllowUncontrolledAccessToAnyProject(ctx context.Context, action func(context.Context) error) error {
	return t.locks.AllowUncontrolledAccessToAnyProject(ctx, action)
}

// Locks returns the tree's lock coordinator, for use with the generic helpers
// of package projectlock.
func (t *Tree) Locks() *projectlock.Coordinator {
	return t.locks
}

// Snapshot returns the current lock table.
func (t *Tree) Snapshot() projectlock.Snapshot {
	return t.locks.Snapshot()
}

// Events returns the bus the tree publishes to, possibly nil.
func (t *Tree) Events() *event.Bus {
	return t.bus
}

// Close ends the tree's lifetime. Pending and future lock requests fail with a
// CancelledError.
func (t *Tree) Close() error {
	return t.locks.Close()
}
