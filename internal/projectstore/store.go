// Package projectstore defines the interface for storing and looking up the
// projects of every build in a build tree.
//
// # Why Project Store Exists
//
// The store only tracks existence and identity: which builds and projects are
// registered and how to find them. It holds no lock-coordination logic; the
// mutable state of each project is arbitrated by package projectlock.
//
// # Lifecycle and Usage
//
// The project store is:
//  1. **Created** once per build tree
//  2. **Populated** during the configuration phase, one build at a time, and
//     incrementally as nested builds or late projects are discovered
//  3. **Read-mostly** during execution, when workers resolve identifiers
//  4. **Discarded** with the build tree
//
// Membership only grows. Nothing is ever removed.
package projectstore

import (
	"context"

	"github.com/specialistvlad/buildtree/internal/buildid"
	"github.com/specialistvlad/buildtree/internal/project"
)

// Store is the interface for the registry of builds and projects.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use. Registration calls may run
// while other goroutines look projects up; a reader must never observe a build
// added by AddBuild partially.
type Store interface {
	// AddBuild publishes a build together with all of its project states in a
	// single step. The states are built privately by the caller.
	//
	// Returns a ConflictError if the build, or any of the project identifiers,
	// is already registered; in that case nothing is published.
	AddBuild(ctx context.Context, build *project.BuildState, states []*project.State) error

	// RegisterProject creates and stores the state for a single project.
	//
	// d.Path must be set. An unknown build is registered implicitly. If the
	// parent path is registered in the same build the new state is linked
	// under it.
	//
	// Returns a ConflictError if the project identifier is already registered.
	RegisterProject(ctx context.Context, build *project.BuildState, d *project.Descriptor) (*project.State, error)

	// AllProjects returns a snapshot of every registered project, ordered by
	// build path then project path. The slice is owned by the caller.
	AllProjects(ctx context.Context) []*project.State

	// StateFor returns the state of the identified project, or a
	// NotFoundError.
	StateFor(ctx context.Context, id buildid.Project) (*project.State, error)

	// ProjectsFor returns the live view over one build's projects, or a
	// NotFoundError if the build is unknown.
	ProjectsFor(ctx context.Context, id buildid.Build) (*project.BuildProjectRegistry, error)

	// Builds returns a snapshot of the registered builds ordered by path.
	Builds(ctx context.Context) []*project.BuildState
}
