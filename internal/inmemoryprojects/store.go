package inmemoryprojects

import (
	"context"
	"sort"
	"sync"

	"github.com/specialistvlad/buildtree/internal/buildid"
	"github.com/specialistvlad/buildtree/internal/errors"
	"github.com/specialistvlad/buildtree/internal/project"
	"github.com/specialistvlad/buildtree/internal/projectstore"
)

// Store implements the projectstore.Store interface using maps and a mutex
// for thread-safe concurrent access.
type Store struct {
	mu       sync.RWMutex
	builds   map[buildid.Build]*project.BuildProjectRegistry
	projects map[buildid.Project]*project.State
}

// New creates a new, empty in-memory project store.
func New() projectstore.Store {
	return &Store{
		builds:   make(map[buildid.Build]*project.BuildProjectRegistry),
		projects: make(map[buildid.Project]*project.State),
	}
}

// AddBuild publishes a build and all of its states under one write lock.
func (s *Store) AddBuild(ctx context.Context, build *project.BuildState, states []*project.State) error {
	if build == nil {
		return errors.NewValidationError("build", "", "must not be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.builds[build.ID()]; exists {
		return errors.NewConflictError("build", build.ID().String())
	}

	// Check everything before touching the maps so a clash leaves no trace.
	seen := make(map[buildid.Project]struct{}, len(states))
	for _, st := range states {
		if st.Owner() != build {
			return errors.NewValidationError("project", st.String(), "belongs to a different build")
		}
		if _, exists := s.projects[st.ID()]; exists {
			return errors.NewConflictError("project", st.String())
		}
		if _, dup := seen[st.ID()]; dup {
			return errors.NewConflictError("project", st.String())
		}
		seen[st.ID()] = struct{}{}
	}

	s.builds[build.ID()] = project.NewBuildProjectRegistry(build, states...)
	for _, st := range states {
		s.projects[st.ID()] = st
	}
	return nil
}

// RegisterProject creates and stores a single project state.
func (s *Store) RegisterProject(ctx context.Context, build *project.BuildState, d *project.Descriptor) (*project.State, error) {
	if build == nil || d == nil {
		return nil, errors.NewValidationError("project", "", "build and descriptor are required")
	}
	if d.Path.IsZero() {
		return nil, errors.NewValidationError("project path", d.Name, "must be set")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := build.ProjectID(d.Path)
	if _, exists := s.projects[id]; exists {
		return nil, errors.NewConflictError("project", id.String())
	}

	reg, ok := s.builds[build.ID()]
	if !ok {
		reg = project.NewBuildProjectRegistry(build)
		s.builds[build.ID()] = reg
	} else {
		// The registry keeps the first BuildState it saw.
		build = reg.Build()
	}

	var parent *project.State
	if parentPath, hasParent := d.Path.Parent(); hasParent {
		parent, _ = reg.FindProject(parentPath)
	}

	st := project.NewState(build, d, parent)
	if parent != nil {
		parent.AddChild(st)
	}
	reg.Add(st)
	s.projects[id] = st
	return st, nil
}

// AllProjects returns a snapshot of all registered projects, ordered by build
// path then project path.
func (s *Store) AllProjects(ctx context.Context) []*project.State {
	s.mu.RLock()
	all := make([]*project.State, 0, len(s.projects))
	for _, st := range s.projects {
		all = append(all, st)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		bi, bj := all[i].ID().Build.String(), all[j].ID().Build.String()
		if bi != bj {
			return bi < bj
		}
		return all[i].Path().String() < all[j].Path().String()
	})
	return all
}

// StateFor looks a project up by identifier.
func (s *Store) StateFor(ctx context.Context, id buildid.Project) (*project.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.projects[id]
	if !ok {
		return nil, errors.NewNotFoundError("project", id.String())
	}
	return st, nil
}

// ProjectsFor returns the registry of one build.
func (s *Store) ProjectsFor(ctx context.Context, id buildid.Build) (*project.BuildProjectRegistry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.builds[id]
	if !ok {
		return nil, errors.NewNotFoundError("build", id.String())
	}
	return reg, nil
}

// Builds returns the registered builds ordered by path.
func (s *Store) Builds(ctx context.Context) []*project.BuildState {
	s.mu.RLock()
	out := make([]*project.BuildState, 0, len(s.builds))
	for _, reg := range s.builds {
		out = append(out, reg.Build())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID().String() < out[j].ID().String()
	})
	return out
}
