package project

import (
	"sort"
	"sync"

	"github.com/specialistvlad/buildtree/internal/buildid"
	"github.com/specialistvlad/buildtree/internal/errors"
)

// BuildProjectRegistry is a live view over the projects of one build.
type BuildProjectRegistry struct {
	build *BuildState

	mu       sync.RWMutex
	projects map[buildid.Path]*State
}

// NewBuildProjectRegistry creates a registry over the given states, all of
// which must belong to build.
func NewBuildProjectRegistry(build *BuildState, states ...*State) *BuildProjectRegistry {
	r := &BuildProjectRegistry{
		build:    build,
		projects: make(map[buildid.Path]*State, len(states)),
	}
	for _, s := range states {
		r.projects[s.Path()] = s
	}
	return r
}

// Build returns the owning build.
func (r *BuildProjectRegistry) Build() *BuildState {
	return r.build
}

// Add inserts a state. It is the store's job to reject duplicates first.
func (r *BuildProjectRegistry) Add(s *State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[s.Path()] = s
}

// RootProject returns the build's root project, or nil if the build has no
// registered root.
func (r *BuildProjectRegistry) RootProject() *State {
	s, _ := r.FindProject(buildid.Root)
	return s
}

// Project returns the project at path or a NotFoundError.
func (r *BuildProjectRegistry) Project(path buildid.Path) (*State, error) {
	s, ok := r.FindProject(path)
	if !ok {
		return nil, errors.NewNotFoundError("project", r.build.ProjectID(path).String())
	}
	return s, nil
}

// FindProject returns the project at path, if registered.
func (r *BuildProjectRegistry) FindProject(path buildid.Path) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.projects[path]
	return s, ok
}

// Len returns the number of registered projects.
func (r *BuildProjectRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.projects)
}

// AllProjects returns a snapshot of the build's projects sorted by path.
func (r *BuildProjectRegistry) AllProjects() []*State {
	r.mu.RLock()
	out := make([]*State, 0, len(r.projects))
	for _, s := range r.projects {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Path().String() < out[j].Path().String()
	})
	return out
}
