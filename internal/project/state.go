package project

import (
	"sort"
	"sync"

	"github.com/specialistvlad/buildtree/internal/buildid"
)

// State is the registry's record of one project.
type State struct {
	id     buildid.Project
	owner  *BuildState
	dir    string
	parent *State

	// childMu guards children only. Children can still be appended after
	// publication when a late project is registered under an existing parent.
	childMu  sync.RWMutex
	children []*State

	properties *Properties
}

// NewState creates the state for a project described by d, owned by build and
// nested under parent (nil for a root project). d.Path must be set.
func NewState(build *BuildState, d *Descriptor, parent *State) *State {
	return &State{
		id:         build.ProjectID(d.Path),
		owner:      build,
		dir:        d.Dir,
		parent:     parent,
		properties: newProperties(d.Properties),
	}
}

// ID returns the project identifier.
func (s *State) ID() buildid.Project {
	return s.id
}

// Owner returns the build that owns the project.
func (s *State) Owner() *BuildState {
	return s.owner
}

// Path returns the project path within its build.
func (s *State) Path() buildid.Path {
	return s.id.Path
}

// IdentityPath returns the project path within the whole tree.
func (s *State) IdentityPath() buildid.Path {
	return s.id.IdentityPath()
}

// Name returns the project name. A root project is named after its build.
func (s *State) Name() string {
	if s.id.Path.IsRoot() {
		return s.owner.ID().Name()
	}
	return s.id.Path.Name()
}

// Dir returns the project directory as declared, possibly empty.
func (s *State) Dir() string {
	return s.dir
}

// Parent returns the enclosing project, or nil for a root project.
func (s *State) Parent() *State {
	return s.parent
}

// Children returns the direct subprojects sorted by path.
func (s *State) Children() []*State {
	s.childMu.RLock()
	defer s.childMu.RUnlock()

	out := make([]*State, len(s.children))
	copy(out, s.children)
	sort.Slice(out, func(i, j int) bool {
		return out[i].id.Path.String() < out[j].id.Path.String()
	})
	return out
}

// AddChild links child under s.
func (s *State) AddChild(child *State) {
	s.childMu.Lock()
	defer s.childMu.Unlock()
	s.children = append(s.children, child)
}

// Properties returns the project's mutable payload. The caller must hold the
// project's lock, the all-projects lock, or be inside the escape hatch.
func (s *State) Properties() *Properties {
	return s.properties
}

// String returns the identity path.
func (s *State) String() string {
	return s.id.String()
}
