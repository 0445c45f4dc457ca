package config

import (
	"github.com/specialistvlad/buildtree/internal/buildid"
	"github.com/specialistvlad/buildtree/internal/project"
)

// Model is the unified, format-agnostic representation of a build tree.
type Model struct {
	// Builds in declaration order. The first one is registered first; the
	// others are treated as discovered later.
	Builds []*Build
}

// Build is one build of the tree.
type Build struct {
	ID     buildid.Build
	Dir    string
	Source string // file the build was declared in, for error messages

	// Root is the build's root project. Its children are the subprojects.
	Root *project.Descriptor
}

// ProjectCount returns the number of projects across all builds.
func (m *Model) ProjectCount() int {
	n := 0
	for _, b := range m.Builds {
		n += b.Root.Count()
	}
	return n
}

// FindBuild returns the build with the given identifier.
func (m *Model) FindBuild(id buildid.Build) (*Build, bool) {
	for _, b := range m.Builds {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}
