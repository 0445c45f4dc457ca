package project

import "github.com/specialistvlad/buildtree/internal/buildid"

// BuildState describes one build of the tree.
type BuildState struct {
	id      buildid.Build
	rootDir string
}

// NewBuildState creates the state of a build rooted at rootDir.
func NewBuildState(id buildid.Build, rootDir string) *BuildState {
	return &BuildState{id: id, rootDir: rootDir}
}

// ID returns the build identifier.
func (b *BuildState) ID() buildid.Build {
	return b.id
}

// RootDir returns the build's root directory, as declared.
func (b *BuildState) RootDir() string {
	return b.rootDir
}

// ProjectID returns the identifier of the project at path within this build.
func (b *BuildState) ProjectID(path buildid.Path) buildid.Project {
	return buildid.NewProject(b.id, path)
}
