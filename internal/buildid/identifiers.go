package buildid

// Build identifies one build within a build tree.
type Build struct {
	path Path
}

// RootBuild is the identifier of the root build of a tree.
var RootBuild = Build{path: Root}

// NewBuild creates a build identifier from its path within the tree.
func NewBuild(path Path) Build {
	return Build{path: path}
}

// ParseBuild parses a build path such as `:` or `:buildSrc`.
func ParseBuild(raw string) (Build, error) {
	p, err := ParsePath(raw)
	if err != nil {
		return Build{}, err
	}
	return Build{path: p}, nil
}

// Path returns the build's path within the tree.
func (b Build) Path() Path {
	return b.path
}

// Name returns the build's display name: the last segment of its path, or
// "root" for the root build.
func (b Build) Name() string {
	if b.path.IsRoot() {
		return "root"
	}
	return b.path.Name()
}

// IsZero reports whether b is the zero Build.
func (b Build) IsZero() bool {
	return b.path.IsZero()
}

// String returns the build path.
func (b Build) String() string {
	return b.path.String()
}

// Project identifies one project: its owning build plus its path within that
// build.
type Project struct {
	Build Build
	Path  Path
}

// NewProject creates a project identifier.
func NewProject(build Build, path Path) Project {
	return Project{Build: build, Path: path}
}

// IdentityPath is the project's path within the whole tree: the build path
// followed by the project path.
func (p Project) IdentityPath() Path {
	return p.Build.path.Append(p.Path)
}

// String returns the identity path.
func (p Project) String() string {
	return p.IdentityPath().String()
}
