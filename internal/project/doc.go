// Package project defines the entities tracked by the build-tree registry:
// builds, project descriptors, per-project state and the per-build view over
// that state.
//
// # Ownership
//
// A State is created once, when its project is registered, and lives for the
// lifetime of the build tree. Identity fields (build, path, parent) never
// change after creation. The mutable payload returned by State.Properties is
// NOT synchronised: it must only be touched while holding the project's lock
// (or the all-projects lock) from package projectlock, or through the
// explicitly unsafe escape hatch.
//
// # Thread Safety
//
// Identity accessors and tree navigation (Parent, Children) are safe for
// concurrent use. BuildProjectRegistry is a live, read-mostly view and is safe
// for concurrent use.
package project
