// Package inmemoryprojects keeps the build tree's membership in process memory.
//
// Builds and projects are indexed twice: by build, through one
// project.BuildProjectRegistry per build, and by project identifier for direct
// lookups. Both indexes are written under a single RWMutex so that a build
// added with AddBuild becomes visible to readers in one step.
package inmemoryprojects
