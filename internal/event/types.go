package event

import "time"

// Event types published by the registry and the lock coordinator.
const (
	TypeBuildRegistered   = "build.registered"
	TypeProjectRegistered = "project.registered"
	TypeLockAcquired      = "lock.acquired"
	TypeLockReleased      = "lock.released"
	TypeLockUncontrolled  = "lock.uncontrolled"
)

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier.
	EventType() string
	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// BuildRegisteredEvent is emitted once a whole build has been published.
type BuildRegisteredEvent struct {
	baseEvent
	Build        string
	ProjectCount int
}

// NewBuildRegisteredEvent creates a BuildRegisteredEvent.
func NewBuildRegisteredEvent(build string, projectCount int) BuildRegisteredEvent {
	return BuildRegisteredEvent{
		baseEvent:    newBaseEvent(TypeBuildRegistered),
		Build:        build,
		ProjectCount: projectCount,
	}
}

// ProjectRegisteredEvent is emitted for each newly visible project.
type ProjectRegisteredEvent struct {
	baseEvent
	Project string
}

// NewProjectRegisteredEvent creates a ProjectRegisteredEvent.
func NewProjectRegisteredEvent(project string) ProjectRegisteredEvent {
	return ProjectRegisteredEvent{
		baseEvent: newBaseEvent(TypeProjectRegistered),
		Project:   project,
	}
}

// LockEvent reports a lock transition. Target is a project identity path, or
// AllProjects for the global lock.
type LockEvent struct {
	baseEvent
	Target string
	Waited time.Duration // time spent blocked, for lock.acquired
	Held   time.Duration // time the lock was held, for lock.released
}

// AllProjects is the LockEvent target of the all-projects lock.
const AllProjects = "all projects"

// NewLockAcquiredEvent creates a lock.acquired event.
func NewLockAcquiredEvent(target string, waited time.Duration) LockEvent {
	return LockEvent{
		baseEvent: newBaseEvent(TypeLockAcquired),
		Target:    target,
		Waited:    waited,
	}
}

// NewLockReleasedEvent creates a lock.released event.
func NewLockReleasedEvent(target string, held time.Duration) LockEvent {
	return LockEvent{
		baseEvent: newBaseEvent(TypeLockReleased),
		Target:    target,
		Held:      held,
	}
}

// NewUncontrolledAccessEvent creates a lock.uncontrolled event.
func NewUncontrolledAccessEvent() LockEvent {
	return LockEvent{
		baseEvent: newBaseEvent(TypeLockUncontrolled),
		Target:    AllProjects,
	}
}
