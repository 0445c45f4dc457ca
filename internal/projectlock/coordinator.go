package projectlock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/buildtree/internal/buildid"
	"github.com/specialistvlad/buildtree/internal/ctxlog"
	"github.com/specialistvlad/buildtree/internal/errors"
	"github.com/specialistvlad/buildtree/internal/event"
	"github.com/specialistvlad/buildtree/internal/project"
	"github.com/specialistvlad/buildtree/internal/projectstore"
)

// ErrClosed is the cause of the CancelledError returned by a coordinator that
// has been closed.
var ErrClosed = errors.New("lock coordinator closed")

// Coordinator grants project locks and the all-projects lock.
type Coordinator struct {
	store          projectstore.Store
	bus            *event.Bus
	globalPriority bool

	mu sync.Mutex
	// changed is closed and replaced whenever the lock table changes in a way
	// a waiter could care about.
	changed        chan struct{}
	locked         map[buildid.Project]struct{}
	allLocked      bool
	projectWaiters int
	allWaiters     int
	closed         bool

	uncontrolled atomic.Int64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithGlobalPriority makes a waiting all-projects request block new project
// lock grants, so a steady stream of project locks cannot starve it.
func WithGlobalPriority() Option {
	return func(c *Coordinator) {
		c.globalPriority = true
	}
}

// WithEventBus publishes lock events to bus.
func WithEventBus(bus *event.Bus) Option {
	return func(c *Coordinator) {
		c.bus = bus
	}
}

// New creates a Coordinator resolving project identifiers through store.
func New(store projectstore.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		changed: make(chan struct{}),
		locked:  make(map[buildid.Project]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithProjectLock runs action while holding the lock of the identified
// project. The action's error is returned unchanged.
//
// Re-entry is only detected through the context handed to action. A nested
// call made with an outer context instead blocks forever on a project the
// caller already holds.
func (c *Coordinator) WithProjectLock(ctx context.Context, id buildid.Project, action func(context.Context, *project.State) error) error {
	state, err := c.store.StateFor(ctx, id)
	if err != nil {
		return err
	}
	held := heldFrom(ctx, c)
	if held != nil {
		if held.holdsAll(c) {
			return errors.NewReentrantLockError(id.String(), event.AllProjects)
		}
		if held.holds(c, id) {
			return errors.NewReentrantLockError(id.String(), id.String())
		}
	}

	logger := ctxlog.FromContext(ctx).With("project", id.String())
	start := time.Now()
	if err := c.acquireProject(ctx, id, held != nil); err != nil {
		logger.Debug("Gave up waiting for project lock.", "error", err)
		return err
	}
	acquired := time.Now()
	logger.Debug("Project lock acquired.", "waited", acquired.Sub(start))
	c.bus.Publish(event.NewLockAcquiredEvent(id.String(), acquired.Sub(start)))

	defer func() {
		c.releaseProject(id)
		heldFor := time.Since(acquired)
		logger.Debug("Project lock released.", "held", heldFor)
		c.bus.Publish(event.NewLockReleasedEvent(id.String(), heldFor))
	}()

	return action(withHeld(ctx, c, id, false), state)
}

// WithAllProjectsLock runs action while holding the lock on every project.
// The action's error is returned unchanged.
func (c *Coordinator) WithAllProjectsLock(ctx context.Context, action func(context.Context) error) error {
	if held := heldFrom(ctx, c); held != nil {
		return errors.NewReentrantLockError(event.AllProjects, held.describe(c))
	}

	logger := ctxlog.FromContext(ctx)
	start := time.Now()
	if err := c.acquireAll(ctx); err != nil {
		logger.Debug("Gave up waiting for all-projects lock.", "error", err)
		return err
	}
	acquired := time.Now()
	logger.Debug("All-projects lock acquired.", "waited", acquired.Sub(start))
	c.bus.Publish(event.NewLockAcquiredEvent(event.AllProjects, acquired.Sub(start)))

	defer func() {
		c.releaseAll()
		held := time.Since(acquired)
		logger.Debug("All-projects lock released.", "held", held)
		c.bus.Publish(event.NewLockReleasedEvent(event.AllProjects, held))
	}()

	return action(withHeld(ctx, c, buildid.Project{}, true))
}

// AllowUncontrolledAccessToAnyProject runs action without taking any lock.
// Nothing protects project state from concurrent mutation while it runs.
func (c *Coordinator) AllowUncontrolledAccessToAnyProject(ctx context.Context, action func(context.Context) error) error {
	c.uncontrolled.Add(1)
	ctxlog.FromContext(ctx).Warn("uncontrolled project access")
	c.bus.Publish(event.NewUncontrolledAccessEvent())
	return action(ctx)
}

// Close makes every pending and future lock request fail with a
// CancelledError. Locks already held stay held until their actions return.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.broadcastLocked()
	return nil
}

// acquireProject takes the lock of id. A nested request comes from a caller
// that already holds another project lock; global priority does not hold it
// back, since the all-projects waiter is itself waiting for that caller.
func (c *Coordinator) acquireProject(ctx context.Context, id buildid.Project, nested bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	waiting := false
	defer func() {
		if waiting {
			c.projectWaiters--
		}
	}()

	for {
		if c.closed {
			return errors.NewCancelledError(id.String(), ErrClosed)
		}
		_, busy := c.locked[id]
		if !busy && !c.allLocked && !(c.globalPriority && c.allWaiters > 0 && !nested) {
			break
		}
		if !waiting {
			waiting = true
			c.projectWaiters++
		}
		if err := c.waitLocked(ctx); err != nil {
			return errors.NewCancelledError(id.String(), err)
		}
	}

	c.locked[id] = struct{}{}
	return nil
}

func (c *Coordinator) releaseProject(id buildid.Project) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locked, id)
	c.broadcastLocked()
}

func (c *Coordinator) acquireAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	waiting := false
	defer func() {
		if waiting {
			c.allWaiters--
			// Project requests held back for this waiter may proceed now.
			c.broadcastLocked()
		}
	}()

	for {
		if c.closed {
			return errors.NewCancelledError(event.AllProjects, ErrClosed)
		}
		if !c.allLocked && len(c.locked) == 0 {
			break
		}
		if !waiting {
			waiting = true
			c.allWaiters++
		}
		if err := c.waitLocked(ctx); err != nil {
			return errors.NewCancelledError(event.AllProjects, err)
		}
	}

	c.allLocked = true
	return nil
}

func (c *Coordinator) releaseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allLocked = false
	c.broadcastLocked()
}

// waitLocked blocks until the lock table changes or ctx is done. c.mu must be
// held; it is released while waiting and held again on return.
func (c *Coordinator) waitLocked(ctx context.Context) error {
	changed := c.changed
	c.mu.Unlock()
	defer c.mu.Lock()

	select {
	case <-changed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) broadcastLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// Snapshot is a point-in-time copy of the lock table.
type Snapshot struct {
	Locked               []string `json:"locked"`
	AllLocked            bool     `json:"all_locked"`
	ProjectWaiters       int      `json:"project_waiters"`
	AllWaiters           int      `json:"all_waiters"`
	UncontrolledAccesses int64    `json:"uncontrolled_accesses"`
}

// Snapshot returns the current lock table. Locked is sorted.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	s := Snapshot{
		Locked:         make([]string, 0, len(c.locked)),
		AllLocked:      c.allLocked,
		ProjectWaiters: c.projectWaiters,
		AllWaiters:     c.allWaiters,
	}
	for id := range c.locked {
		s.Locked = append(s.Locked, id.String())
	}
	c.mu.Unlock()

	sort.Strings(s.Locked)
	s.UncontrolledAccesses = c.uncontrolled.Load()
	return s
}

// String summarises the lock table for logs.
func (s Snapshot) String() string {
	return fmt.Sprintf("locked=%v all=%t waiting(project=%d all=%d) uncontrolled=%d",
		s.Locked, s.AllLocked, s.ProjectWaiters, s.AllWaiters, s.UncontrolledAccesses)
}
