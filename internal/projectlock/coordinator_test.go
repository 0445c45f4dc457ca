package projectlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/buildtree/internal/buildid"
	"github.com/specialistvlad/buildtree/internal/ctxlog"
	"github.com/specialistvlad/buildtree/internal/errors"
	"github.com/specialistvlad/buildtree/internal/event"
	"github.com/specialistvlad/buildtree/internal/inmemoryprojects"
	"github.com/specialistvlad/buildtree/internal/project"
	"github.com/specialistvlad/buildtree/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// setup registers the given project paths in the root build and returns a
// coordinator over them together with their identifiers.
func setup(t *testing.T, paths []string, opts ...Option) (*Coordinator, []buildid.Project) {
	t.Helper()
	store := inmemoryprojects.New()
	build := project.NewBuildState(buildid.RootBuild, "")

	ids := make([]buildid.Project, 0, len(paths))
	for _, p := range paths {
		st, err := store.RegisterProject(context.Background(), build, &project.Descriptor{Path: buildid.MustParsePath(p)})
		require.NoError(t, err)
		ids = append(ids, st.ID())
	}
	return New(store, opts...), ids
}

func TestWithProjectLock_MutualExclusion(t *testing.T) {
	c, ids := setup(t, []string{":app"})
	ctx := context.Background()

	const workers = 16
	const iterations = 50

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				err := c.WithProjectLock(ctx, ids[0], func(_ context.Context, s *project.State) error {
					n := inside.Add(1)
					if n > maxInside.Load() {
						maxInside.Store(n)
					}
					v, ok := s.Properties().Get("counter")
					if !ok {
						v = cty.NumberIntVal(0)
					}
					s.Properties().Set("counter", v.Add(cty.NumberIntVal(1)))
					inside.Add(-1)
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInside.Load())

	st, err := c.store.StateFor(ctx, ids[0])
	require.NoError(t, err)
	counter, _ := st.Properties().Get("counter")
	total, _ := counter.AsBigFloat().Int64()
	assert.EqualValues(t, workers*iterations, total)
	assert.Equal(t, Snapshot{Locked: []string{}}, c.Snapshot())
}

func TestDistinctProjectsDoNotBlockEachOther(t *testing.T) {
	c, ids := setup(t, []string{":app", ":lib"})
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = c.WithProjectLock(ctx, ids[0], func(context.Context, *project.State) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	done := make(chan error, 1)
	go func() {
		done <- c.WithProjectLock(ctx, ids[1], func(context.Context, *project.State) error { return nil })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal(":lib blocked behind :app")
	}
	assert.Equal(t, []string{":app"}, c.Snapshot().Locked)
	close(release)
}

func TestGlobalExclusivity(t *testing.T) {
	c, ids := setup(t, []string{":", ":app", ":lib", ":util"})
	ctx := context.Background()

	var projectsActive, globalActive, violations atomic.Int32
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 40; i++ {
				if (w+i)%5 == 0 {
					err := c.WithAllProjectsLock(ctx, func(context.Context) error {
						globalActive.Add(1)
						if projectsActive.Load() != 0 {
							violations.Add(1)
						}
						time.Sleep(100 * time.Microsecond)
						globalActive.Add(-1)
						return nil
					})
					assert.NoError(t, err)
					continue
				}
				err := c.WithProjectLock(ctx, ids[(w+i)%len(ids)], func(context.Context, *project.State) error {
					projectsActive.Add(1)
					if globalActive.Load() != 0 {
						violations.Add(1)
					}
					time.Sleep(100 * time.Microsecond)
					projectsActive.Add(-1)
					return nil
				})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	assert.Zero(t, violations.Load())
	snap := c.Snapshot()
	assert.False(t, snap.AllLocked)
	assert.Empty(t, snap.Locked)
	assert.Zero(t, snap.ProjectWaiters)
	assert.Zero(t, snap.AllWaiters)
}

func TestLiveness(t *testing.T) {
	for _, opts := range [][]Option{nil, {WithGlobalPriority()}} {
		c, ids := setup(t, []string{":app"}, opts...)
		ctx := context.Background()

		const workers = 12
		done := make(chan struct{})
		go func() {
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 20; i++ {
						_ = c.WithProjectLock(ctx, ids[0], func(context.Context, *project.State) error {
							time.Sleep(50 * time.Microsecond)
							return nil
						})
					}
				}()
			}
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatalf("workers did not finish; lock table: %s", c.Snapshot())
		}
	}
}

func TestAllProjectsLockWaitsForHeldProject(t *testing.T) {
	c, ids := setup(t, []string{":app", ":lib"})
	ctx := context.Background()
	app, lib := ids[0], ids[1]

	rec := testutil.NewRecorder()
	t1Holding := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := c.WithProjectLock(ctx, app, func(context.Context, *project.State) error {
			rec.Run("t1", func() {
				close(t1Holding)
				time.Sleep(100 * time.Millisecond)
			})
			return nil
		})
		assert.NoError(t, err)
	}()
	<-t1Holding

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := c.WithAllProjectsLock(ctx, func(context.Context) error {
			rec.Sleep("t2", 10*time.Millisecond)
			return nil
		})
		assert.NoError(t, err)
	}()
	wg.Wait()

	t1 := rec.Records("t1")
	t2 := rec.Records("t2")
	require.Len(t, t1, 1)
	require.Len(t, t2, 1)
	assert.False(t, t2[0].Start.Before(t1[0].End), "all-projects action started before :app was released")
	assert.GreaterOrEqual(t, t2[0].Start.Sub(t1[0].Start), 100*time.Millisecond)

	// Once the global lock is gone nothing is left blocking.
	start := time.Now()
	err := c.WithProjectLock(ctx, lib, func(context.Context, *project.State) error { return nil })
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestProjectLockWaitsForAllProjectsLock(t *testing.T) {
	c, ids := setup(t, []string{":app"})
	ctx := context.Background()

	rec := testutil.NewRecorder()
	holding := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.WithAllProjectsLock(ctx, func(context.Context) error {
			rec.Run("global", func() {
				close(holding)
				time.Sleep(50 * time.Millisecond)
			})
			return nil
		})
	}()
	<-holding

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.WithProjectLock(ctx, ids[0], func(context.Context, *project.State) error {
			rec.Sleep("project", time.Millisecond)
			return nil
		})
	}()
	wg.Wait()

	global := rec.Records("global")[0]
	proj := rec.Records("project")[0]
	assert.False(t, global.Overlaps(proj))
	assert.False(t, proj.Start.Before(global.End))
}

func TestCancelledWait(t *testing.T) {
	c, ids := setup(t, []string{":app"})
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = c.WithProjectLock(ctx, ids[0], func(context.Context, *project.State) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	ran := false
	err := c.WithProjectLock(waitCtx, ids[0], func(context.Context, *project.State) error {
		ran = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, ran)

	var cancelled *errors.CancelledError
	require.True(t, errors.As(err, &cancelled))
	assert.Equal(t, ":app", cancelled.Lock)

	snap := c.Snapshot()
	assert.Zero(t, snap.ProjectWaiters, "a cancelled waiter must not stay counted")
	assert.Equal(t, []string{":app"}, snap.Locked)

	close(release)
	require.Eventually(t, func() bool { return len(c.Snapshot().Locked) == 0 }, time.Second, time.Millisecond)
}

func TestCancelledAllProjectsWaitUnblocksPrioritisedProjects(t *testing.T) {
	c, ids := setup(t, []string{":app", ":lib"}, WithGlobalPriority())
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = c.WithProjectLock(ctx, ids[0], func(context.Context, *project.State) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	globalCtx, cancelGlobal := context.WithCancel(ctx)
	globalErr := make(chan error, 1)
	go func() {
		globalErr <- c.WithAllProjectsLock(globalCtx, func(context.Context) error { return nil })
	}()
	require.Eventually(t, func() bool { return c.Snapshot().AllWaiters == 1 }, time.Second, time.Millisecond)

	libErr := make(chan error, 1)
	go func() {
		libErr <- c.WithProjectLock(ctx, ids[1], func(context.Context, *project.State) error { return nil })
	}()
	require.Eventually(t, func() bool { return c.Snapshot().ProjectWaiters == 1 }, time.Second, time.Millisecond)

	cancelGlobal()
	assert.True(t, errors.Is(<-globalErr, context.Canceled))

	select {
	case err := <-libErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal(":lib stayed blocked after the all-projects waiter gave up")
	}
}

func TestGlobalPriorityPreventsStarvation(t *testing.T) {
	c, ids := setup(t, []string{":a", ":b"}, WithGlobalPriority())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two workers keep the project locks overlapping so that, without
	// priority, the locked set would never be empty.
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id buildid.Project) {
			defer wg.Done()
			for ctx.Err() == nil {
				_ = c.WithProjectLock(ctx, id, func(context.Context, *project.State) error {
					time.Sleep(2 * time.Millisecond)
					return nil
				})
			}
		}(id)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.WithAllProjectsLock(context.Background(), func(context.Context) error { return nil })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("all-projects request starved")
	}
	cancel()
	wg.Wait()
}

func TestLockReleasedOnPanic(t *testing.T) {
	c, ids := setup(t, []string{":app"})
	ctx := context.Background()

	assert.PanicsWithValue(t, "boom", func() {
		_ = c.WithProjectLock(ctx, ids[0], func(context.Context, *project.State) error {
			panic("boom")
		})
	})
	assert.Empty(t, c.Snapshot().Locked)

	assert.PanicsWithValue(t, "global boom", func() {
		_ = c.WithAllProjectsLock(ctx, func(context.Context) error {
			panic("global boom")
		})
	})
	assert.False(t, c.Snapshot().AllLocked)

	require.NoError(t, c.WithAllProjectsLock(ctx, func(context.Context) error { return nil }))
}

func TestActionErrorIsReturnedUnchanged(t *testing.T) {
	c, ids := setup(t, []string{":app"})
	ctx := context.Background()
	sentinel := errors.New("action failed")

	err := c.WithProjectLock(ctx, ids[0], func(context.Context, *project.State) error { return sentinel })
	assert.Same(t, sentinel, err)
	assert.Empty(t, c.Snapshot().Locked)

	err = c.WithAllProjectsLock(ctx, func(context.Context) error { return sentinel })
	assert.Same(t, sentinel, err)
	assert.False(t, c.Snapshot().AllLocked)
}

func TestUnknownProject(t *testing.T) {
	c, _ := setup(t, []string{":app"})
	ran := false
	err := c.WithProjectLock(context.Background(), buildid.NewProject(buildid.RootBuild, buildid.MustParsePath(":ghost")),
		func(context.Context, *project.State) error {
			ran = true
			return nil
		})
	assert.True(t, errors.IsNotFound(err))
	assert.False(t, ran)
	assert.Empty(t, c.Snapshot().Locked)
}

func TestReentrantRequestsFailFast(t *testing.T) {
	c, ids := setup(t, []string{":app", ":lib"})
	ctx := context.Background()
	app, lib := ids[0], ids[1]

	t.Run("same project", func(t *testing.T) {
		err := c.WithProjectLock(ctx, app, func(ctx context.Context, _ *project.State) error {
			return c.WithProjectLock(ctx, app, func(context.Context, *project.State) error { return nil })
		})
		assert.True(t, errors.Is(err, errors.ErrReentrantLock))
	})

	t.Run("all projects while holding a project", func(t *testing.T) {
		err := c.WithProjectLock(ctx, app, func(ctx context.Context, _ *project.State) error {
			return c.WithAllProjectsLock(ctx, func(context.Context) error { return nil })
		})
		var re *errors.ReentrantLockError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, event.AllProjects, re.Requested)
		assert.Equal(t, ":app", re.Held)
	})

	t.Run("project while holding all projects", func(t *testing.T) {
		err := c.WithAllProjectsLock(ctx, func(ctx context.Context) error {
			return c.WithProjectLock(ctx, lib, func(context.Context, *project.State) error { return nil })
		})
		assert.True(t, errors.Is(err, errors.ErrReentrantLock))
	})

	t.Run("distinct projects nest", func(t *testing.T) {
		err := c.WithProjectLock(ctx, app, func(ctx context.Context, _ *project.State) error {
			return c.WithProjectLock(ctx, lib, func(context.Context, *project.State) error {
				assert.Equal(t, []string{":app", ":lib"}, c.Snapshot().Locked)
				return nil
			})
		})
		assert.NoError(t, err)
	})

	t.Run("outer context is not recognised", func(t *testing.T) {
		outer, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		err := c.WithProjectLock(ctx, app, func(context.Context, *project.State) error {
			return c.WithProjectLock(outer, app, func(context.Context, *project.State) error { return nil })
		})
		assert.True(t, errors.Is(err, errors.ErrCancelled), "got %v", err)
		assert.False(t, errors.Is(err, errors.ErrReentrantLock))
	})

	t.Run("other coordinators are independent", func(t *testing.T) {
		other, otherIDs := setup(t, []string{":app"})
		err := c.WithAllProjectsLock(ctx, func(ctx context.Context) error {
			return other.WithProjectLock(ctx, otherIDs[0], func(context.Context, *project.State) error { return nil })
		})
		assert.NoError(t, err)
	})

	assert.Equal(t, Snapshot{Locked: []string{}}, c.Snapshot())
}

func TestGlobalPriority_NestedProjectLockIsNotHeldBack(t *testing.T) {
	c, ids := setup(t, []string{":app", ":lib"}, WithGlobalPriority())
	ctx := context.Background()
	app, lib := ids[0], ids[1]

	allDone := make(chan error, 1)
	err := c.WithProjectLock(ctx, app, func(ctx context.Context, _ *project.State) error {
		go func() {
			allDone <- c.WithAllProjectsLock(context.Background(), func(context.Context) error { return nil })
		}()
		require.Eventually(t, func() bool { return c.Snapshot().AllWaiters == 1 }, time.Second, time.Millisecond)

		nestedCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return c.WithProjectLock(nestedCtx, lib, func(context.Context, *project.State) error {
			assert.Equal(t, []string{":app", ":lib"}, c.Snapshot().Locked)
			return nil
		})
	})
	require.NoError(t, err, "a nested lock on another project must not wait for the all-projects request")

	select {
	case err := <-allDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("all-projects request never granted")
	}

	// Nothing outlives the callbacks.
	assert.Equal(t, Snapshot{Locked: []string{}}, c.Snapshot())
}

func TestClose(t *testing.T) {
	c, ids := setup(t, []string{":app"})
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	holderErr := make(chan error, 1)
	go func() {
		holderErr <- c.WithProjectLock(ctx, ids[0], func(context.Context, *project.State) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	waiterErr := make(chan error, 1)
	go func() {
		waiterErr <- c.WithProjectLock(ctx, ids[0], func(context.Context, *project.State) error { return nil })
	}()
	require.Eventually(t, func() bool { return c.Snapshot().ProjectWaiters == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Close())
	err := <-waiterErr
	assert.True(t, errors.IsCancelled(err))
	assert.True(t, errors.Is(err, ErrClosed))

	err = c.WithAllProjectsLock(ctx, func(context.Context) error { return nil })
	assert.True(t, errors.Is(err, ErrClosed))

	close(release)
	assert.NoError(t, <-holderErr, "a lock held before Close is released normally")
	assert.Empty(t, c.Snapshot().Locked)
	assert.NoError(t, c.Close(), "closing twice is harmless")
}

func TestUncontrolledAccess(t *testing.T) {
	c, ids := setup(t, []string{":app"})
	logger, logs := testutil.NewLogger(t)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	bus := event.NewBus()
	c.bus = bus
	published := 0
	bus.Subscribe(event.TypeLockUncontrolled, func(event.Event) { published++ })

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = c.WithAllProjectsLock(ctx, func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	// The escape hatch ignores the lock table entirely, even under the global lock.
	name, err := AllowUncontrolledAccess(ctx, c, func(ctx context.Context) (string, error) {
		st, err := c.store.StateFor(ctx, ids[0])
		if err != nil {
			return "", err
		}
		return st.Name(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "app", name)

	sentinel := errors.New("legacy failure")
	err = c.AllowUncontrolledAccessToAnyProject(ctx, func(context.Context) error { return sentinel })
	assert.Same(t, sentinel, err)

	assert.EqualValues(t, 2, c.Snapshot().UncontrolledAccesses)
	assert.Equal(t, 2, published)
	testutil.AssertLogged(t, logs, "level=WARN", "uncontrolled project access")
}

func TestGenericHelpers(t *testing.T) {
	c, ids := setup(t, []string{":app", ":lib"})
	ctx := context.Background()

	name, err := WithProject(ctx, c, ids[1], func(_ context.Context, s *project.State) (string, error) {
		return s.Name(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "lib", name)

	count, err := WithAllProjects(ctx, c, func(ctx context.Context) (int, error) {
		return len(c.store.AllProjects(ctx)), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	sentinel := errors.New("nope")
	n, err := WithProject(ctx, c, ids[0], func(context.Context, *project.State) (int, error) { return 7, sentinel })
	assert.Same(t, sentinel, err)
	assert.Equal(t, 7, n)
}

func TestLockEventsArePublished(t *testing.T) {
	bus := event.NewBus()
	c, ids := setup(t, []string{":app"}, WithEventBus(bus))

	var mu sync.Mutex
	var seen []string
	bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.EventType()+" "+e.(event.LockEvent).Target)
	})

	ctx := context.Background()
	require.NoError(t, c.WithProjectLock(ctx, ids[0], func(context.Context, *project.State) error { return nil }))
	require.NoError(t, c.WithAllProjectsLock(ctx, func(context.Context) error { return nil }))

	assert.Equal(t, []string{
		"lock.acquired :app",
		"lock.released :app",
		"lock.acquired all projects",
		"lock.released all projects",
	}, seen)
}
