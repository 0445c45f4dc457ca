// Package executor runs a per-project workload over a build tree on a bounded
// pool of workers. Every job takes the lock of the project it works on; a
// summary job per round takes the all-projects lock and competes with them.
package executor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/specialistvlad/buildtree/internal/buildtree"
	"github.com/specialistvlad/buildtree/internal/ctxlog"
	"github.com/specialistvlad/buildtree/internal/project"
	"github.com/zclconf/go-cty/cty"
)

// Property names written by the summary job on each build's root project.
const (
	PropertyLastRound    = "last_round"
	PropertyProjectCount = "project_count"
)

// Executor applies an Action to every project of a tree.
type Executor struct {
	tree    *buildtree.Tree
	workers int
	action  Action
}

// Stats summarises a run.
type Stats struct {
	Rounds   int
	Jobs     int64
	Failed   int64
	Duration time.Duration
}

// New creates an Executor running at most workers jobs at once.
func New(tree *buildtree.Tree, workers int, action Action) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{tree: tree, workers: workers, action: action}
}

// Run executes the given number of rounds, stopping at the first round that
// fails. The returned error joins every job error of that round.
func (e *Executor) Run(ctx context.Context, rounds int) (Stats, error) {
	logger := ctxlog.FromContext(ctx)
	stats := Stats{}
	start := time.Now()

	for round := 1; round <= rounds; round++ {
		jobs, failed, err := e.runRound(ctx, round)
		stats.Rounds = round
		stats.Jobs += jobs
		stats.Failed += failed
		if err != nil {
			logger.Error("Round failed.", "round", round, "failed_jobs", failed, "error", err)
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("round %d: %w", round, err)
		}
	}
	stats.Duration = time.Since(start)
	logger.Info("All rounds finished.", "rounds", stats.Rounds, "jobs", stats.Jobs, "duration", stats.Duration)
	return stats, nil
}

// runRound schedules one job per project plus the summary job and waits for
// all of them.
func (e *Executor) runRound(ctx context.Context, round int) (jobs, failed int64, err error) {
	logger := ctxlog.FromContext(ctx).With("round", round)
	projects := e.tree.AllProjects(ctx)
	logger.Info("Round started.", "projects", len(projects), "workers", e.workers)

	var done, errs atomic.Int64
	p := pool.New().WithMaxGoroutines(e.workers).WithErrors().WithContext(ctx)

	for i, st := range projects {
		workerCtx := ctxlog.With(ctx, "round", round, "job", i, "project", st.String())
		p.Go(func(context.Context) error {
			done.Add(1)
			err := e.tree.WithProjectLock(workerCtx, st.ID(), func(ctx context.Context, s *project.State) error {
				return e.action(ctx, s)
			})
			if err != nil {
				errs.Add(1)
				ctxlog.FromContext(workerCtx).Error("Project job failed.", "error", err)
				return fmt.Errorf("project %s: %w", st, err)
			}
			ctxlog.FromContext(workerCtx).Debug("Project job succeeded.")
			return nil
		})
	}

	p.Go(func(context.Context) error {
		done.Add(1)
		if err := e.summarise(ctx, round); err != nil {
			errs.Add(1)
			return fmt.Errorf("summary: %w", err)
		}
		return nil
	})

	err = p.Wait()
	logger.Info("Round finished.", "jobs", done.Load(), "failed", errs.Load())
	return done.Load(), errs.Load(), err
}

// summarise records the round and project count on every build's root
// project. It holds the all-projects lock so the counts are consistent.
func (e *Executor) summarise(ctx context.Context, round int) error {
	return e.tree.WithAllProjectsLock(ctx, func(ctx context.Context) error {
		for _, build := range e.tree.Builds(ctx) {
			reg, err := e.tree.ProjectsFor(ctx, build.ID())
			if err != nil {
				return err
			}
			root := reg.RootProject()
			if root == nil {
				continue
			}
			root.Properties().Set(PropertyLastRound, cty.NumberIntVal(int64(round)))
			root.Properties().Set(PropertyProjectCount, cty.NumberIntVal(int64(reg.Len())))
		}
		ctxlog.FromContext(ctx).Debug("Round summary recorded.", "round", round)
		return nil
	})
}
