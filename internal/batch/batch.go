// Package batch renders the jobs of a manifest in parallel.
package batch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roboco-io/slabrender/internal/compositor"
	"github.com/roboco-io/slabrender/internal/job"
)

// Outcome is the result of one job. Exactly one of Result and Err is set.
type Outcome struct {
	Job      job.Job
	Result   *compositor.Result
	Err      error
	Started  time.Time
	Finished time.Time
}

// Observer is notified after each job finishes. It may be called from
// several goroutines at once.
type Observer func(Outcome)

// Runner executes jobs with bounded parallelism.
type Runner struct {
	compositor  *compositor.Compositor
	concurrency int
	logger      *zap.Logger
	observer    Observer
}

// NewRunner creates a runner. concurrency below 1 is treated as 1.
func NewRunner(c *compositor.Compositor, concurrency int, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		compositor:  c,
		concurrency: max(concurrency, 1),
		logger:      logger,
	}
}

// OnDone registers an observer for finished jobs.
func (r *Runner) OnDone(fn Observer) {
	r.observer = fn
}

// Run renders every job in m. Jobs are independent: a failed job does not
// stop the others. Cancelling ctx skips jobs that have not started yet;
// running jobs finish. Outcomes are returned in manifest order together with
// the combined error of all failed jobs.
func (r *Runner) Run(ctx context.Context, m *job.Manifest) ([]Outcome, error) {
	outcomes := make([]Outcome, len(m.Jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, j := range m.Jobs {
		outcomes[i].Job = j
		if gctx.Err() != nil {
			outcomes[i].Err = fmt.Errorf("job %s skipped: %w", j.ID, gctx.Err())
			continue
		}

		i, j := i, j
		g.Go(func() error {
			outcomes[i] = r.runOne(gctx, m, j)
			if r.observer != nil {
				r.observer(outcomes[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = multierr.Append(errs, o.Err)
		}
	}
	return outcomes, errs
}

func (r *Runner) runOne(ctx context.Context, m *job.Manifest, j job.Job) Outcome {
	out := Outcome{Job: j, Started: time.Now()}

	if err := ctx.Err(); err != nil {
		out.Err = fmt.Errorf("job %s skipped: %w", j.ID, err)
		out.Finished = time.Now()
		return out
	}

	strategy, err := m.ResolveStrategy(j, r.compositor.Options().Strategy)
	if err != nil {
		out.Err = fmt.Errorf("job %s: %w", j.ID, err)
		out.Finished = time.Now()
		return out
	}

	log := r.logger.With(zap.String("job", j.ID))
	log.Debug("job started", zap.Stringer("strategy", strategy))

	res, err := r.compositor.WithStrategy(strategy).Render(j.Request)
	out.Finished = time.Now()
	if err != nil {
		out.Err = fmt.Errorf("job %s: %w", j.ID, err)
		log.Warn("job failed", zap.Error(err))
		return out
	}
	out.Result = res
	log.Debug("job finished", zap.Duration("elapsed", res.Elapsed))
	return out
}
