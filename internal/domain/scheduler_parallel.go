package domain

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"mutate.dev/pkg/mutate/internal/adapter"
	m "mutate.dev/pkg/mutate/internal/model"
)

type parallelOutcome struct {
	result    EvaluationResult
	err       error
	cancelled bool
}

type parallelJob struct {
	patch m.Patch
	done  chan parallelOutcome
}

// ParallelScheduler evaluates patches on a fixed pool of workers, each owning
// a private WorkerContext. Results are persisted by the coordinating
// goroutine in the order the patches were polled.
type ParallelScheduler struct {
	schedulerBase

	fsAdapter adapter.SourceFSAdapter
	workers   int
}

// NewParallelScheduler constructs a ParallelScheduler with the given number of
// workers (at least one).
func NewParallelScheduler(
	store adapter.Store,
	evaluator PatchEvaluator,
	fsAdapter adapter.SourceFSAdapter,
	workers int,
	opts ...SchedulerOption,
) *ParallelScheduler {
	if workers < 1 {
		workers = 1
	}

	return &ParallelScheduler{
		schedulerBase: newSchedulerBase(store, evaluator, opts),
		fsAdapter:     fsAdapter,
		workers:       workers,
	}
}

// Start implements Scheduler.
func (p *ParallelScheduler) Start(ctx context.Context) bool {
	return p.start(ctx, p.loop)
}

func (p *ParallelScheduler) loop(ctx context.Context) {
	// Evaluations and writes outlive cancellation of ctx; ctx only stops
	// dispatching.
	workCtx := context.WithoutCancel(ctx)
	jobs := make(chan parallelJob)

	var group errgroup.Group

	for id := range p.workers {
		group.Go(func() error {
			p.worker(workCtx, id, jobs)
			return nil
		})
	}

	defer func() {
		close(jobs)
		_ = group.Wait()
	}()

	slog.Info("Parallel scheduler started", "workers", p.workers)

	for !p.stopped(ctx) {
		patches, err := p.poll(workCtx)
		if err != nil || len(patches) == 0 {
			break
		}

		p.runBatch(ctx, workCtx, jobs, patches)
	}

	slog.Info("Parallel scheduler finished")
}

func (p *ParallelScheduler) runBatch(ctx, workCtx context.Context, jobs chan<- parallelJob, patches []m.Patch) {
	batch := make([]parallelJob, len(patches))
	for i, patch := range patches {
		batch[i] = parallelJob{patch: patch, done: make(chan parallelOutcome, 1)}
	}

	go p.dispatch(ctx, jobs, batch)

	for _, job := range batch {
		outcome := <-job.done
		if outcome.cancelled {
			continue
		}

		if err := p.persist(workCtx, job.patch, outcome.result, outcome.err, false); err != nil {
			p.Stop()
		}
	}
}

// dispatch hands jobs to the pool in order. Jobs not handed out before a stop
// are resolved as cancelled.
func (p *ParallelScheduler) dispatch(ctx context.Context, jobs chan<- parallelJob, batch []parallelJob) {
	stop := p.stopChan()

	for _, job := range batch {
		if p.stopped(ctx) {
			job.done <- parallelOutcome{cancelled: true}
			continue
		}

		select {
		case jobs <- job:
		case <-stop:
			job.done <- parallelOutcome{cancelled: true}
		case <-ctx.Done():
			job.done <- parallelOutcome{cancelled: true}
		}
	}
}

func (p *ParallelScheduler) worker(ctx context.Context, id int, jobs <-chan parallelJob) {
	var wc *WorkerContext

	defer func() {
		if wc != nil {
			wc.Close(ctx)
		}
	}()

	for job := range jobs {
		if wc == nil {
			created, err := NewWorkerContext(ctx, p.fsAdapter, p.metrics)
			if err != nil {
				job.done <- parallelOutcome{err: err}
				continue
			}

			wc = created
			slog.Debug("Worker workspace created", "worker", id, "dir", wc.Dir())
		}

		result, err := p.evaluator.Evaluate(ctx, wc, job.patch, nil)
		if err != nil {
			wc.Invalidate()
		}

		job.done <- parallelOutcome{result: result, err: err}
	}
}
