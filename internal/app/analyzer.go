package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/mq/queue"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/mq/worker"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/config"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/correlate"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/ranking"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/reconcile"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/logger"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/metrics"
)

// ReasonCancelled is the failure reason of datasets that were not analysed
// because the run was cancelled.
const ReasonCancelled = "analysis cancelled"

// Analyzer runs one analysis per call. It holds no results between calls
// and is safe for concurrent use.
type Analyzer struct {
	workers    int
	maxSources int
	logger     logger.Logger
	now        func() time.Time

	mu    sync.Mutex
	pools map[*worker.Pool]struct{}
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithWorkers sets the number of workers per run.
func WithWorkers(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithMaxSources bounds the number of comparison datasets per run.
func WithMaxSources(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxSources = n
		}
	}
}

// WithAnalyzerLogger sets the analyzer logger.
func WithAnalyzerLogger(l logger.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithAnalyzerClock sets the clock used for ResultSet.CreatedAt.
func WithAnalyzerClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		workers: runtime.NumCPU(),
		logger:  logger.Named("analyzer"),
		now:     time.Now,
		pools:   make(map[*worker.Pool]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Workers returns the configured worker count.
func (a *Analyzer) Workers() int { return a.workers }

// partial is what one task produced for its comparison dataset.
type partial struct {
	done     bool
	err      error
	records  int
	entry    []model.Correlation
	exit     []model.Correlation
	complete []model.CompleteMatch
}

// runHandler fills one slot per task. Slots are only read after every
// worker has returned.
type runHandler struct {
	primary    []model.EventRecord
	maxMinutes int
	slots      []partial
}

func (h *runHandler) Handle(ctx context.Context, t queue.Task) error {
	recs, err := t.Source.Records(ctx)
	if err != nil {
		return err
	}
	entry := correlate.Correlate(h.primary, recs, model.Entry, h.maxMinutes)
	exit := correlate.Correlate(h.primary, recs, model.Exit, h.maxMinutes)
	h.slots[t.Index] = partial{
		done:     true,
		records:  len(recs),
		entry:    entry,
		exit:     exit,
		complete: reconcile.Reconcile(entry, exit),
	}
	return nil
}

func (h *runHandler) Failed(_ context.Context, t queue.Task, err error) {
	h.slots[t.Index] = partial{done: true, err: err}
}

// Analyze correlates primary against every comparison dataset and returns
// the ranked results. A dataset that fails to load or panics becomes a
// PerFileFailure and the run continues. When ctx is done, datasets not yet
// analysed are reported as cancelled and the partial results are returned
// together with ctx.Err().
func (a *Analyzer) Analyze(
	ctx context.Context,
	primary []model.EventRecord,
	comparisons []model.Source,
	maxMinutes int,
) (model.ResultSet, []model.PerFileFailure, error) {
	start := time.Now()
	if !config.ValidMaxMinutes(maxMinutes) {
		metrics.RecordAnalysis(metrics.OutcomeRejected, 0)
		return model.ResultSet{}, nil, fmt.Errorf("%w: %d not in [%d, %d]",
			ErrInvalidMaxMinutes, maxMinutes, config.MinAllowedMinutes, config.MaxAllowedMinutes)
	}
	if a.maxSources > 0 && len(comparisons) > a.maxSources {
		metrics.RecordAnalysis(metrics.OutcomeRejected, 0)
		return model.ResultSet{}, nil, fmt.Errorf("%w: %d > %d", ErrTooManySources, len(comparisons), a.maxSources)
	}

	runID := uuid.NewString()
	h := &runHandler{
		primary:    primary,
		maxMinutes: maxMinutes,
		slots:      make([]partial, len(comparisons)),
	}
	processed := a.dispatch(ctx, runID, h, comparisons)

	rs, failures := a.merge(runID, maxMinutes, h.slots, comparisons)
	elapsed := time.Since(start)

	err := ctx.Err()
	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(context.Cause(ctx), ErrSuperseded):
		outcome = metrics.OutcomeSuperseded
	case err != nil:
		outcome = metrics.OutcomeCancelled
	}
	metrics.RecordAnalysis(outcome, float64(elapsed.Milliseconds()))
	for _, c := range model.Categories {
		metrics.RecordCorrelations(c.String(), rs.Len(c))
	}

	a.logger.Info(ctx, "analysis finished",
		logger.String("run_id", runID),
		logger.String("outcome", outcome),
		logger.Int("max_minutes", maxMinutes),
		logger.Int("primary_records", len(primary)),
		logger.Int("comparisons", len(comparisons)),
		logger.Int("processed", int(processed)),
		logger.Int("entry", len(rs.Entry)),
		logger.Int("exit", len(rs.Exit)),
		logger.Int("complete", len(rs.Complete)),
		logger.Int("failures", len(failures)),
		logger.Duration("took", elapsed),
	)
	return rs, failures, err
}

// dispatch runs the tasks of one analysis on a dedicated queue and pool,
// returns once every worker has stopped and reports how many tasks the
// workers took.
func (a *Analyzer) dispatch(ctx context.Context, runID string, h *runHandler, comparisons []model.Source) int64 {
	if len(comparisons) == 0 {
		return 0
	}
	q := queue.NewInMemoryQueue(queue.WithCapacity(len(comparisons)))
	workers := min(a.workers, len(comparisons))
	pool := worker.NewPool(workers, q, h, worker.WithLogger(a.logger.Named(runID)))
	a.track(pool)
	defer a.untrack(pool)
	pool.Start(ctx)

	for i, src := range comparisons {
		if ctx.Err() != nil {
			break
		}
		if err := q.Enqueue(ctx, queue.Task{Index: i, Source: src}); err != nil {
			// Unqueued datasets of a cancelled or shut down run are
			// reported as cancelled.
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				break
			}
			h.slots[i] = partial{done: true, err: err}
		}
	}
	a.logger.Debug(ctx, "tasks queued",
		logger.String("run_id", runID),
		logger.Int("pending", q.Len(ctx)),
		logger.Int("workers", pool.Size()),
	)
	if err := q.Close(); err != nil {
		a.logger.Warn(ctx, "closing task queue", logger.Error(err))
	}
	pool.Wait()
	return pool.Processed()
}

func (a *Analyzer) track(p *worker.Pool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pools[p] = struct{}{}
}

func (a *Analyzer) untrack(p *worker.Pool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pools, p)
}

// Shutdown closes the task queues of the runs in flight and waits for their
// workers to finish the tasks already queued, or for ctx to expire.
func (a *Analyzer) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	pools := make([]*worker.Pool, 0, len(a.pools))
	for p := range a.pools {
		pools = append(pools, p)
	}
	a.mu.Unlock()

	var errs []error
	for _, p := range pools {
		if err := p.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// merge folds the slots into one ResultSet in comparison order and ranks
// each bucket once.
func (a *Analyzer) merge(runID string, maxMinutes int, slots []partial, comparisons []model.Source) (model.ResultSet, []model.PerFileFailure) {
	rs := model.ResultSet{
		RunID:      runID,
		CreatedAt:  a.now(),
		MaxMinutes: maxMinutes,
	}
	failures := []model.PerFileFailure{}
	for i, p := range slots {
		name := comparisons[i].Name()
		switch {
		case !p.done || cancelled(p.err):
			failures = append(failures, model.PerFileFailure{File: name, Reason: ReasonCancelled})
		case p.err != nil:
			metrics.RecordFileFailure()
			failures = append(failures, model.PerFileFailure{File: name, Reason: p.err.Error()})
		default:
			metrics.RecordFileProcessed(p.records)
			rs.Entry = append(rs.Entry, p.entry...)
			rs.Exit = append(rs.Exit, p.exit...)
			rs.Complete = append(rs.Complete, p.complete...)
		}
	}
	return ranking.RankResultSet(rs), failures
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
