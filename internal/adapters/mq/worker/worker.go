// Package worker runs analysis tasks taken from a queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/mq/queue"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/logger"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/metrics"
)

const metricsUpdateInterval = 5 * time.Second

// Handler processes tasks. Failed is called with the error of a task whose
// Handle returned an error or panicked.
type Handler interface {
	Handle(ctx context.Context, t queue.Task) error
	Failed(ctx context.Context, t queue.Task, err error)
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Task
}

// InMemoryWorker pulls tasks from a Queue and hands them to a Handler.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string
	logger  logger.Logger

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	processed *atomic.Int64
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, h Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		handler:   h,
		name:      "worker",
		logger:    logger.Named("worker"),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		processed: new(atomic.Int64),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run handles tasks until the queue channel closes, ctx is done or the
// worker is stopped. Tasks received after either are not handled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			if ctx.Err() != nil || w.stopped() {
				return
			}
			w.process(ctx, t)
		}
	}
}

// stop makes Run return after the task in progress.
func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

func (w *InMemoryWorker) stopped() bool {
	select {
	case <-w.shutdown:
		return true
	default:
		return false
	}
}

func (w *InMemoryWorker) process(ctx context.Context, t queue.Task) {
	start := time.Now()
	err := w.safeHandle(ctx, t)
	metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	w.processed.Add(1)

	if err == nil {
		return
	}
	kind := "task_error"
	if errors.Is(err, ErrTaskPanicked) {
		kind = "panic"
	}
	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", kind)
	w.logger.Error(ctx, "task failed",
		logger.Int("index", t.Index),
		logger.String("source", sourceName(t)),
		logger.Error(err),
	)
	w.handler.Failed(ctx, t, err)
}

func (w *InMemoryWorker) safeHandle(ctx context.Context, t queue.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return w.handler.Handle(ctx, t)
}

func sourceName(t queue.Task) string {
	if t.Source == nil {
		return ""
	}
	return t.Source.Name()
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64
	shutdown  chan struct{}
	stopOnce  sync.Once
	logger    logger.Logger
}

// NewPool creates workerCount workers. Values below 1 use runtime.NumCPU.
func NewPool(workerCount int, q Queue, h Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, h, wopts...)
		w.processed = &p.processed
		p.workers[i] = w
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of tasks handled so far.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start runs every worker in its own goroutine.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
	go p.startMetricsUpdater(ctx)
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	for _, w := range p.workers {
		<-w.done
	}
	p.stopOnce.Do(func() { close(p.shutdown) })
	metrics.UpdateWorkerActiveCount(0)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	last := time.Now()
	var lastCount int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case now := <-ticker.C:
			count := p.processed.Load()
			if secs := now.Sub(last).Seconds(); secs > 0 {
				metrics.UpdateWorkerTasksPerSecond(float64(count-lastCount) / secs)
			}
			last, lastCount = now, count
		}
	}
}

// Shutdown closes the queue when it supports Close, then waits for the
// workers to drain it. When ctx expires first, every worker is told to stop
// after its current task and ctx.Err() is returned without waiting further.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			for _, rest := range p.workers {
				rest.stop()
			}
			p.stopOnce.Do(func() { close(p.shutdown) })
			return fmt.Errorf("pool shutdown: %w", ctx.Err())
		}
	}
	p.stopOnce.Do(func() { close(p.shutdown) })
	metrics.UpdateWorkerActiveCount(0)
	return nil
}
