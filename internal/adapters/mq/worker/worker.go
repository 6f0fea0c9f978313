// Package worker drains the audit queue into the attempt log.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/phonoecho/internal/adapters/mq/queue"
	"github.com/okian/phonoecho/pkg/logger"
	"github.com/okian/phonoecho/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 2
	writeTimeout        = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Record is what workers read off the queue.
type Record = queue.Record

// Writer persists attempt records.
type Writer interface {
	Append(ctx context.Context, r Record) error
}

// Queue defines how workers receive records.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Record
}

// Worker writes queued records.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	writer Writer
	name   string

	written atomic.Int64
	failed  atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, w Writer, opts ...Option) *InMemoryWorker {
	wk := &InMemoryWorker{
		queue:    q,
		writer:   w,
		name:     "audit-worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("audit-worker"),
	}
	for _, opt := range opts {
		opt(wk)
	}
	if wk.name != "audit-worker" {
		wk.logger = wk.logger.Named(wk.name)
	}
	return wk
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	records := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-records:
			if !ok {
				return
			}
			if err := w.process(ctx, r); err != nil {
				w.logger.Error(ctx, "error writing attempt record", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Written returns how many records this worker persisted.
func (w *InMemoryWorker) Written() int64 { return w.written.Load() }

// Failed returns how many records this worker could not persist.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, r Record) error { //nolint:gocritic // hugeParam: Record is passed by value for channel semantics
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := w.writer.Append(wctx, r); err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		return fmt.Errorf("append attempt %s: %w", r.ID, err)
	}
	w.written.Add(1)
	metrics.RecordAuditWritten()
	w.logger.Debug(ctx, "attempt recorded",
		logger.String("id", r.ID),
		logger.String("user", r.User),
		logger.Int("lesson", r.Lesson),
	)
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, w Writer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("audit-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("audit-worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, w, wopts...)
	}
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, wk := range p.workers {
		go wk.Run(ctx)
	}
}

// Run starts the workers and blocks until all of them have exited.
func (p *Pool) Run(ctx context.Context) error {
	p.Start(ctx)
	for _, wk := range p.workers {
		<-wk.done
	}
	return nil
}

// Written sums the records persisted by all workers.
func (p *Pool) Written() int64 {
	var n int64
	for _, wk := range p.workers {
		n += wk.Written()
	}
	return n
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, wk := range p.workers {
		select {
		case <-wk.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}
