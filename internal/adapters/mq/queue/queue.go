// Package queue carries attempt records from request handlers to the audit
// writers.
//
// Enqueue never blocks a request: a full or closed queue reports an error
// and the record is dropped.
package queue

import (
	"context"
	"sync"

	"github.com/okian/phonoecho/internal/domain/model"
	"github.com/okian/phonoecho/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Record is the payload flowing through the queue.
type Record = model.AttemptRecord

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a record to the queue. It fails with ErrFull or ErrClosed
	// instead of blocking.
	Enqueue(ctx context.Context, r Record) error

	// Dequeue returns a channel that will receive records as they become available.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Record

	// Len returns the current number of queued records.
	Len(ctx context.Context) int

	// Close stops accepting records. Already queued records stay readable.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	records  chan Record
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.records = make(chan Record, q.capacity)
	metrics.UpdateAuditQueueSize(0)
	return q
}

// Enqueue adds a record to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Record) error { //nolint:gocritic // hugeParam: Record is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordAuditEnqueueError()
		return ErrClosed
	}

	select {
	case q.records <- r:
		metrics.UpdateAuditQueueSize(len(q.records))
		return nil
	case <-ctx.Done():
		metrics.RecordAuditEnqueueError()
		return ctx.Err()
	default:
		metrics.RecordAuditEnqueueError()
		return ErrFull
	}
}

// Dequeue returns a channel that will receive records as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Record {
	out := make(chan Record)
	go func() {
		defer close(out)
		for r := range q.records {
			select {
			case out <- r:
				metrics.UpdateAuditQueueSize(len(q.records))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued records.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.records)
	metrics.UpdateAuditQueueSize(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.records)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
