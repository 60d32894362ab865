// Package queue carries planning units from a session to its workers.
//
// The in-memory implementation is a bounded channel; a session creates one
// per plan and closes it once every unit is enqueued.
package queue

import (
	"context"
	"sync"

	"github.com/okian/tofo/internal/domain/model"
	"github.com/okian/tofo/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
)

// Unit represents the payload type flowing through the queue.
type Unit = model.Unit

// Queue provides enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a unit without blocking.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, u Unit) bool

	// EnqueueWait adds a unit, waiting for space until ctx is done.
	EnqueueWait(ctx context.Context, u Unit) error

	// Dequeue returns a channel that will receive units as they become available.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Unit

	// Len returns the current number of queued units.
	Len(ctx context.Context) int

	// Close stops accepting units; queued units are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	units    chan Unit
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.units = make(chan Unit, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a unit to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, u Unit) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.units <- u:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.units))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// EnqueueWait adds a unit, blocking while the queue is full.
func (q *InMemoryQueue) EnqueueWait(ctx context.Context, u Unit) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return ErrClosed
	}

	select {
	case q.units <- u:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.units))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	}
}

// Dequeue returns a channel that will receive units as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Unit {
	out := make(chan Unit)
	go func() {
		defer close(out)
		for u := range q.units {
			select {
			case out <- u:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.units))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued units.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.units)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops the queue from accepting new units.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.units)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
