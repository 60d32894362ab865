// Package worker runs planning units through a processor and hands the
// results to a sink.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tofo/internal/domain/model"
	"github.com/okian/tofo/pkg/logger"
	"github.com/okian/tofo/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Unit is what workers read off the queue.
type Unit = model.Unit

// Processor predicts and evaluates the events of one unit.
type Processor interface {
	Process(ctx context.Context, u Unit) (model.UnitResult, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, u Unit) (model.UnitResult, error)

func (f ProcessorFunc) Process(ctx context.Context, u Unit) (model.UnitResult, error) {
	return f(ctx, u)
}

// Sink receives each unit's outcome. It must be safe for concurrent use.
type Sink interface {
	Collect(ctx context.Context, u Unit, r model.UnitResult, err error)
}

// Queue defines how workers receive units.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Unit
}

// Worker processes units until the queue drains or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current unit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	sink      Sink
	name      string
	busy      *atomic.Int32

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, processor Processor, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		sink:      sink,
		name:      "worker",
		busy:      &atomic.Int32{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. Cancellation is checked between units, so a
// unit that has started always reaches the sink.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	units := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case u, ok := <-units:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			w.processUnit(ctx, u)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown signals the worker to stop and waits for it.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) processUnit(ctx context.Context, u Unit) {
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.busy.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.busy.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	res, err := w.processor.Process(ctx, u)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "process_error")
		name := ""
		if u.Target != nil {
			name = u.Target.Name
		}
		w.logger.Warn(ctx, "unit failed",
			logger.String("plan_id", u.PlanID),
			logger.String("target", name),
			logger.Error(err),
		)
	}
	w.sink.Collect(ctx, u, res, err)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	busy    atomic.Int32
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers; values below one use runtime.NumCPU().
func NewPool(workerCount int, queue Queue, processor Processor, sink Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range workerCount {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, processor, sink, wopts...)
		p.workers[i].busy = &p.busy
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has returned, which happens once the queue
// is closed and drained or the run context is cancelled.
func (p *Pool) Wait(ctx context.Context) error {
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Shutdown closes the queue and stops every worker.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
