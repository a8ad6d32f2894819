// Package worker drains queued prediction records into the journal.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/winprob/internal/adapters/repository"
	"github.com/okian/winprob/pkg/logger"
	"github.com/okian/winprob/pkg/metrics"
)

const (
	defaultWorkerCount    = 1
	workerShutdownTimeout = 5 * time.Second
)

// Appender persists a record.
type Appender interface {
	Append(ctx context.Context, r repository.Record) (repository.Record, error)
}

// Queue defines how workers receive records.
type Queue interface {
	Dequeue(ctx context.Context) <-chan repository.Record
}

// Worker moves records from a queue into a store.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue Queue
	store Appender
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, store Appender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		store:    store,
		name:     "journal-writer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)

	return w
}

// Run processes records until the queue is closed and drained.
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
				w.logger.Error(ctx, "journal append failed", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for the current record to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, r repository.Record) error { //nolint:gocritic // hugeParam: Record is passed by value for channel semantics
	if _, err := w.store.Append(ctx, r); err != nil {
		metrics.RecordJournalError()
		metrics.RecordErrorByType("journal_error", "medium")
		return fmt.Errorf("append record %s: %w", r.ID, err)
	}
	return nil
}

// Pool manages multiple journal writers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount writers.
func NewPool(workerCount int, queue Queue, store Appender, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	tmpl := &InMemoryWorker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(tmpl)
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  tmpl.logger.Named("journal-writers"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("journal-writer-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, store, workerOpts...)
	}

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue so writers drain what is buffered, then waits
// for them up to the context deadline.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, workerShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "journal writer shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("journal writers did not drain: %w", shutdownCtx.Err())
		}
	}
	return nil
}
