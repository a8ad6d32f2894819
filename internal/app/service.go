// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/okian/winprob/internal/adapters/mq/queue"
	workerpool "github.com/okian/winprob/internal/adapters/mq/worker"
	"github.com/okian/winprob/internal/adapters/repository"
	"github.com/okian/winprob/internal/domain/classifier"
	"github.com/okian/winprob/internal/domain/match"
	"github.com/okian/winprob/internal/domain/prediction"
	"github.com/okian/winprob/internal/domain/types"
	"github.com/okian/winprob/pkg/logger"
	"github.com/okian/winprob/pkg/metrics"
)

// Health status values.
const (
	StatusHealthy  = types.StatusHealthy
	StatusDegraded = types.StatusDegraded
)

// ErrNotStarted is returned by read operations before Start.
var ErrNotStarted = errors.New("service not started")

// Health is the readiness report served on /health.
type Health = types.Health

// Service implements the API dependencies for the prediction system.
type Service struct {
	mu sync.RWMutex

	// Core components
	classifier   classifier.Classifier
	orchestrator *prediction.Orchestrator
	journal      repository.Store
	journalQueue *eventqueue.InMemoryQueue
	writers      *workerpool.Pool
	cacheStats   func() any

	// Configuration
	backend          string
	batchWorkers     int
	journalWriters   int
	journalQueueSize int

	// State
	started  bool
	outcomes [3]atomic.Uint64 // indexed by prediction.Kind

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithClassifier sets the classifier shared by every prediction.
func WithClassifier(c classifier.Classifier) Option {
	return func(s *Service) {
		s.classifier = c
	}
}

// WithBackendName labels the classifier in stats and logs.
func WithBackendName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.backend = name
		}
	}
}

// WithJournal sets the store predictions are journaled to. The service
// closes it on Stop.
func WithJournal(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.journal = store
		}
	}
}

// WithJournalWriters sets the number of journal writer goroutines.
func WithJournalWriters(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.journalWriters = n
		}
	}
}

// WithJournalQueueSize sets how many records may wait for the writers.
func WithJournalQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.journalQueueSize = n
		}
	}
}

// WithBatchWorkers bounds the concurrency of PredictBatch.
func WithBatchWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchWorkers = n
		}
	}
}

// WithCacheStats exposes prediction cache statistics through GetStats.
func WithCacheStats(fn func() any) Option {
	return func(s *Service) {
		s.cacheStats = fn
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		backend:          "custom",
		batchWorkers:     runtime.NumCPU(),
		journalWriters:   1,
		journalQueueSize: 4096,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.orchestrator = prediction.New(s.classifier, prediction.WithLogger(s.logger))
	return s
}

// Start initializes the journal and its writers. Predict works without
// Start but nothing is journaled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.orchestrator = prediction.New(s.classifier, prediction.WithLogger(s.logger.Named("prediction")))

	s.logger.Info(ctx, "starting prediction service...")

	if s.journal == nil {
		s.journal = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory journal")
	}
	s.journalQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.journalQueueSize))
	s.writers = workerpool.NewPool(s.journalWriters, s.journalQueue, s.journal, workerpool.WithLogger(s.logger))
	// Writers outlive the request context; Stop drains them.
	s.writers.Start(context.WithoutCancel(ctx))

	health := s.healthLocked(ctx)

	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.String("backend", s.backend),
		logger.String("status", health.Status),
		logger.Int("batchWorkers", s.batchWorkers),
		logger.Int("journalWriters", s.journalWriters),
	)

	return nil
}

// Stop drains pending journal writes and closes the journal.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping prediction service...")

	if s.writers != nil {
		if err := s.writers.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "journal writers did not drain", logger.Error(err))
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn(ctx, "error closing journal", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "prediction service stopped")
}

// Predict evaluates one match state, records metrics and journals the
// outcome. It never fails; faults are reported inside the Outcome.
func (s *Service) Predict(ctx context.Context, st match.State) prediction.Outcome {
	s.mu.RLock()
	orch := s.orchestrator
	q := s.journalQueue
	started := s.started
	s.mu.RUnlock()

	start := time.Now()
	out := orch.Predict(ctx, st)
	latency := time.Since(start)

	s.outcomes[out.Kind].Add(1)
	_ = metrics.RecordPrediction(out.Kind.String(), float64(latency.Microseconds())/1000)
	if out.OK() {
		metrics.ObserveWinProbability(out.Result.BattingWinProbability)
	}

	if started && q != nil {
		rec := repository.NewRecord(logger.RequestID(ctx), st, out, latency)
		if !q.Enqueue(ctx, rec) {
			s.logger.Debug(ctx, "journal queue full, record dropped")
		}
	}

	return out
}

// PredictBatch evaluates states concurrently with at most batchWorkers in
// flight. Outcomes are returned in input order.
func (s *Service) PredictBatch(ctx context.Context, states []match.State) []prediction.Outcome {
	out := make([]prediction.Outcome, len(states))
	if len(states) == 0 {
		return out
	}

	workers := s.batchWorkers
	if workers > len(states) {
		workers = len(states)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				out[idx] = s.Predict(ctx, states[idx])
			}
		}()
	}

	for i := range states {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}

// Health reports whether the classifier is loaded and ready.
func (s *Service) Health(ctx context.Context) Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthLocked(ctx)
}

func (s *Service) healthLocked(ctx context.Context) Health {
	if s.classifier == nil {
		metrics.SetModelLoaded(false)
		return Health{Status: StatusDegraded, ModelLoaded: false}
	}
	if err := classifier.Check(ctx, s.classifier); err != nil {
		if s.logger != nil {
			s.logger.Warn(ctx, "classifier health check failed", logger.Error(err))
		}
		metrics.SetModelLoaded(false)
		return Health{Status: StatusDegraded, ModelLoaded: true}
	}
	metrics.SetModelLoaded(true)
	return Health{Status: StatusHealthy, ModelLoaded: true}
}

// Recent returns the newest journaled records.
func (s *Service) Recent(ctx context.Context, n int) ([]repository.Record, error) {
	s.mu.RLock()
	journal := s.journal
	started := s.started
	s.mu.RUnlock()

	if !started || journal == nil {
		return nil, ErrNotStarted
	}
	return journal.Recent(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"backend":      s.backend,
		"batchWorkers": s.batchWorkers,
		"predictions": map[string]uint64{
			prediction.Success.String():     s.outcomes[prediction.Success].Load(),
			prediction.SoftFailure.String(): s.outcomes[prediction.SoftFailure].Load(),
			prediction.HardFailure.String(): s.outcomes[prediction.HardFailure].Load(),
		},
	}

	if s.started {
		records := s.journal.Count(ctx)
		queued := s.journalQueue.Len(ctx)
		stats["journalRecords"] = records
		stats["journalQueueLength"] = queued
		metrics.UpdateJournalRecords(records)
	}
	if s.cacheStats != nil {
		stats["cache"] = s.cacheStats()
	}

	return stats
}
