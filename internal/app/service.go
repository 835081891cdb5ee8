// Package service wires the store, read queue and worker pool together and
// exposes the race operations used by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/racetime/internal/adapters/mq/queue"
	"github.com/okian/racetime/internal/adapters/mq/worker"
	"github.com/okian/racetime/internal/adapters/repository"
	"github.com/okian/racetime/internal/domain/dedupe"
	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/results"
	"github.com/okian/racetime/pkg/logger"
	"github.com/okian/racetime/pkg/metrics"
)

const workerReportInterval = time.Second

// Service implements the API dependencies for the results engine.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	deduper dedupe.Deduper
	queue   queue.Queue
	pool    *worker.Pool

	readers         model.Readers
	workerCount     int
	queueSize       int
	dedupeSize      int
	maxRaceDuration time.Duration
	fetchTimeout    time.Duration

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithReaders sets the start and finish reader identities.
func WithReaders(readers model.Readers) Option {
	return func(s *Service) {
		if readers.Start != "" && readers.Finish != "" {
			s.readers = readers
		}
	}
}

// WithWorkerCount sets the number of workers persisting reads.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the read queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxRaceDuration sets the bound above which a result is flagged.
func WithMaxRaceDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxRaceDuration = d
		}
	}
}

// WithFetchTimeout bounds the store fetches of one results computation.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		readers:         model.Readers{Start: "192.168.10.1", Finish: "192.168.10.2"},
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       10_000,
		dedupeSize:      100_000,
		maxRaceDuration: results.DefaultMaxDuration,
		fetchTimeout:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start creates the queue and worker pool. It is a no-op when already started.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting results service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "no store configured, using memory store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store)

	// Workers outlive the request that started the service.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx, workerReportInterval)

	s.started = true
	s.logger.Info(ctx, "results service started",
		logger.String("startReader", s.readers.Start),
		logger.String("finishReader", s.readers.Finish),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains queued reads into the store and closes it.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping results service...")

	var firstErr error
	if err := s.pool.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("shutdown workers: %w", err)
	}
	s.cancel()
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close store: %w", err)
	}

	s.started = false
	s.logger.Info(ctx, "results service stopped")
	return firstErr
}

// Readers returns the configured reader identities.
func (s *Service) Readers() model.Readers { return s.readers }

// running returns the store when the service is started.
func (s *Service) running() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// intake is the ingestion side of a started service.
type intake struct {
	deduper dedupe.Deduper
	queue   queue.Queue
}

// ingesting returns the deduper and queue of the current run. A later
// Stop and Start swaps both, so callers must not reread the fields.
func (s *Service) ingesting() (intake, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return intake{}, ErrNotStarted
	}
	return intake{deduper: s.deduper, queue: s.queue}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"startReader":  s.readers.Start,
		"finishReader": s.readers.Finish,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
	}
	if s.started {
		stats["queueLength"] = s.queue.Len()
		stats["dedupeEntries"] = s.deduper.Size()
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}
