// Package worker persists queued checkpoint reads.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/pkg/logger"
	"github.com/okian/racetime/pkg/metrics"
)

const (
	defaultWorkerCount  = 4
	poolShutdownTimeout = 30 * time.Second
	workerStopTimeout   = time.Second
)

// Recorder stores a read and reports whether it was new.
type Recorder interface {
	RecordRead(ctx context.Context, read model.CheckpointRead) (bool, error)
}

// Queue defines how workers receive reads.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.CheckpointRead
}

// Worker drains a queue into a Recorder.
type Worker interface {
	// Run processes reads until the queue is closed and drained, ctx is
	// canceled, or Stop is called.
	Run(ctx context.Context)
	Stop(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	name     string
	busy     *atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		recorder: recorder,
		name:     "worker",
		busy:     &atomic.Int64{},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	reads := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case r, ok := <-reads:
			if !ok {
				return
			}
			w.busy.Add(1)
			if err := w.process(ctx, r); err != nil {
				w.logger.Error(ctx, "persisting read failed",
					logger.String("race", r.RaceID),
					logger.String("reader", r.Reader),
					logger.String("tag", r.TagID.String()),
					logger.Error(err),
				)
			}
			w.busy.Add(-1)
		}
	}
}

// Stop asks the worker to return after its current read.
func (w *InMemoryWorker) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stop) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop %s: %w", w.name, ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, r model.CheckpointRead) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	stored, err := w.recorder.RecordRead(ctx, r)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "record_read")
		return fmt.Errorf("record read %s: %w", r.Key(), err)
	}
	if stored {
		metrics.RecordReadStored()
	} else {
		metrics.RecordReadIgnored()
		w.logger.Debug(ctx, "read already recorded", logger.String("key", r.Key()))
	}
	return nil
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	busy    atomic.Int64
	started atomic.Bool

	stopTicker chan struct{}
	tickerDone chan struct{}
	logger     logger.Logger
}

// NewPool creates a pool of workerCount workers.
func NewPool(workerCount int, q Queue, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers:    make([]*InMemoryWorker, workerCount),
		queue:      q,
		stopTicker: make(chan struct{}),
		tickerDone: make(chan struct{}),
		logger:     logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		w := NewInMemoryWorker(q, recorder, WithName("worker-"+strconv.Itoa(i)))
		w.busy = &p.busy
		p.workers[i] = w
	}
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker and the utilization reporter.
func (p *Pool) Start(ctx context.Context, reportEvery time.Duration) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.report(ctx, reportEvery)
}

func (p *Pool) report(ctx context.Context, every time.Duration) {
	defer close(p.tickerDone)
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopTicker:
			return
		case <-ticker.C:
			busy := int(p.busy.Load())
			metrics.UpdateWorkerActiveCount(busy)
			metrics.UpdateWorkerIdleCount(len(p.workers) - busy)
		}
	}
}

// Shutdown closes the queue and waits for the workers to drain it. Workers
// still running when ctx (or the pool's own timeout) expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started.Load() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			stopCtx, stopCancel := context.WithTimeout(context.Background(), workerStopTimeout)
			if err := w.Stop(stopCtx); err != nil && firstErr == nil {
				firstErr = err
			}
			stopCancel()
			p.logger.Warn(ctx, "worker did not drain in time", logger.String("worker", w.name))
		}
	}

	close(p.stopTicker)
	<-p.tickerDone
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(0)
	return firstErr
}
