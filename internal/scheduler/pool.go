package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrQueueFull is returned when the pool cannot accept a task within the enqueue wait
	ErrQueueFull = errors.New("job queue is full")

	// ErrPoolStopped is returned when enqueueing into a pool that has been stopped
	ErrPoolStopped = errors.New("job pool is stopped")
)

// JobRunner runs one queued task to completion.
type JobRunner interface {
	Run(ctx context.Context, jobID uuid.UUID) error
}

// PoolConfig holds in-memory pool configuration
type PoolConfig struct {
	Logger      *slog.Logger
	Runner      JobRunner
	Concurrency int
	QueueSize   int
	EnqueueWait time.Duration
}

// Pool is an in-process scheduler: a bounded queue drained by a fixed number
// of goroutines. Queued tasks do not survive a restart.
// A job id is held at most once, from Enqueue until its run returns.
type Pool struct {
	logger      *slog.Logger
	runner      JobRunner
	concurrency int
	enqueueWait time.Duration
	jobsChan    chan uuid.UUID
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once

	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

func NewPool(cfg PoolConfig) *Pool {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = concurrency * 10
	}
	enqueueWait := cfg.EnqueueWait
	if enqueueWait <= 0 {
		enqueueWait = time.Second
	}

	return &Pool{
		logger:      cfg.Logger,
		runner:      cfg.Runner,
		concurrency: concurrency,
		enqueueWait: enqueueWait,
		jobsChan:    make(chan uuid.UUID, queueSize),
		stopChan:    make(chan struct{}),
		active:      make(map[uuid.UUID]struct{}),
	}
}

// Start spawns the worker goroutines. ctx is handed to every task run.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Spawning worker pool",
		slog.Int("concurrency", p.concurrency),
		slog.Int("queue_size", cap(p.jobsChan)),
	)

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, i)
	}
}

// Enqueue hands jobID to the pool, waiting at most the configured enqueue wait.
// A job that is already queued or running is not queued again.
func (p *Pool) Enqueue(ctx context.Context, jobID uuid.UUID) error {
	select {
	case <-p.stopChan:
		return ErrPoolStopped
	default:
	}

	if !p.claim(jobID) {
		p.logger.Debug("Job already queued, skipping",
			slog.String("job_id", jobID.String()),
		)
		return nil
	}

	timer := time.NewTimer(p.enqueueWait)
	defer timer.Stop()

	select {
	case p.jobsChan <- jobID:
		p.logger.Debug("Job enqueued",
			slog.String("job_id", jobID.String()),
			slog.Int("queued", len(p.jobsChan)),
		)
		return nil
	case <-p.stopChan:
		p.release(jobID)
		return ErrPoolStopped
	case <-timer.C:
		p.release(jobID)
		return fmt.Errorf("%w: waited %s", ErrQueueFull, p.enqueueWait)
	case <-ctx.Done():
		p.release(jobID)
		return ctx.Err()
	}
}

func (p *Pool) claim(jobID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.active[jobID]; ok {
		return false
	}
	p.active[jobID] = struct{}{}
	return true
}

func (p *Pool) release(jobID uuid.UUID) {
	p.mu.Lock()
	delete(p.active, jobID)
	p.mu.Unlock()
}

// Stop stops taking tasks and waits for running ones to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping worker pool...")
		close(p.stopChan)
	})
	p.wg.Wait()

	if dropped := len(p.jobsChan); dropped > 0 {
		p.logger.Warn("Worker pool stopped with queued jobs",
			slog.Int("dropped", dropped),
		)
	}
	p.logger.Info("Worker pool stopped")
}

func (p *Pool) workerLoop(ctx context.Context, workerNum int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		case jobID := <-p.jobsChan:
			p.logger.Info("Worker received job",
				slog.Int("worker_num", workerNum),
				slog.String("job_id", jobID.String()),
			)

			err := p.runner.Run(ctx, jobID)
			p.release(jobID)
			if err != nil {
				p.logger.Error("Job processing failed",
					slog.Int("worker_num", workerNum),
					slog.String("job_id", jobID.String()),
					slog.Any("error", err),
				)
				continue
			}

			p.logger.Info("Job completed successfully",
				slog.Int("worker_num", workerNum),
				slog.String("job_id", jobID.String()),
			)
		}
	}
}
