package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cuongbtq/report-service/internal/scheduler"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

// ErrDeliveriesClosed is returned by Start when the broker closes the delivery channel
var ErrDeliveriesClosed = errors.New("rabbitmq delivery channel closed")

// Source is the broker side of the worker. *rabbitmq.Client satisfies it.
type Source interface {
	Qos(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Source        Source
	Runner        scheduler.JobRunner
	Concurrency   int
	PrefetchCount int
	WorkerID      string
	QueueName     string
}

// Worker consumes job ids from RabbitMQ and runs them through a JobRunner
type Worker struct {
	logger        *slog.Logger
	source        Source
	runner        scheduler.JobRunner
	concurrency   int
	prefetchCount int
	workerID      string
	queueName     string
	jobsChan      chan jobMessage
	stopChan      chan struct{}
	stopOnce      sync.Once
	started       atomic.Bool
	done          chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}
	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = "report-worker"
	}

	return &Worker{
		logger:        cfg.Logger,
		source:        cfg.Source,
		runner:        cfg.Runner,
		concurrency:   concurrency,
		prefetchCount: prefetch,
		workerID:      workerID,
		queueName:     cfg.QueueName,
		jobsChan:      make(chan jobMessage),
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start consumes deliveries until ctx is canceled, Stop is called or the
// broker closes the delivery channel. It blocks until every worker goroutine
// has returned.
func (w *Worker) Start(ctx context.Context) error {
	w.started.Store(true)
	defer close(w.done)

	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	w.spawnWorkerPool(gctx, g)
	g.Go(func() error {
		return w.startMessageDispatcher(gctx, deliveries)
	})

	err = g.Wait()
	w.logger.Info("Worker context canceled, stopped consuming",
		slog.String("worker_id", w.workerID),
	)
	return err
}

// Stop gracefully stops the worker. In-flight jobs see their context canceled
// and their messages are requeued.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	if w.started.Load() {
		<-w.done
	}
	w.logger.Info("Worker stopped")
}
