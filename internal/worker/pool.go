package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/report-service/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

// spawnWorkerPool starts N worker goroutines under g
func (w *Worker) spawnWorkerPool(ctx context.Context, g *errgroup.Group) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		workerNum := i
		g.Go(func() error {
			w.workerLoop(ctx, workerNum)
			return nil
		})
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg := <-w.jobsChan:
			w.logger.Info("Worker received job",
				slog.String("worker_name", workerName),
				slog.String("job_id", msg.jobID.String()),
				slog.Uint64("delivery_tag", msg.delivery.DeliveryTag),
			)

			err := w.runner.Run(ctx, msg.jobID)
			w.settle(workerName, msg, err)
		}
	}
}

// settle acknowledges the delivery once the job reached a persisted outcome
// and requeues it otherwise.
func (w *Worker) settle(workerName string, msg jobMessage, err error) {
	jobID := msg.jobID.String()

	if ack, reason := shouldAck(err); ack {
		if ackErr := msg.delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK message",
				slog.String("worker_name", workerName),
				slog.String("job_id", jobID),
				slog.Any("error", ackErr),
			)
			return
		}
		w.logger.Info("Message ACKed",
			slog.String("worker_name", workerName),
			slog.String("job_id", jobID),
			slog.String("outcome", reason),
		)
		return
	}

	requeue := shouldRequeueJob(err)
	if nackErr := msg.delivery.Nack(false, requeue); nackErr != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("worker_name", workerName),
			slog.String("job_id", jobID),
			slog.Any("error", nackErr),
		)
		return
	}
	w.logger.Warn("Message NACKed",
		slog.String("worker_name", workerName),
		slog.String("job_id", jobID),
		slog.Bool("requeue", requeue),
		slog.Any("error", err),
	)
}

// shouldAck reports whether the runner left the job in a state that needs no
// further delivery.
func shouldAck(err error) (bool, string) {
	if err == nil {
		return true, "done"
	}

	var exhausted *scheduler.ExhaustedError
	if errors.As(err, &exhausted) && exhausted.Recorded {
		return true, "failed"
	}

	return false, ""
}

// shouldRequeueJob determines if a job should be requeued based on the error type
func shouldRequeueJob(err error) bool {
	// the terminal failure was not written, another delivery will retry it
	var exhausted *scheduler.ExhaustedError
	if errors.As(err, &exhausted) {
		return !exhausted.Recorded
	}

	// interrupted by shutdown
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return false
}
