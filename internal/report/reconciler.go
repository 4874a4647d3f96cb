package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/report-service/internal/domain"
)

const (
	defaultReconcileInterval = 30 * time.Second
	defaultGracePeriod       = 2 * time.Minute
	defaultReconcileBatch    = 100
)

// ReconcilerOptions holds Reconciler dependencies
type ReconcilerOptions struct {
	Jobs           JobRepository
	Queue          Enqueuer
	Logger         *slog.Logger
	Now            func() time.Time
	Interval       time.Duration
	GracePeriod    time.Duration
	BatchSize      int
	EnqueueTimeout time.Duration
}

// Reconciler resubmits jobs that are still Pending a grace period after they
// were requested. A submission lost between the job row and the queue is
// picked up here; duplicates are harmless because Execute skips finished jobs.
type Reconciler struct {
	jobs           JobRepository
	queue          Enqueuer
	logger         *slog.Logger
	now            func() time.Time
	interval       time.Duration
	gracePeriod    time.Duration
	batchSize      int
	enqueueTimeout time.Duration
}

func NewReconciler(opts ReconcilerOptions) *Reconciler {
	r := &Reconciler{
		jobs:           opts.Jobs,
		queue:          opts.Queue,
		logger:         opts.Logger,
		now:            opts.Now,
		interval:       opts.Interval,
		gracePeriod:    opts.GracePeriod,
		batchSize:      opts.BatchSize,
		enqueueTimeout: opts.EnqueueTimeout,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.interval <= 0 {
		r.interval = defaultReconcileInterval
	}
	if r.gracePeriod <= 0 {
		r.gracePeriod = defaultGracePeriod
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultReconcileBatch
	}
	if r.enqueueTimeout <= 0 {
		r.enqueueTimeout = defaultEnqueueTimeout
	}
	return r
}

// Run reconciles once immediately and then on every interval until ctx ends.
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.Info("Pending job reconciler started",
		slog.Duration("interval", r.interval),
		slog.Duration("grace_period", r.gracePeriod),
		slog.Int("batch_size", r.batchSize),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.ReconcileOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("Failed to reconcile pending jobs", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			r.logger.Info("Pending job reconciler stopped")
			return
		case <-ticker.C:
		}
	}
}

// ReconcileOnce resubmits up to one batch of Pending jobs requested before
// now minus the grace period and returns how many were submitted. The pass
// stops at the first failed submission.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.gracePeriod).UTC()
	filter := domain.JobFilter{
		Status:   domain.StatusPending,
		PageSize: r.batchSize,
		// keyset start just after every job requested at or before cutoff
		Cursor: &domain.JobCursor{RequestedAt: cutoff, JobID: uuid.Max},
	}

	jobs, err := r.jobs.ListJobs(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	if len(jobs) > r.batchSize {
		jobs = jobs[:r.batchSize]
	}

	submitted := 0
	for _, job := range jobs {
		enqueueCtx, cancel := context.WithTimeout(ctx, r.enqueueTimeout)
		err := r.queue.Enqueue(enqueueCtx, job.ID)
		cancel()
		if err != nil {
			return submitted, fmt.Errorf("failed to resubmit job %s: %w", job.ID, err)
		}

		r.logger.Warn("Resubmitted stale pending job",
			slog.String("job_id", job.ID.String()),
			slog.Time("requested_at", job.RequestedAt),
		)
		submitted++
	}

	if submitted > 0 {
		r.logger.Info("Pending jobs reconciled", slog.Int("resubmitted", submitted))
	}
	return submitted, nil
}
