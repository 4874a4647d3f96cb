package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cuongbtq/report-service/internal/artifact"
	"github.com/cuongbtq/report-service/internal/domain"
)

const (
	failureReasonPrefix = "report generation failed: "
	maxFailureReasonLen = 512
	cleanupTimeout      = 5 * time.Second
)

// OrchestratorOptions holds Orchestrator dependencies
type OrchestratorOptions struct {
	Jobs     JobRepository
	Fetcher  RateFetcher
	Renderer Renderer
	Store    artifact.Store
	Logger   *slog.Logger
	Now      func() time.Time
}

// Orchestrator drives one job through fetch, render and save. It knows
// nothing about retries: every failed step is returned to the caller.
type Orchestrator struct {
	jobs     JobRepository
	fetcher  RateFetcher
	renderer Renderer
	store    artifact.Store
	logger   *slog.Logger
	now      func() time.Time
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		jobs:     opts.Jobs,
		fetcher:  opts.Fetcher,
		renderer: opts.Renderer,
		store:    opts.Store,
		logger:   opts.Logger,
		now:      now,
	}
}

// Execute runs one attempt for jobID. Unknown and already finished jobs are
// skipped without error.
func (o *Orchestrator) Execute(ctx context.Context, jobID uuid.UUID) error {
	logger := o.logger.With(slog.String("job_id", jobID.String()))

	job, err := o.jobs.GetByID(ctx, jobID)
	if errors.Is(err, domain.ErrJobNotFound) {
		logger.Warn("Job not found, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if job.Status.IsTerminal() {
		logger.Info("Job already finished, skipping", slog.String("status", job.Status.String()))
		return nil
	}

	processing, err := job.StartProcessing()
	if err != nil {
		return err
	}
	if err := o.jobs.UpdateStatus(ctx, processing); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			logger.Info("Job finished by another execution, skipping")
			return nil
		}
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	logger.Info("Generating report", slog.String("target_date", job.TargetDate.Format(time.DateOnly)))

	rates, err := o.fetcher.FetchTodayRates(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch exchange rates: %w", err)
	}

	data, err := o.renderer.Render(domain.RateReport{Date: job.TargetDate, Rates: rates})
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	locator, err := o.store.Save(ctx, jobID, data)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	completed, err := processing.Complete(locator, o.now())
	if err != nil {
		o.discardArtifact(ctx, jobID, locator)
		return err
	}

	if err := o.jobs.UpdateStatus(ctx, completed); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			logger.Warn("Job finished by another execution, keeping its outcome")
			return nil
		}
		o.discardArtifact(ctx, jobID, locator)
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	logger.Info("Report generated",
		slog.String("locator", locator),
		slog.Int("rates", len(rates)),
		slog.Int("size", len(data)),
	)

	return nil
}

// Fail records that every attempt for jobID failed with cause.
func (o *Orchestrator) Fail(ctx context.Context, jobID uuid.UUID, cause error) error {
	logger := o.logger.With(slog.String("job_id", jobID.String()))

	job, err := o.jobs.GetByID(ctx, jobID)
	if errors.Is(err, domain.ErrJobNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if job.Status.IsTerminal() {
		return nil
	}

	// Processing is always written before a terminal status.
	if job.Status == domain.StatusPending {
		processing, err := job.StartProcessing()
		if err != nil {
			return err
		}
		if err := o.jobs.UpdateStatus(ctx, processing); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				return nil
			}
			return fmt.Errorf("failed to mark job processing: %w", err)
		}
		job = processing
	}

	failed, err := job.Fail(FailureReason(cause), o.now())
	if err != nil {
		return err
	}
	if err := o.jobs.UpdateStatus(ctx, failed); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return nil
		}
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	logger.Error("Report job failed", slog.String("reason", failed.FailureReason))
	return nil
}

// discardArtifact removes bytes saved by an attempt whose outcome was not
// stored, unless the stored job already points at them.
func (o *Orchestrator) discardArtifact(ctx context.Context, jobID uuid.UUID, locator string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if current, err := o.jobs.GetByID(cleanupCtx, jobID); err != nil || current.StoragePath == locator {
		return
	}

	if err := o.store.Delete(cleanupCtx, locator); err != nil {
		o.logger.Warn("Failed to delete orphaned artifact",
			slog.String("job_id", jobID.String()),
			slog.String("locator", locator),
			slog.Any("error", err),
		)
	}
}

// FailureReason formats cause for the job record, bounded in length.
func FailureReason(cause error) string {
	msg := "unknown error"
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}

	reason := failureReasonPrefix + msg
	if len(reason) <= maxFailureReasonLen {
		return reason
	}

	cut := maxFailureReasonLen
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
