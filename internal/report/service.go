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
	defaultEnqueueTimeout = 2 * time.Second

	// MaxPageSize bounds ListJobs.
	MaxPageSize     = 100
	DefaultPageSize = 20
)

// ServiceOptions holds Service dependencies
type ServiceOptions struct {
	Jobs           JobRepository
	Queue          Enqueuer
	Logger         *slog.Logger
	Now            func() time.Time
	Location       *time.Location
	EnqueueTimeout time.Duration
}

// Service accepts report requests and answers queries about them.
type Service struct {
	jobs           JobRepository
	queue          Enqueuer
	logger         *slog.Logger
	now            func() time.Time
	location       *time.Location
	enqueueTimeout time.Duration
}

func NewService(opts ServiceOptions) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := opts.EnqueueTimeout
	if timeout <= 0 {
		timeout = defaultEnqueueTimeout
	}

	return &Service{
		jobs:           opts.Jobs,
		queue:          opts.Queue,
		logger:         opts.Logger,
		now:            now,
		location:       loc,
		enqueueTimeout: timeout,
	}
}

// QueueReportGeneration stores a Pending job for targetDate and submits it for
// execution. A failed submission is logged and does not fail the request; the
// job stays Pending until the Reconciler resubmits it.
func (s *Service) QueueReportGeneration(ctx context.Context, targetDate time.Time) (domain.Job, error) {
	job, err := domain.NewJob(targetDate, s.now(), s.location)
	if err != nil {
		return domain.Job{}, err
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return domain.Job{}, fmt.Errorf("failed to store job: %w", err)
	}

	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.enqueueTimeout)
	defer cancel()

	if err := s.queue.Enqueue(enqueueCtx, job.ID); err != nil {
		s.logger.Error("Failed to enqueue report job, leaving it for resubmission",
			slog.String("job_id", job.ID.String()),
			slog.Duration("timeout", s.enqueueTimeout),
			slog.Any("error", err),
		)
	} else {
		s.logger.Info("Report job queued",
			slog.String("job_id", job.ID.String()),
			slog.String("target_date", job.TargetDate.Format(time.DateOnly)),
		)
	}

	return job, nil
}

// GetStatus returns the stored job or domain.ErrJobNotFound.
func (s *Service) GetStatus(ctx context.Context, jobID uuid.UUID) (domain.Job, error) {
	return s.jobs.GetByID(ctx, jobID)
}

// GetDownloadDetails returns the job only once it is Completed or Failed.
// Jobs that are still running are reported as domain.ErrJobNotFound.
func (s *Service) GetDownloadDetails(ctx context.Context, jobID uuid.UUID) (domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return domain.Job{}, err
	}
	if !job.Status.IsTerminal() {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job, nil
}

// ListJobs returns one page of jobs, newest first, plus the cursor of the
// next page (nil on the last page).
func (s *Service) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, *domain.JobCursor, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = DefaultPageSize
	}
	if filter.PageSize > MaxPageSize {
		filter.PageSize = MaxPageSize
	}

	jobs, err := s.jobs.ListJobs(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	if len(jobs) <= filter.PageSize {
		return jobs, nil, nil
	}

	jobs = jobs[:filter.PageSize]
	last := jobs[len(jobs)-1]
	return jobs, &domain.JobCursor{RequestedAt: last.RequestedAt, JobID: last.ID}, nil
}
