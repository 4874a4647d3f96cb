package report

import (
	"context"

	"github.com/google/uuid"

	"github.com/cuongbtq/report-service/internal/domain"
)

// JobRepository is the durable store of job snapshots.
type JobRepository interface {
	Create(ctx context.Context, job domain.Job) error
	GetByID(ctx context.Context, jobID uuid.UUID) (domain.Job, error)
	// UpdateStatus persists status and outcome fields, refusing any write
	// that is not a legal transition from the stored status.
	UpdateStatus(ctx context.Context, job domain.Job) error
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
}

// Enqueuer submits a job id for asynchronous execution.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobID uuid.UUID) error
}

// RateFetcher retrieves the day's exchange rates.
type RateFetcher interface {
	FetchTodayRates(ctx context.Context) ([]domain.ExchangeRate, error)
}

// Renderer turns a rate report into document bytes.
type Renderer interface {
	Render(report domain.RateReport) ([]byte, error)
}
