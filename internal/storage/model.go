package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/report-service/internal/domain"
)

// jobRow is the report_jobs row layout.
type jobRow struct {
	JobID         uuid.UUID      `db:"job_id"`
	Status        string         `db:"status"`
	TargetDate    time.Time      `db:"target_date"`
	RequestedAt   time.Time      `db:"requested_at"`
	CompletedAt   sql.NullTime   `db:"completed_at"`
	StoragePath   sql.NullString `db:"storage_path"`
	FailureReason sql.NullString `db:"failure_reason"`
}

const jobColumns = `job_id, status, target_date, requested_at, completed_at, storage_path, failure_reason`

func toRow(job domain.Job) jobRow {
	return jobRow{
		JobID:         job.ID,
		Status:        job.Status.String(),
		TargetDate:    job.TargetDate,
		RequestedAt:   job.RequestedAt,
		CompletedAt:   sql.NullTime{Time: job.CompletedAt, Valid: !job.CompletedAt.IsZero()},
		StoragePath:   sql.NullString{String: job.StoragePath, Valid: job.StoragePath != ""},
		FailureReason: sql.NullString{String: job.FailureReason, Valid: job.FailureReason != ""},
	}
}

func (r jobRow) toDomain() (domain.Job, error) {
	status, err := domain.ParseStatus(r.Status)
	if err != nil {
		return domain.Job{}, fmt.Errorf("failed to decode job %s: %w", r.JobID, err)
	}

	job := domain.Job{
		ID:            r.JobID,
		Status:        status,
		TargetDate:    domain.DateOf(r.TargetDate),
		RequestedAt:   r.RequestedAt.UTC(),
		StoragePath:   r.StoragePath.String,
		FailureReason: r.FailureReason.String,
	}
	if r.CompletedAt.Valid {
		job.CompletedAt = r.CompletedAt.Time.UTC()
	}

	return job, nil
}
