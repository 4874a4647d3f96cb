package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/report-service/internal/domain"
)

// Storage is the PostgreSQL job repository
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new job row
func (s *Storage) Create(ctx context.Context, job domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO report_jobs (` + jobColumns + `)
		VALUES (:job_id, :status, :target_date, :requested_at, :completed_at, :storage_path, :failure_reason)
	`

	if _, err := s.db.NamedExecContext(ctx, query, toRow(job)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrJobExists, job.ID)
		}
		return fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Debug("Job created",
		slog.String("job_id", job.ID.String()),
		slog.String("target_date", job.TargetDate.Format("2006-01-02")),
	)

	return nil
}

// GetByID retrieves a job by its id
func (s *Storage) GetByID(ctx context.Context, jobID uuid.UUID) (domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM report_jobs WHERE job_id = $1`

	var row jobRow
	if err := s.db.GetContext(ctx, &row, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, domain.ErrJobNotFound
		}
		return domain.Job{}, fmt.Errorf("failed to get job: %w", err)
	}

	return row.toDomain()
}

// UpdateStatus writes the status and outcome fields of job. The write only
// applies while the stored status is one of job.Status.Predecessors().
func (s *Storage) UpdateStatus(ctx context.Context, job domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	predecessors := job.Status.Predecessors()
	if len(predecessors) == 0 {
		return &domain.TransitionError{To: job.Status}
	}
	allowed := make([]string, len(predecessors))
	for i, p := range predecessors {
		allowed[i] = p.String()
	}

	row := toRow(job)
	query := `
		UPDATE report_jobs
		SET status = $2,
		    completed_at = $3,
		    storage_path = $4,
		    failure_reason = $5,
		    updated_at = NOW()
		WHERE job_id = $1
		  AND status = ANY($6)
	`

	result, err := s.db.ExecContext(ctx, query,
		row.JobID, row.Status, row.CompletedAt, row.StoragePath, row.FailureReason, pq.Array(allowed))
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 1 {
		s.logger.Debug("Job status updated",
			slog.String("job_id", job.ID.String()),
			slog.String("status", job.Status.String()),
		)
		return nil
	}

	var current string
	err = s.db.GetContext(ctx, &current, `SELECT status FROM report_jobs WHERE job_id = $1`, job.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read current job status: %w", err)
	}

	from, err := domain.ParseStatus(current)
	if err != nil {
		s.logger.Error("Stored job status is unreadable",
			slog.String("job_id", job.ID.String()),
			slog.String("status", current),
		)
		return fmt.Errorf("failed to decode stored status of job %s: %w", job.ID, err)
	}
	s.logger.Warn("Rejected job status update",
		slog.String("job_id", job.ID.String()),
		slog.String("from", current),
		slog.String("to", job.Status.String()),
	)

	return &domain.TransitionError{From: from, To: job.Status}
}

// ListJobs returns up to filter.PageSize+1 jobs, newest first, starting after
// filter.Cursor. The extra row tells the caller another page exists.
func (s *Storage) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM report_jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Status != 0 {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status.String())
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (requested_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.RequestedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY requested_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]domain.Job, 0, len(rows))
	for _, row := range rows {
		job, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}
