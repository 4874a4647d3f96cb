package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/report-service/internal/artifact"
	"github.com/cuongbtq/report-service/internal/domain"
	"github.com/google/uuid"
)

// ReportService is the report façade the handlers call
type ReportService interface {
	QueueReportGeneration(ctx context.Context, targetDate time.Time) (domain.Job, error)
	GetStatus(ctx context.Context, jobID uuid.UUID) (domain.Job, error)
	GetDownloadDetails(ctx context.Context, jobID uuid.UUID) (domain.Job, error)
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, *domain.JobCursor, error)
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	ServiceName string
	Reports     ReportService
	Artifacts   artifact.Store
	Health      HealthChecker
}

// JobHandler handles report job HTTP requests
type JobHandler struct {
	logger      *slog.Logger
	serviceName string
	reports     ReportService
	artifacts   artifact.Store
	health      HealthChecker
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:      deps.Logger,
		serviceName: deps.ServiceName,
		reports:     deps.Reports,
		artifacts:   deps.Artifacts,
		health:      deps.Health,
	}
}
