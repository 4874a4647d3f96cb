package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/report-service/internal/api/dto"
	"github.com/cuongbtq/report-service/internal/artifact"
	"github.com/cuongbtq/report-service/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportsPath is the route group of report jobs
const ReportsPath = "/api/v1/reports"

// StatusPath returns the status resource of a job
func StatusPath(jobID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/status", ReportsPath, jobID)
}

// DownloadFilename names the PDF of a job
func DownloadFilename(job domain.Job) string {
	return fmt.Sprintf("rate_report_%s_%s.pdf", job.TargetDate.Format("20060102"), job.ID)
}

// QueueReport handles POST /api/v1/reports
// Accepts a report request and queues it for background generation
func (h *JobHandler) QueueReport(c *gin.Context) {
	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	targetDate, err := time.Parse(time.DateOnly, req.TargetDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "target_date must be a date formatted as YYYY-MM-DD",
		})
		return
	}

	job, err := h.reports.QueueReportGeneration(c.Request.Context(), targetDate)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTargetDate) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "target_date cannot be later than today",
			})
			return
		}

		h.logger.Error("Failed to queue report", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to queue report",
		})
		return
	}

	c.Header("Location", StatusPath(job.ID))
	c.JSON(http.StatusAccepted, dto.QueueReportResponse{
		JobID:   job.ID.String(),
		Status:  job.Status.String(),
		Message: "Report generation has been queued. Poll the status endpoint for progress.",
	})
}

// GetReportStatus handles GET /api/v1/reports/:job_id/status
func (h *JobHandler) GetReportStatus(c *gin.Context) {
	jobID, ok := h.parseJobID(c)
	if !ok {
		return
	}

	job, err := h.reports.GetStatus(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": fmt.Sprintf("No report job found for %s", jobID),
			})
			return
		}

		h.logger.Error("Failed to get job", slog.String("job_id", jobID.String()), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, dto.NewJobStatusResponse(job))
}

// DownloadReport handles GET /api/v1/reports/:job_id/download
// Streams the generated PDF once the job has completed
func (h *JobHandler) DownloadReport(c *gin.Context) {
	jobID, ok := h.parseJobID(c)
	if !ok {
		return
	}

	job, err := h.reports.GetDownloadDetails(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Report not found or still being generated. Check the job status.",
			})
			return
		}

		h.logger.Error("Failed to get job", slog.String("job_id", jobID.String()), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	if job.Status == domain.StatusFailed {
		c.JSON(http.StatusConflict, gin.H{
			"error": fmt.Sprintf("Report generation failed and cannot be downloaded: %s", job.FailureReason),
		})
		return
	}

	if job.StoragePath == "" {
		h.logger.Error("Completed job has no artifact",
			slog.String("job_id", jobID.String()),
			slog.String("error", domain.ErrInvariantViolation.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Report is marked completed but no file was recorded",
		})
		return
	}

	body, err := h.artifacts.Open(c.Request.Context(), job.StoragePath)
	if err != nil {
		if errors.Is(err, artifact.ErrArtifactNotFound) {
			h.logger.Error("Report artifact is missing",
				slog.String("job_id", jobID.String()),
				slog.String("storage_path", job.StoragePath),
			)
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Report file could not be found in storage",
			})
			return
		}

		h.logger.Error("Failed to open report artifact", slog.String("job_id", jobID.String()), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to open report file",
		})
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", body, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, DownloadFilename(job)),
	})
}

// ListJobs handles GET /api/v1/reports
// Lists report jobs newest first with optional status filter and cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	filter := domain.JobFilter{PageSize: req.PageSize}

	if req.Status != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "status must be one of Pending, Processing, Completed, Failed",
			})
			return
		}
		filter.Status = status
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Warn("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}
	filter.Cursor = cursor

	jobs, next, err := h.reports.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	jobResponse := make([]dto.JobStatusResponse, len(jobs))
	for i, job := range jobs {
		jobResponse[i] = dto.NewJobStatusResponse(job)
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: EncodeJobCursor(next),
	})
}

// Health handles GET /health
func (h *JobHandler) Health(c *gin.Context) {
	if err := h.health.HealthCheck(c.Request.Context()); err != nil {
		h.logger.Error("Health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": h.serviceName,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.serviceName,
	})
}

func (h *JobHandler) parseJobID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("job_id")
	jobID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return uuid.Nil, false
	}
	return jobID, true
}
