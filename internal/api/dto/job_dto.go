package dto

import (
	"fmt"
	"time"

	"github.com/cuongbtq/report-service/internal/domain"
)

type CreateReportRequest struct {
	TargetDate string `json:"target_date" binding:"required"`
}

type QueueReportResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ListJobsRequest struct {
	Status   string `form:"status"`
	PageSize int    `form:"page_size" binding:"gte=0"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobStatusResponse `json:"jobs"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

type JobStatusResponse struct {
	JobID         string  `json:"job_id"`
	Status        string  `json:"status"`
	TargetDate    string  `json:"target_date"`
	RequestedAt   string  `json:"requested_at"`
	CompletedAt   *string `json:"completed_at,omitempty"`
	FailureReason *string `json:"failure_reason,omitempty"`
	StatusDetail  string  `json:"status_detail"`
}

// NewJobStatusResponse maps a job snapshot to its API representation
func NewJobStatusResponse(job domain.Job) JobStatusResponse {
	resp := JobStatusResponse{
		JobID:        job.ID.String(),
		Status:       job.Status.String(),
		TargetDate:   job.TargetDate.Format(time.DateOnly),
		RequestedAt:  job.RequestedAt.UTC().Format(time.RFC3339),
		StatusDetail: StatusDetail(job),
	}

	if !job.CompletedAt.IsZero() {
		completedAt := job.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &completedAt
	}
	if job.FailureReason != "" {
		reason := job.FailureReason
		resp.FailureReason = &reason
	}

	return resp
}

// StatusDetail is a human readable summary of the job's progress
func StatusDetail(job domain.Job) string {
	switch job.Status {
	case domain.StatusPending:
		return "Report is waiting in the queue."
	case domain.StatusProcessing:
		return "Report is being generated."
	case domain.StatusCompleted:
		return "Report was generated successfully and is ready to download."
	case domain.StatusFailed:
		return fmt.Sprintf("Report could not be generated. Reason: %s", job.FailureReason)
	default:
		return ""
	}
}
