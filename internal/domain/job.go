package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job is an immutable snapshot of one report generation request and its outcome.
// Transition methods return a new snapshot and never modify the receiver.
//
// Optional fields use their zero value for "not set": CompletedAt.IsZero(),
// StoragePath == "" and FailureReason == "".
type Job struct {
	ID            uuid.UUID
	Status        Status
	TargetDate    time.Time
	RequestedAt   time.Time
	CompletedAt   time.Time
	StoragePath   string
	FailureReason string
}

// NewJob creates a Pending job for targetDate. The date is compared with today's
// date in loc and must not be after it.
func NewJob(targetDate, now time.Time, loc *time.Location) (Job, error) {
	if targetDate.IsZero() {
		return Job{}, fmt.Errorf("%w: target date is required", ErrInvalidTargetDate)
	}
	if loc == nil {
		loc = time.UTC
	}

	date := DateOf(targetDate)
	today := DateOf(now.In(loc))
	if date.After(today) {
		return Job{}, fmt.Errorf("%w: %s is later than today (%s)",
			ErrInvalidTargetDate, date.Format(time.DateOnly), today.Format(time.DateOnly))
	}

	return Job{
		ID:          uuid.New(),
		Status:      StatusPending,
		TargetDate:  date,
		RequestedAt: now.UTC(),
	}, nil
}

// DateOf strips the clock from t and returns the calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartProcessing returns the snapshot for a new execution attempt.
func (j Job) StartProcessing() (Job, error) {
	if !j.Status.CanTransitionTo(StatusProcessing) {
		return Job{}, &TransitionError{From: j.Status, To: StatusProcessing}
	}
	next := j
	next.Status = StatusProcessing
	return next, nil
}

// Complete returns the terminal snapshot for a successful run.
func (j Job) Complete(storagePath string, now time.Time) (Job, error) {
	if !j.Status.CanTransitionTo(StatusCompleted) {
		return Job{}, &TransitionError{From: j.Status, To: StatusCompleted}
	}
	if storagePath == "" {
		return Job{}, fmt.Errorf("%w: completed job requires a storage path", ErrInvariantViolation)
	}
	next := j
	next.Status = StatusCompleted
	next.StoragePath = storagePath
	next.FailureReason = ""
	next.CompletedAt = now.UTC()
	return next, nil
}

// Fail returns the terminal snapshot for a run that gave up.
func (j Job) Fail(reason string, now time.Time) (Job, error) {
	if !j.Status.CanTransitionTo(StatusFailed) {
		return Job{}, &TransitionError{From: j.Status, To: StatusFailed}
	}
	if reason == "" {
		return Job{}, fmt.Errorf("%w: failed job requires a failure reason", ErrInvariantViolation)
	}
	next := j
	next.Status = StatusFailed
	next.FailureReason = reason
	next.StoragePath = ""
	next.CompletedAt = now.UTC()
	return next, nil
}

// Validate checks the relationship between status and the optional fields.
func (j Job) Validate() error {
	if j.ID == uuid.Nil {
		return fmt.Errorf("%w: job id is required", ErrInvariantViolation)
	}

	switch j.Status {
	case StatusPending, StatusProcessing:
		if !j.CompletedAt.IsZero() || j.StoragePath != "" || j.FailureReason != "" {
			return fmt.Errorf("%w: %s job must not carry an outcome", ErrInvariantViolation, j.Status)
		}
	case StatusCompleted:
		if j.StoragePath == "" || j.FailureReason != "" || j.CompletedAt.IsZero() {
			return fmt.Errorf("%w: completed job needs storage path and completion time only", ErrInvariantViolation)
		}
	case StatusFailed:
		if j.FailureReason == "" || j.StoragePath != "" || j.CompletedAt.IsZero() {
			return fmt.Errorf("%w: failed job needs failure reason and completion time only", ErrInvariantViolation)
		}
	default:
		return fmt.Errorf("%w: unknown status %s", ErrInvariantViolation, j.Status)
	}

	return nil
}

// JobFilter narrows a job listing.
type JobFilter struct {
	Status   Status // zero means any status
	PageSize int
	Cursor   *JobCursor
}

// JobCursor is the keyset position after which a listing continues.
type JobCursor struct {
	RequestedAt time.Time
	JobID       uuid.UUID
}
