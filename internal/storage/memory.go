package storage

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cuongbtq/report-service/internal/domain"
)

// MemoryStorage is an in-process job repository with the same transition
// rules as Storage. Used by the single-binary mode and in tests.
type MemoryStorage struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]domain.Job
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{jobs: make(map[uuid.UUID]domain.Job)}
}

func (m *MemoryStorage) Create(ctx context.Context, job domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrJobExists, job.ID)
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *MemoryStorage) GetByID(ctx context.Context, jobID uuid.UUID) (domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job, nil
}

func (m *MemoryStorage) UpdateStatus(ctx context.Context, job domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.jobs[job.ID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if !current.Status.CanTransitionTo(job.Status) {
		return &domain.TransitionError{From: current.Status, To: job.Status}
	}

	current.Status = job.Status
	current.CompletedAt = job.CompletedAt
	current.StoragePath = job.StoragePath
	current.FailureReason = job.FailureReason
	m.jobs[job.ID] = current
	return nil
}

func (m *MemoryStorage) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	m.mu.RLock()
	jobs := make([]domain.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if filter.Status != 0 && job.Status != filter.Status {
			continue
		}
		if filter.Cursor != nil && !before(job, *filter.Cursor) {
			continue
		}
		jobs = append(jobs, job)
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return before(jobs[j], domain.JobCursor{RequestedAt: jobs[i].RequestedAt, JobID: jobs[i].ID})
	})

	if limit := filter.PageSize + 1; len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// before reports whether (RequestedAt, ID) of job is smaller than the cursor,
// i.e. whether job comes after it in newest-first order.
func before(job domain.Job, cursor domain.JobCursor) bool {
	if !job.RequestedAt.Equal(cursor.RequestedAt) {
		return job.RequestedAt.Before(cursor.RequestedAt)
	}
	return bytes.Compare(job.ID[:], cursor.JobID[:]) < 0
}
