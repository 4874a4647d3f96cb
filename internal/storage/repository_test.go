package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/report-service/internal/domain"
)

type repository interface {
	Create(ctx context.Context, job domain.Job) error
	GetByID(ctx context.Context, jobID uuid.UUID) (domain.Job, error)
	UpdateStatus(ctx context.Context, job domain.Job) error
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
}

var (
	_ repository = (*Storage)(nil)
	_ repository = (*MemoryStorage)(nil)
)

func newPendingJob(t *testing.T, requestedAt time.Time) domain.Job {
	t.Helper()
	job, err := domain.NewJob(requestedAt, requestedAt, time.UTC)
	require.NoError(t, err)
	return job
}

// runRepositoryTests exercises the behaviour every job repository shares.
func runRepositoryTests(t *testing.T, newRepo func(t *testing.T) repository) {
	base := time.Date(2025, 10, 17, 9, 0, 0, 0, time.UTC)

	t.Run("create and get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		job := newPendingJob(t, base)

		require.NoError(t, repo.Create(ctx, job))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.True(t, job.TargetDate.Equal(got.TargetDate))
		assert.True(t, job.RequestedAt.Equal(got.RequestedAt))
		assert.True(t, got.CompletedAt.IsZero())
		assert.Empty(t, got.StoragePath)
		assert.Empty(t, got.FailureReason)
	})

	t.Run("duplicate id", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		job := newPendingJob(t, base)

		require.NoError(t, repo.Create(ctx, job))
		require.ErrorIs(t, repo.Create(ctx, job), domain.ErrJobExists)
	})

	t.Run("invalid snapshot is refused", func(t *testing.T) {
		repo := newRepo(t)
		job := newPendingJob(t, base)
		job.StoragePath = "early.pdf"

		require.ErrorIs(t, repo.Create(context.Background(), job), domain.ErrInvariantViolation)
	})

	t.Run("unknown id", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetByID(context.Background(), uuid.New())
		require.ErrorIs(t, err, domain.ErrJobNotFound)

		processing := domain.Job{ID: uuid.New(), Status: domain.StatusProcessing}
		require.ErrorIs(t, repo.UpdateStatus(context.Background(), processing), domain.ErrJobNotFound)
	})

	t.Run("forward transitions", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		job := newPendingJob(t, base)
		require.NoError(t, repo.Create(ctx, job))

		processing, err := job.StartProcessing()
		require.NoError(t, err)
		require.NoError(t, repo.UpdateStatus(ctx, processing))
		require.NoError(t, repo.UpdateStatus(ctx, processing), "retry re-enters processing")

		completed, err := processing.Complete(job.ID.String()+".pdf", base.Add(time.Minute))
		require.NoError(t, err)
		require.NoError(t, repo.UpdateStatus(ctx, completed))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, got.Status)
		assert.Equal(t, job.ID.String()+".pdf", got.StoragePath)
		assert.True(t, base.Add(time.Minute).Equal(got.CompletedAt))
		assert.NoError(t, got.Validate())
	})

	t.Run("backward and skipping transitions are rejected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		job := newPendingJob(t, base)
		require.NoError(t, repo.Create(ctx, job))

		failed := domain.Job{
			ID:            job.ID,
			Status:        domain.StatusFailed,
			TargetDate:    job.TargetDate,
			RequestedAt:   job.RequestedAt,
			CompletedAt:   base,
			FailureReason: "skipped processing",
		}
		require.ErrorIs(t, repo.UpdateStatus(ctx, failed), domain.ErrInvalidTransition)

		processing, err := job.StartProcessing()
		require.NoError(t, err)
		require.NoError(t, repo.UpdateStatus(ctx, processing))
		require.NoError(t, repo.UpdateStatus(ctx, failed))

		err = repo.UpdateStatus(ctx, processing)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
		var transitionErr *domain.TransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, domain.StatusFailed, transitionErr.From)

		require.ErrorIs(t, repo.UpdateStatus(ctx, job), domain.ErrInvalidTransition, "pending is never written back")

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, got.Status)
		assert.Equal(t, "skipped processing", got.FailureReason)
	})

	t.Run("list with status filter and cursor", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var created []domain.Job
		for i := 0; i < 5; i++ {
			job := newPendingJob(t, base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, repo.Create(ctx, job))
			created = append(created, job)
		}
		processing, err := created[1].StartProcessing()
		require.NoError(t, err)
		require.NoError(t, repo.UpdateStatus(ctx, processing))

		page, err := repo.ListJobs(ctx, domain.JobFilter{PageSize: 2})
		require.NoError(t, err)
		require.Len(t, page, 3, "one extra row signals another page")
		assert.Equal(t, created[4].ID, page[0].ID)
		assert.Equal(t, created[3].ID, page[1].ID)

		last := page[1]
		next, err := repo.ListJobs(ctx, domain.JobFilter{
			PageSize: 10,
			Cursor:   &domain.JobCursor{RequestedAt: last.RequestedAt, JobID: last.ID},
		})
		require.NoError(t, err)
		require.Len(t, next, 3)
		assert.Equal(t, created[2].ID, next[0].ID)
		assert.Equal(t, created[0].ID, next[2].ID)

		pending, err := repo.ListJobs(ctx, domain.JobFilter{Status: domain.StatusPending, PageSize: 10})
		require.NoError(t, err)
		assert.Len(t, pending, 4)
		for _, job := range pending {
			assert.Equal(t, domain.StatusPending, job.Status)
		}

		onlyProcessing, err := repo.ListJobs(ctx, domain.JobFilter{Status: domain.StatusProcessing, PageSize: 10})
		require.NoError(t, err)
		require.Len(t, onlyProcessing, 1)
		assert.Equal(t, created[1].ID, onlyProcessing[0].ID)
	})
}

func TestMemoryStorage(t *testing.T) {
	runRepositoryTests(t, func(t *testing.T) repository {
		return NewMemoryStorage()
	})
}

func TestMemoryStorage_ListSameTimestamp(t *testing.T) {
	repo := NewMemoryStorage()
	ctx := context.Background()
	at := time.Date(2025, 10, 17, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Create(ctx, newPendingJob(t, at)))
	}

	first, err := repo.ListJobs(ctx, domain.JobFilter{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first, 3)

	cursor := &domain.JobCursor{RequestedAt: first[1].RequestedAt, JobID: first[1].ID}
	rest, err := repo.ListJobs(ctx, domain.JobFilter{PageSize: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 2)

	seen := map[uuid.UUID]bool{first[0].ID: true, first[1].ID: true}
	for _, job := range rest {
		assert.False(t, seen[job.ID], "pages must not overlap")
	}
}
