package report_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cuongbtq/report-service/internal/domain"
	"github.com/cuongbtq/report-service/internal/mocks"
	"github.com/cuongbtq/report-service/internal/report"
	"github.com/cuongbtq/report-service/internal/storage"
)

var testNow = time.Date(2025, 10, 17, 14, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() time.Time { return testNow }

func newTestService(t *testing.T) (*report.Service, *storage.MemoryStorage, *mocks.MockEnqueuer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockEnqueuer(ctrl)
	jobs := storage.NewMemoryStorage()

	svc := report.NewService(report.ServiceOptions{
		Jobs:   jobs,
		Queue:  queue,
		Logger: discardLogger(),
		Now:    fixedClock,
	})
	return svc, jobs, queue
}

func TestService_QueueReportGeneration(t *testing.T) {
	svc, jobs, queue := newTestService(t)
	ctx := context.Background()

	var enqueued []uuid.UUID
	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, id uuid.UUID) error {
			enqueued = append(enqueued, id)
			return nil
		}).Times(2)

	first, err := svc.QueueReportGeneration(ctx, time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	second, err := svc.QueueReportGeneration(ctx, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, enqueued)

	got, err := svc.GetStatus(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, testNow, got.RequestedAt)

	stored, err := jobs.ListJobs(ctx, domain.JobFilter{PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestService_QueueReportGeneration_FutureDate(t *testing.T) {
	svc, jobs, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.QueueReportGeneration(ctx, testNow.AddDate(0, 0, 1))
	require.ErrorIs(t, err, domain.ErrInvalidTargetDate)

	stored, err := jobs.ListJobs(ctx, domain.JobFilter{PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, stored, "no job is created for a rejected request")
}

func TestService_QueueReportGeneration_EnqueueFailureIsNotSurfaced(t *testing.T) {
	svc, _, queue := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, id uuid.UUID) error {
			// request context is already gone but the enqueue context is not
			assert.NoError(t, ctx.Err())
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return errors.New("broker unavailable")
		})

	cancel()
	job, err := svc.QueueReportGeneration(ctx, testNow)
	require.NoError(t, err)

	got, err := svc.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestService_GetStatus_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.GetStatus(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestService_GetStatus_IsReadOnly(t *testing.T) {
	svc, _, queue := newTestService(t)
	ctx := context.Background()
	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil)

	job, err := svc.QueueReportGeneration(ctx, testNow)
	require.NoError(t, err)

	first, err := svc.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := svc.GetStatus(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestService_GetDownloadDetails(t *testing.T) {
	svc, jobs, queue := newTestService(t)
	ctx := context.Background()
	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	pending, err := svc.QueueReportGeneration(ctx, testNow)
	require.NoError(t, err)

	_, err = svc.GetDownloadDetails(ctx, pending.ID)
	require.ErrorIs(t, err, domain.ErrJobNotFound, "pending jobs are not downloadable")

	processing, err := pending.StartProcessing()
	require.NoError(t, err)
	require.NoError(t, jobs.UpdateStatus(ctx, processing))
	_, err = svc.GetDownloadDetails(ctx, pending.ID)
	require.ErrorIs(t, err, domain.ErrJobNotFound, "processing jobs are not downloadable")

	completed, err := processing.Complete("report.pdf", testNow)
	require.NoError(t, err)
	require.NoError(t, jobs.UpdateStatus(ctx, completed))

	got, err := svc.GetDownloadDetails(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "report.pdf", got.StoragePath)

	other, err := svc.QueueReportGeneration(ctx, testNow)
	require.NoError(t, err)
	otherProcessing, err := other.StartProcessing()
	require.NoError(t, err)
	require.NoError(t, jobs.UpdateStatus(ctx, otherProcessing))
	failed, err := otherProcessing.Fail("feed down", testNow)
	require.NoError(t, err)
	require.NoError(t, jobs.UpdateStatus(ctx, failed))

	got, err = svc.GetDownloadDetails(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "feed down", got.FailureReason)

	_, err = svc.GetDownloadDetails(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestService_ListJobs(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockEnqueuer(ctrl)
	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	clock := testNow
	svc := report.NewService(report.ServiceOptions{
		Jobs:   storage.NewMemoryStorage(),
		Queue:  queue,
		Logger: discardLogger(),
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		job, err := svc.QueueReportGeneration(ctx, testNow)
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	page, cursor, err := svc.ListJobs(ctx, domain.JobFilter{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)
	assert.Equal(t, ids[3], cursor.JobID)

	page, cursor, err = svc.ListJobs(ctx, domain.JobFilter{PageSize: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, cursor)

	page, cursor, err = svc.ListJobs(ctx, domain.JobFilter{PageSize: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Nil(t, cursor)
	assert.Equal(t, ids[0], page[0].ID)

	all, _, err := svc.ListJobs(ctx, domain.JobFilter{PageSize: 1000})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
