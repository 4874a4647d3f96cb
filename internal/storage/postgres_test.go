package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cuongbtq/report-service/internal/domain"
	"github.com/cuongbtq/report-service/internal/migrate"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "reports_test",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
			return fmt.Sprintf("postgres://test:test@%s:%s/reports_test?sslmode=disable", host, port.Port())
		}).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/reports_test?sslmode=disable", host, port.Port())
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrate.Up(db.DB, slog.New(slog.NewTextHandler(io.Discard, nil))))
	// second run is a no-op
	require.NoError(t, migrate.Up(db.DB, slog.New(slog.NewTextHandler(io.Discard, nil))))

	return db
}

func TestStorage(t *testing.T) {
	db := setupTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	runRepositoryTests(t, func(t *testing.T) repository {
		_, err := db.Exec(`TRUNCATE report_jobs`)
		require.NoError(t, err)
		return NewStorage(db, logger)
	})
}

func TestStorage_SchemaRejectsBrokenRows(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Exec(`
		INSERT INTO report_jobs (job_id, status, target_date, requested_at, storage_path)
		VALUES (gen_random_uuid(), 'Failed', CURRENT_DATE, NOW(), 'x.pdf')
	`)
	require.Error(t, err)

	_, err = db.Exec(`
		INSERT INTO report_jobs (job_id, status, target_date, requested_at)
		VALUES (gen_random_uuid(), 'Cancelled', CURRENT_DATE, NOW())
	`)
	require.Error(t, err)
}

func TestStorage_UpdateStatusUnreadableStoredStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStorage(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	now := time.Date(2025, 10, 17, 14, 30, 0, 0, time.UTC)
	job, err := domain.NewJob(now, now, time.UTC)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, job))

	// a status written outside this code base, e.g. by a newer release
	_, err = db.Exec(`ALTER TABLE report_jobs DROP CONSTRAINT report_jobs_status_check`)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE report_jobs SET status = 'Archived' WHERE job_id = $1`, job.ID)
	require.NoError(t, err)

	processing, err := job.StartProcessing()
	require.NoError(t, err)

	err = repo.UpdateStatus(ctx, processing)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Contains(t, err.Error(), `unknown job status "Archived"`)
	assert.Contains(t, err.Error(), job.ID.String())
}
