package handler

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/report-service/internal/domain"
)

func TestJobCursor_RoundTrip(t *testing.T) {
	cursor := &domain.JobCursor{
		RequestedAt: time.Date(2025, 10, 17, 14, 30, 0, 123456789, time.UTC),
		JobID:       uuid.New(),
	}

	encoded := EncodeJobCursor(cursor)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeJobCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, cursor.RequestedAt.Equal(decoded.RequestedAt))
	assert.Equal(t, cursor.JobID, decoded.JobID)
}

func TestDecodeJobCursor(t *testing.T) {
	encode := func(s string) string {
		return base64.URLEncoding.EncodeToString([]byte(s))
	}

	t.Run("empty cursor means first page", func(t *testing.T) {
		cursor, err := DecodeJobCursor("")
		require.NoError(t, err)
		assert.Nil(t, cursor)
	})

	tests := []struct {
		name   string
		cursor string
	}{
		{name: "not base64", cursor: "***"},
		{name: "missing separator", cursor: encode("1700000000")},
		{name: "bad timestamp", cursor: encode("yesterday|" + uuid.NewString())},
		{name: "bad job id", cursor: encode("1700000000|42")},
		{name: "too many parts", cursor: encode("1|2|3")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, err := DecodeJobCursor(tt.cursor)
			require.Error(t, err)
			assert.Nil(t, cursor)
		})
	}
}

func TestEncodeJobCursor_Nil(t *testing.T) {
	assert.Empty(t, EncodeJobCursor(nil))
}

func TestDownloadFilename(t *testing.T) {
	job := domain.Job{
		ID:         uuid.MustParse("7a1c7c7e-2f5e-4f43-9a0e-6d2a6f1d7c10"),
		TargetDate: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, "rate_report_20250307_7a1c7c7e-2f5e-4f43-9a0e-6d2a6f1d7c10.pdf", DownloadFilename(job))
	assert.Equal(t, "/api/v1/reports/7a1c7c7e-2f5e-4f43-9a0e-6d2a6f1d7c10/status", StatusPath(job.ID))
}
