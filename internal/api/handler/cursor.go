package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/report-service/internal/domain"
	"github.com/google/uuid"
)

func DecodeJobCursor(cursorStr string) (*domain.JobCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	decodedParts := strings.Split(string(decoded), "|")
	if len(decodedParts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var requestedAt int64
	if _, err := fmt.Sscanf(decodedParts[0], "%d", &requestedAt); err != nil {
		return nil, fmt.Errorf("invalid requestedAt in cursor: %w", err)
	}

	jobID, err := uuid.Parse(decodedParts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid job id in cursor: %w", err)
	}

	return &domain.JobCursor{
		RequestedAt: time.Unix(0, requestedAt).UTC(),
		JobID:       jobID,
	}, nil
}

func EncodeJobCursor(cursor *domain.JobCursor) string {
	if cursor == nil {
		return ""
	}
	cs := fmt.Sprintf("%d|%s", cursor.RequestedAt.UnixNano(), cursor.JobID)
	return base64.URLEncoding.EncodeToString([]byte(cs))
}
