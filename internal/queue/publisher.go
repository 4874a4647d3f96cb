package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Publisher sends message bodies to the broker.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// RabbitEnqueuer submits job ids to the RabbitMQ work queue.
type RabbitEnqueuer struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewRabbitEnqueuer(publisher Publisher, logger *slog.Logger) *RabbitEnqueuer {
	return &RabbitEnqueuer{
		publisher: publisher,
		logger:    logger,
	}
}

// Enqueue publishes a persistent message naming jobID.
func (e *RabbitEnqueuer) Enqueue(ctx context.Context, jobID uuid.UUID) error {
	body, err := Encode(jobID)
	if err != nil {
		return err
	}

	if err := e.publisher.PublishWithRetry(ctx, body, ContentType); err != nil {
		return fmt.Errorf("failed to publish job %s: %w", jobID, err)
	}

	e.logger.Debug("Job published",
		slog.String("job_id", jobID.String()),
	)

	return nil
}
