package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ContentType of published job messages.
const ContentType = "application/json"

// ErrInvalidMessage is returned for message bodies that do not name a job
var ErrInvalidMessage = errors.New("invalid job message")

// Message is the body published for every queued job.
type Message struct {
	JobID string `json:"job_id"`
}

// Encode builds the message body for jobID.
func Encode(jobID uuid.UUID) ([]byte, error) {
	body, err := json.Marshal(Message{JobID: jobID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job message: %w", err)
	}
	return body, nil
}

// Decode parses a message body and returns the job id it names.
func Decode(body []byte) (uuid.UUID, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	jobID, err := uuid.Parse(msg.JobID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: job_id %q is not a UUID", ErrInvalidMessage, msg.JobID)
	}
	if jobID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: job_id is nil", ErrInvalidMessage)
	}

	return jobID, nil
}
