package domain

import "fmt"

// Status is the lifecycle state of a report job.
type Status uint8

// Job status values. The zero value is not a valid status.
const (
	StatusPending Status = iota + 1
	StatusProcessing
	StatusCompleted
	StatusFailed
)

// String returns the persisted and wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// ParseStatus converts a status name into a Status.
func ParseStatus(name string) (Status, error) {
	switch name {
	case "Pending":
		return StatusPending, nil
	case "Processing":
		return StatusProcessing, nil
	case "Completed":
		return StatusCompleted, nil
	case "Failed":
		return StatusFailed, nil
	default:
		return 0, fmt.Errorf("unknown job status %q", name)
	}
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions may happen.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	case StatusPending, StatusProcessing:
		return false
	default:
		return false
	}
}

// Predecessors lists the statuses a job may be in when it is written with status s.
// Processing may follow itself because a retried attempt re-enters it.
func (s Status) Predecessors() []Status {
	switch s {
	case StatusProcessing:
		return []Status{StatusPending, StatusProcessing}
	case StatusCompleted, StatusFailed:
		return []Status{StatusProcessing}
	case StatusPending:
		return nil
	default:
		return nil
	}
}

// CanTransitionTo reports whether moving from s to next is a legal forward step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, from := range next.Predecessors() {
		if from == s {
			return true
		}
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid job status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
