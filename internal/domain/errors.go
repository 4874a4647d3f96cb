package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job cannot be found in the repository
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists is returned when a job with the same id has already been stored
	ErrJobExists = errors.New("job already exists")

	// ErrInvalidTargetDate is returned when the requested report date is missing or in the future
	ErrInvalidTargetDate = errors.New("invalid target date")

	// ErrInvalidTransition is returned when a status change would move a job backwards
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrInvariantViolation is returned when a job snapshot breaks the status/field invariants
	ErrInvariantViolation = errors.New("job invariant violation")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// IsPermanent reports whether retrying the operation that produced err cannot help.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrInvariantViolation)
}
