package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// RetryPolicy bounds how often a task is attempted and how long to wait in between.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy attempts a task three times.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = def.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = def.MaxInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	return p
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
}

// Handler is the task body run by the scheduler.
type Handler interface {
	// Execute performs one attempt. Returning an error asks for another attempt.
	Execute(ctx context.Context, jobID uuid.UUID) error
	// Fail records that every attempt failed.
	Fail(ctx context.Context, jobID uuid.UUID, cause error) error
}

// ExhaustedError is returned by Run once all attempts failed.
type ExhaustedError struct {
	JobID    uuid.UUID
	Attempts int
	Err      error
	// Recorded is false when the terminal failure could not be written.
	Recorded bool
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("job %s abandoned after %d attempt(s): %v", e.JobID, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

const (
	defaultFailTimeout  = 10 * time.Second
	failRecordAttempts  = 3
	failRecordRetryWait = 250 * time.Millisecond
)

// Runner executes a Handler with bounded retries.
type Runner struct {
	handler     Handler
	policy      RetryPolicy
	logger      *slog.Logger
	permanent   func(error) bool
	failTimeout time.Duration
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithPermanentErrors stops retrying as soon as isPermanent reports true.
func WithPermanentErrors(isPermanent func(error) bool) RunnerOption {
	return func(r *Runner) {
		r.permanent = isPermanent
	}
}

// WithFailTimeout bounds the terminal failure write.
func WithFailTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.failTimeout = d
	}
}

func NewRunner(handler Handler, policy RetryPolicy, logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		handler:     handler,
		policy:      policy.withDefaults(),
		logger:      logger,
		permanent:   func(error) bool { return false },
		failTimeout: defaultFailTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the effective retry policy.
func (r *Runner) Policy() RetryPolicy {
	return r.policy
}

// Run attempts the task until it succeeds, fails permanently or runs out of
// attempts. In the last two cases the failure is handed to Handler.Fail and an
// *ExhaustedError is returned. If ctx ends first, Run returns ctx.Err() and
// records nothing so the task can be delivered again.
func (r *Runner) Run(ctx context.Context, jobID uuid.UUID) error {
	attempts := 0
	var lastErr error

	operation := func() error {
		attempts++
		err := r.handler.Execute(ctx, jobID)
		if err == nil {
			return nil
		}
		lastErr = err
		if r.permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		r.logger.Warn("Job attempt failed, retrying",
			slog.String("job_id", jobID.String()),
			slog.Int("attempt", attempts),
			slog.Int("max_attempts", r.policy.MaxAttempts),
			slog.Duration("retry_after", wait),
			slog.Any("error", err),
		)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(r.policy.backOff(), ctx), notify)
	if err == nil {
		if attempts > 1 {
			r.logger.Info("Job succeeded after retry",
				slog.String("job_id", jobID.String()),
				slog.Int("attempt", attempts),
			)
		}
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		r.logger.Warn("Job interrupted before finishing",
			slog.String("job_id", jobID.String()),
			slog.Int("attempts", attempts),
			slog.Any("error", ctxErr),
		)
		return ctxErr
	}

	if lastErr == nil {
		lastErr = err
	}

	r.logger.Error("Job attempts exhausted",
		slog.String("job_id", jobID.String()),
		slog.Int("attempts", attempts),
		slog.Any("error", lastErr),
	)

	exhausted := &ExhaustedError{JobID: jobID, Attempts: attempts, Err: lastErr}
	if recErr := r.recordFailure(ctx, jobID, lastErr); recErr != nil {
		r.logger.Error("Failed to record job failure",
			slog.String("job_id", jobID.String()),
			slog.Any("error", recErr),
		)
		return exhausted
	}

	exhausted.Recorded = true
	return exhausted
}

// recordFailure survives cancellation of ctx so shutdown cannot leave the job
// without a terminal state.
func (r *Runner) recordFailure(ctx context.Context, jobID uuid.UUID, cause error) error {
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.failTimeout)
	defer cancel()

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(failRecordRetryWait), failRecordAttempts-1),
		failCtx,
	)

	return backoff.Retry(func() error {
		err := r.handler.Fail(failCtx, jobID, cause)
		if err != nil && r.permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// IsExhausted reports whether err is an *ExhaustedError.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}
