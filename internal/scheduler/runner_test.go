package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errFeedDown = errors.New("feed down")
	errBroken   = errors.New("broken invariant")
)

type fakeHandler struct {
	mu        sync.Mutex
	results   []error // per attempt; attempts beyond the slice succeed
	executes  int
	fails     []error
	failErrs  []error // per Fail call; calls beyond the slice succeed
	onExecute func(attempt int)
}

func (h *fakeHandler) Execute(ctx context.Context, jobID uuid.UUID) error {
	h.mu.Lock()
	attempt := h.executes
	h.executes++
	hook := h.onExecute
	h.mu.Unlock()

	if hook != nil {
		hook(attempt)
	}
	if attempt < len(h.results) {
		return h.results[attempt]
	}
	return nil
}

func (h *fakeHandler) Fail(ctx context.Context, jobID uuid.UUID, cause error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	call := len(h.fails)
	h.fails = append(h.fails, cause)
	if call < len(h.failErrs) {
		return h.failErrs[call]
	}
	return nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunner_Run(t *testing.T) {
	tests := []struct {
		name         string
		results      []error
		wantErr      bool
		wantExecutes int
		wantFails    int
	}{
		{
			name:         "first attempt succeeds",
			wantExecutes: 1,
		},
		{
			name:         "fails twice then succeeds",
			results:      []error{errFeedDown, errFeedDown},
			wantExecutes: 3,
		},
		{
			name:         "fails every attempt",
			results:      []error{errFeedDown, errFeedDown, errFeedDown, errFeedDown},
			wantErr:      true,
			wantExecutes: 3,
			wantFails:    1,
		},
		{
			name:         "permanent error stops immediately",
			results:      []error{errBroken},
			wantErr:      true,
			wantExecutes: 1,
			wantFails:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &fakeHandler{results: tt.results}
			runner := NewRunner(handler, fastPolicy(), testLogger(),
				WithPermanentErrors(func(err error) bool { return errors.Is(err, errBroken) }))

			err := runner.Run(context.Background(), uuid.New())

			assert.Equal(t, tt.wantExecutes, handler.executes)
			assert.Len(t, handler.fails, tt.wantFails)

			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			var exhausted *ExhaustedError
			require.ErrorAs(t, err, &exhausted)
			assert.Equal(t, tt.wantExecutes, exhausted.Attempts)
			assert.True(t, exhausted.Recorded)
			assert.True(t, IsExhausted(err))
			assert.ErrorIs(t, handler.fails[0], tt.results[len(tt.results)-1])
		})
	}
}

func TestRunner_FailRecordIsRetried(t *testing.T) {
	handler := &fakeHandler{
		results:  []error{errFeedDown, errFeedDown, errFeedDown},
		failErrs: []error{errors.New("db blip"), errors.New("db blip")},
	}
	runner := NewRunner(handler, fastPolicy(), testLogger())

	err := runner.Run(context.Background(), uuid.New())

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.True(t, exhausted.Recorded)
	assert.Len(t, handler.fails, 3)
}

func TestRunner_FailRecordGivesUp(t *testing.T) {
	dbDown := errors.New("db down")
	handler := &fakeHandler{
		results:  []error{errFeedDown, errFeedDown, errFeedDown},
		failErrs: []error{dbDown, dbDown, dbDown, dbDown},
	}
	runner := NewRunner(handler, fastPolicy(), testLogger())

	err := runner.Run(context.Background(), uuid.New())

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.False(t, exhausted.Recorded)
	assert.Len(t, handler.fails, failRecordAttempts)
}

func TestRunner_CancelledContextRecordsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := &fakeHandler{
		results: []error{errFeedDown, errFeedDown, errFeedDown},
		onExecute: func(attempt int) {
			if attempt == 0 {
				cancel()
			}
		},
	}
	policy := fastPolicy()
	policy.InitialInterval = time.Second
	runner := NewRunner(handler, policy, testLogger())

	err := runner.Run(ctx, uuid.New())

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsExhausted(err))
	assert.Equal(t, 1, handler.executes)
	assert.Empty(t, handler.fails)
}

func TestRetryPolicy_Defaults(t *testing.T) {
	runner := NewRunner(&fakeHandler{}, RetryPolicy{}, testLogger())
	policy := runner.Policy()

	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 2*time.Second, policy.InitialInterval)
	assert.Equal(t, 30*time.Second, policy.MaxInterval)
	assert.Equal(t, 2.0, policy.Multiplier)
}
