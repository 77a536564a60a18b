package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
)

func fastRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		JitterMin:   0,
		JitterMax:   0,
		TotalBudget: time.Second,
	}
}

func TestRetryableClassification(t *testing.T) {
	transient := []error{
		adapter.ErrConnectionFailed,
		adapter.ErrConnectionTimeout,
		context.DeadlineExceeded,
		adapter.NewConnectionError(dbcapabilities.PostgreSQL, "h", 5432, adapter.ErrConnectionFailed),
	}
	for _, err := range transient {
		if !retryable(err) {
			t.Errorf("retryable(%v) = false, expected true", err)
		}
	}

	terminal := []error{
		nil,
		adapter.ErrAuthenticationFailed,
		adapter.ErrInsufficientPrivilege,
		adapter.ErrInvalidConfiguration,
		adapter.ErrInvalidDatabaseName,
		adapter.ErrDatabaseNotFound,
		errors.New("some query error"),
	}
	for _, err := range terminal {
		if retryable(err) {
			t.Errorf("retryable(%v) = true, expected false", err)
		}
	}
}

func TestWithRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := fastRetryPolicy().withRetry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return adapter.ErrConnectionFailed
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := fastRetryPolicy().withRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return adapter.ErrConnectionTimeout
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrConnectionTimeout))
	assert.Equal(t, 3, calls)
}

func TestWithRetryTerminalErrorFailsFast(t *testing.T) {
	calls := 0
	err := fastRetryPolicy().withRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return adapter.ErrAuthenticationFailed
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrAuthenticationFailed))
	assert.Equal(t, 1, calls)
}

func TestWithRetryRespectsBudget(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   40 * time.Millisecond,
		TotalBudget: 50 * time.Millisecond,
	}

	calls := 0
	err := policy.withRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return adapter.ErrConnectionFailed
	})

	require.Error(t, err)
	// First backoff is 40ms, second would be 80ms and blow the budget.
	assert.Equal(t, 2, calls)
}

func TestWithRetryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := fastRetryPolicy().withRetry(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return adapter.ErrConnectionFailed
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestWithRetryZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxAttempts: 0}
	err := policy.withRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
