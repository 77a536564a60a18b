package collector

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
)

// RetryPolicy controls connection retries. Only transient connection errors
// are retried; authentication and configuration failures fail immediately.
type RetryPolicy struct {
	// MaxAttempts includes the initial attempt.
	MaxAttempts int `json:"max_attempts"`

	// BaseDelay is doubled after each failed attempt.
	BaseDelay time.Duration `json:"base_delay"`

	// JitterMin and JitterMax bound the random delay added to each backoff.
	JitterMin time.Duration `json:"jitter_min"`
	JitterMax time.Duration `json:"jitter_max"`

	// TotalBudget caps the accumulated backoff time across all attempts.
	TotalBudget time.Duration `json:"total_budget"`
}

// DefaultRetryPolicy returns the standard connection retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		JitterMin:   100 * time.Millisecond,
		JitterMax:   300 * time.Millisecond,
		TotalBudget: 5 * time.Second,
	}
}

// retryable reports whether an error is worth another connection attempt.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if adapter.IsAuthenticationError(err) || adapter.IsPermissionError(err) {
		return false
	}
	if errors.Is(err, adapter.ErrInvalidConfiguration) || errors.Is(err, adapter.ErrInvalidDatabaseName) {
		return false
	}
	if errors.Is(err, adapter.ErrDatabaseNotFound) {
		return false
	}
	return errors.Is(err, adapter.ErrConnectionFailed) ||
		errors.Is(err, adapter.ErrConnectionTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// withRetry runs fn under the policy. fn is retried only on transient
// connection errors; any other error is returned as-is.
func (p RetryPolicy) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var spent time.Duration
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			if span := p.JitterMax - p.JitterMin; span > 0 {
				delay += p.JitterMin + time.Duration(rand.Int63n(int64(span)))
			} else {
				delay += p.JitterMin
			}
			if p.TotalBudget > 0 && spent+delay > p.TotalBudget {
				break
			}
			spent += delay

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
