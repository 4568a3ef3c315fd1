package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
)

// Policy describes bounded exponential retry: the delay before attempt n+1
// is BaseDelay * 2^(n-1). No jitter is applied.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy returns 3 attempts starting at a one second delay.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// Delay returns the wait before the given attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return p.BaseDelay << (attempt - 2)
}

// Execute runs op under the policy. Non-retryable failures return after a
// single invocation; on exhaustion the last error is returned unchanged.
func Execute[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var (
		mu       sync.Mutex
		attempts int
		lastErr  error
		failedAt time.Time
	)

	retrier := retry.New[T](retry.Config{
		MaxAttempts:   p.MaxAttempts,
		InitialDelay:  p.BaseDelay,
		MaxDelay:      p.Delay(p.MaxAttempts) + p.BaseDelay,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        false,
		IsRetryable: func(err error) bool {
			mu.Lock()
			defer mu.Unlock()
			return attempts < p.MaxAttempts && IsRetryable(lastErr)
		},
	})

	result, err := retrier.Do(ctx, func(ctx context.Context) (T, error) {
		mu.Lock()
		attempts++
		n := attempts
		since := failedAt
		mu.Unlock()

		var zero T
		if n > p.MaxAttempts {
			return zero, lastErrLocked(&mu, &lastErr)
		}
		// Hold the documented schedule even if the backoff fired early.
		if n > 1 {
			if err := sleepUntil(ctx, since.Add(p.Delay(n))); err != nil {
				return zero, err
			}
		}

		v, err := op(ctx)
		if err != nil {
			mu.Lock()
			lastErr = err
			failedAt = time.Now()
			mu.Unlock()
		}
		return v, err
	})
	if err == nil {
		return result, nil
	}

	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}
	if last := lastErrLocked(&mu, &lastErr); last != nil {
		return zero, last
	}
	return zero, err
}

func lastErrLocked(mu *sync.Mutex, err *error) error {
	mu.Lock()
	defer mu.Unlock()
	return *err
}

func sleepUntil(ctx context.Context, deadline time.Time) error {
	wait := time.Until(deadline)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
