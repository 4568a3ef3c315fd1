package resilience

import (
	"context"
	"testing"
	"time"
)

func TestGuardRecordsEachAttempt(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	limiter := NewLimiter(10, time.Minute, WithClock(clock.Now))
	g := NewGuard("test", limiter, Policy{MaxAttempts: 3, BaseDelay: time.Millisecond})

	calls := 0
	_, err := Do(context.Background(), g, func(ctx context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, StatusError(502, "bad gateway")
		}
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got := len(limiter.timestamps); got != 2 {
		t.Errorf("limiter recorded %d attempts, want 2", got)
	}
}

func TestGuardRefusesWhenLimited(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	limiter := NewLimiter(1, time.Minute, WithClock(clock.Now))
	limiter.Record()
	g := NewGuard("tts", limiter, Policy{MaxAttempts: 2, BaseDelay: time.Millisecond})

	calls := 0
	_, err := Do(context.Background(), g, func(ctx context.Context) (int, error) {
		calls++
		return 1, nil
	})

	if calls != 0 {
		t.Errorf("operation invoked %d times while limited, want 0", calls)
	}
	if Classify(err) != ClassRateLimit {
		t.Errorf("Classify(err) = %v, want rate_limit", Classify(err))
	}
}

func TestGuardNil(t *testing.T) {
	got, err := Do(context.Background(), nil, func(ctx context.Context) (string, error) {
		return "direct", nil
	})
	if err != nil || got != "direct" {
		t.Errorf("Do(nil guard) = %q, %v", got, err)
	}
}
