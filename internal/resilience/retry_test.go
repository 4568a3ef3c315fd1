package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecuteValidationNotRetried(t *testing.T) {
	calls := 0
	validation := Validation(errors.New("clue has no blank"))

	_, err := Execute(context.Background(), Policy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond},
		func(ctx context.Context) (string, error) {
			calls++
			return "", validation
		})

	if calls != 1 {
		t.Errorf("operation invoked %d times, want 1", calls)
	}
	if !errors.Is(err, validation) {
		t.Errorf("Execute() error = %v, want the validation error", err)
	}
}

func TestExecuteAuthenticationNotRetried(t *testing.T) {
	calls := 0
	_, err := Execute(context.Background(), Policy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, StatusError(401, "invalid key")
		})

	if calls != 1 {
		t.Errorf("operation invoked %d times, want 1", calls)
	}
	if Classify(err) != ClassAuthentication {
		t.Errorf("Classify(err) = %v, want authentication", Classify(err))
	}
}

func TestExecuteRetriesServerErrors(t *testing.T) {
	base := 20 * time.Millisecond
	calls := 0

	start := time.Now()
	got, err := Execute(context.Background(), Policy{MaxAttempts: 3, BaseDelay: base},
		func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", StatusError(503, "unavailable")
			}
			return "ok", nil
		})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("Execute() = %q, want ok", got)
	}
	if calls != 3 {
		t.Errorf("operation invoked %d times, want 3", calls)
	}
	if elapsed < 3*base {
		t.Errorf("elapsed %v, want at least %v", elapsed, 3*base)
	}
}

func TestExecuteReturnsLastError(t *testing.T) {
	calls := 0
	var last error

	_, err := Execute(context.Background(), Policy{MaxAttempts: 2, BaseDelay: time.Millisecond},
		func(ctx context.Context) (int, error) {
			calls++
			last = StatusError(500, "attempt failed")
			return 0, last
		})

	if calls != 2 {
		t.Errorf("operation invoked %d times, want 2", calls)
	}
	if err != last {
		t.Errorf("Execute() error = %v, want the last attempt's error", err)
	}
}

func TestExecuteHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Execute(ctx, Policy{MaxAttempts: 3, BaseDelay: time.Second},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, StatusError(500, "down")
		})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("operation invoked %d times, want 1", calls)
	}
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{MaxAttempts: 4, BaseDelay: time.Second}
	want := []time.Duration{0, time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}
