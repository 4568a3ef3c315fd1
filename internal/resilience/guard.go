package resilience

import (
	"context"
	"fmt"
)

// Guard fronts one backend with a rate limiter and a retry policy.
// Every attempt, including retries, must be admitted by the limiter.
type Guard struct {
	Name    string
	Limiter *Limiter
	Policy  Policy
}

// NewGuard creates a guard for the named backend.
func NewGuard(name string, limiter *Limiter, policy Policy) *Guard {
	return &Guard{Name: name, Limiter: limiter, Policy: policy}
}

// Do runs op through the guard. A refused admission fails the attempt with
// a rate-limit error so the policy backs off before trying again.
func Do[T any](ctx context.Context, g *Guard, op func(context.Context) (T, error)) (T, error) {
	if g == nil {
		return op(ctx)
	}
	return Execute(ctx, g.Policy, func(ctx context.Context) (T, error) {
		if g.Limiter != nil {
			if !g.Limiter.CanAdmit() {
				var zero T
				return zero, &Error{
					Class:      ClassRateLimit,
					RetryAfter: g.Limiter.TimeUntilNextSlot(),
					Err:        fmt.Errorf("rate limit exceeded for %s", g.Name),
				}
			}
			g.Limiter.Record()
		}
		return op(ctx)
	})
}
