package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"

	"github.com/felixgeelhaar/parlance/internal/resilience"
)

// Breaker trips after repeated backend failures so the orchestrator drops to
// the word list immediately instead of waiting on a dead backend. A bulkhead
// bounds in-flight completions when the daemon and a prewarm share a provider.
// Retry and rate limiting belong to the caller's resilience.Guard.
type Breaker struct {
	next     Provider
	breaker  circuitbreaker.CircuitBreaker[*Completion]
	bulkhead bulkhead.Bulkhead[*Completion]
}

// BreakerConfig tunes Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker
	FailureThreshold int
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
	// MaxConcurrent bounds in-flight completions
	MaxConcurrent int
	Logger        *slog.Logger
}

// DefaultBreakerConfig suits interactive quiz rounds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		OpenTimeout:      time.Minute,
		MaxConcurrent:    2,
	}
}

// WithBreaker wraps next in a fortify circuit breaker and bulkhead.
func WithBreaker(next Provider, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("provider", next.Name())

	threshold := cfg.FailureThreshold
	return &Breaker{
		next: next,
		breaker: circuitbreaker.New[*Completion](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    10 * time.Second,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return int(counts.ConsecutiveFailures) >= threshold
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Warn("LLM circuit breaker state change", "from", from.String(), "to", to.String())
			},
		}),
		bulkhead: bulkhead.New[*Completion](bulkhead.Config{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxQueue:      cfg.MaxConcurrent * 2,
			QueueTimeout:  30 * time.Second,
		}),
	}
}

func (b *Breaker) Name() string { return b.next.Name() }

// Complete keeps the class of classified failures. Anything else, an open
// breaker or a full bulkhead included, counts as a server failure.
func (b *Breaker) Complete(ctx context.Context, p *Prompt) (*Completion, error) {
	c, err := b.breaker.Execute(ctx, func(ctx context.Context) (*Completion, error) {
		return b.bulkhead.Execute(ctx, func(ctx context.Context) (*Completion, error) {
			return b.next.Complete(ctx, p)
		})
	})
	if err != nil && resilience.Classify(err) == resilience.ClassUnknown {
		return nil, resilience.NewError(resilience.ClassServer, err)
	}
	return c, err
}
