package challenge

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/felixgeelhaar/parlance/internal/distractor"
	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/felixgeelhaar/parlance/internal/resilience"
	"github.com/felixgeelhaar/parlance/internal/vocabulary"
)

const distractorCount = domain.OptionCount - 1

// Orchestrator produces one challenge per round. Fetch never fails: any
// provider error is absorbed by the vocabulary fallback.
type Orchestrator struct {
	provider  Provider
	store     vocabulary.Store
	generator *distractor.Generator
	guard     *resilience.Guard
	logger    *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Config wires the orchestrator's collaborators. Provider and Guard are
// optional; without a provider every challenge comes from the fallback.
type Config struct {
	Provider  Provider
	Store     vocabulary.Store
	Generator *distractor.Generator
	Guard     *resilience.Guard
	Rand      *rand.Rand
	Logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Store == nil {
		cfg.Store = vocabulary.NewMemoryStore()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.Generator == nil {
		cfg.Generator = distractor.New(rand.New(rand.NewPCG(cfg.Rand.Uint64(), cfg.Rand.Uint64())))
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		provider:  cfg.Provider,
		store:     cfg.Store,
		generator: cfg.Generator,
		guard:     cfg.Guard,
		logger:    cfg.Logger,
		rng:       cfg.Rand,
	}
}

// Fetch returns a valid challenge for level.
func (o *Orchestrator) Fetch(ctx context.Context, level domain.Level) *domain.Challenge {
	if o.provider != nil {
		c, err := o.fromProvider(ctx, level)
		if err == nil {
			return c
		}
		o.logger.Warn("challenge provider failed, using fallback",
			"level", level,
			"class", resilience.Classify(err).String(),
			"error", err)
	}
	return o.fallback(ctx, level)
}

func (o *Orchestrator) fromProvider(ctx context.Context, level domain.Level) (*domain.Challenge, error) {
	payload, err := resilience.Do(ctx, o.guard, func(ctx context.Context) (*Payload, error) {
		p, err := o.provider.Generate(ctx, level)
		if err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	target := payload.Entry(level)
	distractors := providerDistractors(target.SurfaceForm, payload.Distractors)
	if len(distractors) < distractorCount {
		distractors = o.generator.Generate(target, o.pool(ctx, level), distractorCount)
	}

	c := &domain.Challenge{
		Target:   target,
		ClueText: NormalizeClue(payload.Clue),
		Options:  o.generator.Options(target.SurfaceForm, distractors),
		Source:   domain.SourceProvider,
	}
	if err := c.Validate(); err != nil {
		return nil, resilience.Validation(err)
	}
	return c, nil
}

// providerDistractors keeps the first three usable provider suggestions.
func providerDistractors(word string, suggested []string) []string {
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(word)): true}
	var out []string
	for _, s := range suggested {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(s))
		if len(out) == distractorCount {
			break
		}
	}
	return out
}

func (o *Orchestrator) fallback(ctx context.Context, level domain.Level) *domain.Challenge {
	all := o.pool(ctx, domain.LevelAny)
	candidates := domain.FilterByLevel(all, level)
	if len(candidates) == 0 {
		candidates = all
	}
	if len(candidates) == 0 {
		candidates = domain.FilterByLevel(builtinEntries, level)
	}
	if len(candidates) == 0 {
		candidates = builtinEntries
	}

	o.mu.Lock()
	target, _ := vocabulary.Pick(candidates, o.rng)
	o.mu.Unlock()

	pool := all
	if len(pool) == 0 {
		pool = builtinEntries
	}
	if sameLevel := domain.FilterByLevel(pool, target.Level); len(sameLevel) > distractorCount {
		pool = sameLevel
	}
	distractors := o.generator.Generate(target, pool, distractorCount)

	return &domain.Challenge{
		Target:   target,
		ClueText: MaskClue(target),
		Options:  o.generator.Options(target.SurfaceForm, distractors),
		Source:   domain.SourceFallback,
	}
}

func (o *Orchestrator) pool(ctx context.Context, level domain.Level) []domain.VocabularyEntry {
	entries, err := o.store.ByLevel(ctx, level)
	if err != nil {
		o.logger.Warn("failed to read vocabulary", "level", level, "error", err)
		return nil
	}
	return entries
}

// Grade compares a submission to the target, ignoring case and
// surrounding whitespace.
func Grade(c *domain.Challenge, submitted string) (bool, error) {
	if c == nil {
		return false, domain.ErrNoActiveChallenge
	}
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(c.Target.SurfaceForm)), nil
}

// IsInvariantViolation reports whether err signals a programming error
// rather than a recoverable failure.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, domain.ErrNoActiveChallenge)
}
