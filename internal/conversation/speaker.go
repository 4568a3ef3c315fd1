package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/parlance/internal/cache"
	"github.com/felixgeelhaar/parlance/internal/challenge"
	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/felixgeelhaar/parlance/internal/resilience"
	"github.com/felixgeelhaar/parlance/internal/speech"
)

// Speaker turns prompts into audio and plays them. Fixed segments go
// through the response cache; dynamic segments are always synthesized.
type Speaker struct {
	provider speech.Provider
	cache    *cache.ResponseCache
	guard    *resilience.Guard
	logger   *slog.Logger
}

// NewSpeaker creates a speaker. guard may be nil to call the synthesizer directly.
func NewSpeaker(provider speech.Provider, c *cache.ResponseCache, guard *resilience.Guard, logger *slog.Logger) *Speaker {
	if provider == nil {
		provider = speech.NoOp{}
	}
	if c == nil {
		c = cache.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{provider: provider, cache: c, guard: guard, logger: logger}
}

// Say speaks every segment in order. A failed segment is skipped; the
// joined errors are returned once all segments have been attempted.
func (s *Speaker) Say(ctx context.Context, p Prompt) error {
	var errs []error
	for _, seg := range p.Segments {
		if seg.Text == "" {
			continue
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		audio, err := s.audioFor(ctx, seg)
		if err != nil {
			errs = append(errs, fmt.Errorf("synthesize %q: %w", seg.Text, err))
			continue
		}
		if err := s.provider.Play(ctx, audio); err != nil {
			errs = append(errs, fmt.Errorf("play %q: %w", seg.Text, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Speaker) audioFor(ctx context.Context, seg Segment) (speech.Audio, error) {
	if seg.Fixed {
		if audio, ok := s.cache.Get(seg.Text); ok {
			return audio, nil
		}
	}

	audio, err := s.Synthesize(ctx, seg.Text)
	if err != nil {
		return speech.Audio{}, err
	}
	if seg.Fixed {
		s.cache.Put(seg.Text, audio)
	}
	return audio, nil
}

// Synthesize converts display text to audio through the speech guard.
func (s *Speaker) Synthesize(ctx context.Context, text string) (speech.Audio, error) {
	spoken := strings.ReplaceAll(text, challenge.Blank, "blank")
	return resilience.Do(ctx, s.guard, func(ctx context.Context) (speech.Audio, error) {
		return s.provider.Synthesize(ctx, spoken)
	})
}

// Prewarm caches the fixed phrases for mode.
func (s *Speaker) Prewarm(ctx context.Context, mode domain.SpeechMode) cache.PrewarmReport {
	return s.cache.Prewarm(ctx, PriorityPhrases(mode), s.Synthesize, s.logger)
}

// Stop aborts playback.
func (s *Speaker) Stop() {
	s.provider.StopPlayback()
}
