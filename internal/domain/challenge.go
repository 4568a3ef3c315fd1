package domain

import (
	"fmt"
	"strings"
)

// OptionCount is the number of answer options presented per challenge.
const OptionCount = 4

// ChallengeSource records where a challenge came from.
type ChallengeSource string

const (
	SourceProvider ChallengeSource = "provider"
	SourceFallback ChallengeSource = "fallback"
)

// Challenge is one quiz round: a target word, a clue and four options.
type Challenge struct {
	Target   VocabularyEntry `json:"target"`
	ClueText string          `json:"clue"`
	Options  []string        `json:"options"`
	Source   ChallengeSource `json:"source"`
}

// Validate enforces the option invariants: exactly four options, unique
// case-insensitively, containing the target surface form exactly once.
func (c *Challenge) Validate() error {
	if c == nil {
		return ErrNoActiveChallenge
	}
	if strings.TrimSpace(c.Target.SurfaceForm) == "" {
		return fmt.Errorf("%w: empty target", ErrInvalidChallenge)
	}
	if strings.TrimSpace(c.ClueText) == "" {
		return fmt.Errorf("%w: empty clue", ErrInvalidChallenge)
	}
	if len(c.Options) != OptionCount {
		return fmt.Errorf("%w: %d options, want %d", ErrInvalidChallenge, len(c.Options), OptionCount)
	}

	seen := make(map[string]bool, len(c.Options))
	targets := 0
	for _, opt := range c.Options {
		key := strings.ToLower(strings.TrimSpace(opt))
		if key == "" {
			return fmt.Errorf("%w: empty option", ErrInvalidChallenge)
		}
		if seen[key] {
			return fmt.Errorf("%w: duplicate option %q", ErrInvalidChallenge, opt)
		}
		seen[key] = true
		if strings.EqualFold(strings.TrimSpace(opt), strings.TrimSpace(c.Target.SurfaceForm)) {
			targets++
		}
	}
	if targets != 1 {
		return fmt.Errorf("%w: target appears %d times in options", ErrInvalidChallenge, targets)
	}
	return nil
}

// Clone returns a deep copy safe to hand to other goroutines.
func (c *Challenge) Clone() *Challenge {
	if c == nil {
		return nil
	}
	out := *c
	out.Options = append([]string(nil), c.Options...)
	return &out
}
