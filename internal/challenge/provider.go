// Package challenge fetches quiz challenges from a generation backend and
// falls back to the local vocabulary when the backend cannot deliver.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/felixgeelhaar/parlance/internal/resilience"
)

// Blank is the marker substituted for the target word in clues.
const Blank = "_____"

var blankPattern = regexp.MustCompile(`_{2,}`)

// Provider generates a challenge payload for a level.
type Provider interface {
	Generate(ctx context.Context, level domain.Level) (*Payload, error)
}

// Payload is the raw challenge returned by a provider.
type Payload struct {
	Word         string   `json:"word"`
	Definition   string   `json:"definition"`
	Clue         string   `json:"clue"`
	Example      string   `json:"example,omitempty"`
	PartOfSpeech string   `json:"part_of_speech,omitempty"`
	Level        string   `json:"level,omitempty"`
	Distractors  []string `json:"distractors,omitempty"`
}

// Validate checks the required fields and the single-blank clue. Failures
// are classified as validation errors and are never retried.
func (p *Payload) Validate() error {
	if p == nil {
		return resilience.Validation(errors.New("empty payload"))
	}
	switch {
	case strings.TrimSpace(p.Word) == "":
		return resilience.Validation(errors.New("payload missing word"))
	case strings.TrimSpace(p.Definition) == "":
		return resilience.Validation(errors.New("payload missing definition"))
	case strings.TrimSpace(p.Clue) == "":
		return resilience.Validation(errors.New("payload missing clue"))
	}
	if n := CountBlanks(p.Clue); n != 1 {
		return resilience.Validation(fmt.Errorf("clue has %d blanks, want 1", n))
	}
	if wordPattern(p.Word).MatchString(p.Clue) {
		return resilience.Validation(errors.New("clue reveals the answer"))
	}
	return nil
}

// Entry converts the payload to a vocabulary entry. A missing or invalid
// level defaults to the requested one, or B1 when any level was requested.
func (p *Payload) Entry(requested domain.Level) domain.VocabularyEntry {
	level := requested
	if parsed, err := domain.ParseLevel(p.Level); err == nil && parsed.IsConcrete() {
		level = parsed
	}
	if !level.IsConcrete() {
		level = domain.LevelB1
	}
	return domain.VocabularyEntry{
		SurfaceForm:     strings.TrimSpace(p.Word),
		Level:           level,
		Definition:      strings.TrimSpace(p.Definition),
		ExampleSentence: strings.TrimSpace(p.Example),
		PartOfSpeech:    strings.ToLower(strings.TrimSpace(p.PartOfSpeech)),
	}
}

// wordPattern matches word case-insensitively on word boundaries.
func wordPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(word)) + `\b`)
}

// CountBlanks returns the number of blank markers in clue.
func CountBlanks(clue string) int {
	return len(blankPattern.FindAllStringIndex(clue, -1))
}

// NormalizeClue rewrites the single blank of any length to Blank.
func NormalizeClue(clue string) string {
	return blankPattern.ReplaceAllString(strings.TrimSpace(clue), Blank)
}
