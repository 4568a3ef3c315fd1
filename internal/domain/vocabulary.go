package domain

import (
	"fmt"
	"strings"
)

// VocabularyEntry is a single word with its study metadata.
// Entries are immutable once loaded.
type VocabularyEntry struct {
	SurfaceForm     string `json:"surface_form" yaml:"word"`
	Level           Level  `json:"level" yaml:"level"`
	Definition      string `json:"definition" yaml:"definition"`
	ExampleSentence string `json:"example_sentence,omitempty" yaml:"example"`
	PartOfSpeech    string `json:"part_of_speech,omitempty" yaml:"part_of_speech"`
}

// Validate checks that the entry is usable as a quiz target.
func (e VocabularyEntry) Validate() error {
	if strings.TrimSpace(e.SurfaceForm) == "" {
		return fmt.Errorf("%w: missing word", ErrInvalidEntry)
	}
	if strings.TrimSpace(e.Definition) == "" {
		return fmt.Errorf("%w: %q has no definition", ErrInvalidEntry, e.SurfaceForm)
	}
	if !e.Level.IsConcrete() {
		return fmt.Errorf("%w: %q has level %q", ErrInvalidEntry, e.SurfaceForm, e.Level)
	}
	return nil
}

// FilterByLevel returns the entries matching level, preserving order.
func FilterByLevel(entries []VocabularyEntry, level Level) []VocabularyEntry {
	if level == LevelAny {
		return entries
	}
	var out []VocabularyEntry
	for _, e := range entries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
