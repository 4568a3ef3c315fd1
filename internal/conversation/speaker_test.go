package conversation

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/felixgeelhaar/parlance/internal/cache"
	"github.com/felixgeelhaar/parlance/internal/domain"
)

func TestSpeaker_CachesFixedSegmentsOnly(t *testing.T) {
	fs := newFakeSpeech()
	c := cache.New()
	s := NewSpeaker(fs, c, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	p := Prompt{Segments: []Segment{
		{Text: phraseCorrectShort, Fixed: true},
		{Text: "Fill the _____ here."},
	}}
	for range 2 {
		if err := s.Say(context.Background(), p); err != nil {
			t.Fatalf("Say() error = %v", err)
		}
	}

	want := []string{phraseCorrectShort, "Fill the blank here.", "Fill the blank here."}
	if !slices.Equal(fs.synthesized, want) {
		t.Errorf("synthesized = %q, want %q", fs.synthesized, want)
	}
	if fs.played != 4 {
		t.Errorf("played = %d, want 4", fs.played)
	}
	if c.Len() != 1 {
		t.Errorf("cache Len() = %d, want 1", c.Len())
	}
}

func TestSpeaker_FailedSegmentsAreSkipped(t *testing.T) {
	fs := newFakeSpeech()
	fs.failSynth = true
	s := NewSpeaker(fs, nil, nil, nil)

	err := s.Say(context.Background(), Prompt{Segments: []Segment{{Text: "one"}, {Text: "two"}}})
	if err == nil {
		t.Fatal("Say() error = nil, want joined synthesis errors")
	}
	if len(fs.synthesized) != 2 {
		t.Errorf("synthesized %d segments, want 2", len(fs.synthesized))
	}
	if fs.played != 0 {
		t.Errorf("played = %d, want 0", fs.played)
	}
}

func TestSpeaker_Prewarm(t *testing.T) {
	fs := newFakeSpeech()
	c := cache.New()
	s := NewSpeaker(fs, c, nil, nil)

	report := s.Prewarm(context.Background(), domain.SpeechConcise)
	if report.Cached != len(PriorityPhrases(domain.SpeechConcise)) || report.Failed != 0 {
		t.Errorf("report = %+v", report)
	}
	if !c.Contains(phraseNavigateShort) {
		t.Error("navigation phrase not cached")
	}
}
