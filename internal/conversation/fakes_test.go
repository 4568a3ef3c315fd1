package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/felixgeelhaar/parlance/internal/speech"
)

// fakeSpeech synthesizes text as bytes and hands out transcripts or
// recognition errors from channels.
type fakeSpeech struct {
	transcripts chan string
	failures    chan error
	failSynth   bool

	mu          sync.Mutex
	synthesized []string
	played      int
	stops       int
	listens     int
	active      int
}

func newFakeSpeech() *fakeSpeech {
	return &fakeSpeech{transcripts: make(chan string), failures: make(chan error)}
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text string) (speech.Audio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synthesized = append(f.synthesized, text)
	if f.failSynth {
		return speech.Audio{}, errors.New("synthesis unavailable")
	}
	return speech.Audio{Data: []byte(text), ContentType: "text/plain"}, nil
}

func (f *fakeSpeech) Play(ctx context.Context, audio speech.Audio) error {
	f.mu.Lock()
	f.played++
	f.mu.Unlock()
	return nil
}

func (f *fakeSpeech) StopPlayback() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeSpeech) ListenOnce(ctx context.Context) (string, error) {
	f.mu.Lock()
	f.listens++
	f.active++
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	select {
	case t := <-f.transcripts:
		return t, nil
	case err := <-f.failures:
		return "", err
	case <-ctx.Done():
		return "", speech.ErrCancelled
	}
}

func (f *fakeSpeech) CancelListening() {}

func (f *fakeSpeech) synthCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.synthesized)
}

func (f *fakeSpeech) listenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listens
}

func (f *fakeSpeech) activeListens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// fail ends whichever listening session is active with err.
func (f *fakeSpeech) fail(t *testing.T, err error) {
	t.Helper()
	select {
	case f.failures <- err:
	case <-time.After(2 * time.Second):
		t.Fatalf("nobody listened for failure %v", err)
	}
}

// say delivers a transcript to whichever listening session picks it up.
func (f *fakeSpeech) say(t *testing.T, text string) {
	t.Helper()
	select {
	case f.transcripts <- text:
	case <-time.After(2 * time.Second):
		t.Fatalf("nobody listened for %q", text)
	}
}

// fakeChallenges always returns the same challenge, or nil when empty is set.
type fakeChallenges struct {
	empty bool

	mu    sync.Mutex
	calls int
}

func (f *fakeChallenges) Fetch(ctx context.Context, level domain.Level) *domain.Challenge {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.empty {
		return nil
	}
	return &domain.Challenge{
		Target: domain.VocabularyEntry{
			SurfaceForm:  "example",
			Level:        domain.LevelA1,
			Definition:   "a thing that shows what others are like",
			PartOfSpeech: "noun",
		},
		ClueText: "Can you give me an _____ of a fruit?",
		Options:  []string{"house", "example", "window", "river"},
		Source:   domain.SourceFallback,
	}
}

func (f *fakeChallenges) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// blockingChallenges blocks every fetch until its context is cancelled.
type blockingChallenges struct {
	started chan struct{}
}

func (b *blockingChallenges) Fetch(ctx context.Context, level domain.Level) *domain.Challenge {
	b.started <- struct{}{}
	<-ctx.Done()
	return nil
}

type recordingEvents struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingEvents) Publish(ctx context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, event.EventType())
	return nil
}

func (r *recordingEvents) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

type recordingPrefs struct {
	mu     sync.Mutex
	modes  []domain.SpeechMode
	levels []domain.Level
}

func (r *recordingPrefs) SaveLevel(level domain.Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = append(r.levels, level)
	return nil
}

func (r *recordingPrefs) SaveSpeechMode(mode domain.SpeechMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes = append(r.modes, mode)
	return nil
}

func (r *recordingPrefs) last() domain.SpeechMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.modes) == 0 {
		return ""
	}
	return r.modes[len(r.modes)-1]
}
