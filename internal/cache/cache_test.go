package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/felixgeelhaar/parlance/internal/speech"
)

func audio(s string) speech.Audio {
	return speech.Audio{Data: []byte(s), ContentType: "audio/mpeg"}
}

func TestKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Correct!", "correct!"},
		{"  Say   NEXT word  ", "say next word"},
		{"\tgo\nhome", "go home"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Key(tt.in); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResponseCache_PutIsIdempotent(t *testing.T) {
	c := New()

	c.Put("Correct!", audio("first"))
	c.Put("Correct!", audio("second"))
	c.Put("  correct! ", audio("third"))

	got, ok := c.Get("Correct!")
	if !ok {
		t.Fatal("Get() found nothing")
	}
	if string(got.Data) != "first" {
		t.Errorf("Get() = %q, want the first artifact", got.Data)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestResponseCache_IgnoresEmpty(t *testing.T) {
	c := New()
	c.Put("", audio("x"))
	c.Put("phrase", speech.Audio{})

	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestResponseCache_Clear(t *testing.T) {
	c := New()
	c.Put("one", audio("1"))
	c.Put("two", audio("2"))

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", c.Len())
	}
	if c.Contains("one") {
		t.Error("Contains(one) after Clear() = true")
	}
}

func TestResponseCache_Prewarm(t *testing.T) {
	c := New()
	c.Put("already here", audio("cached"))

	calls := 0
	synth := func(ctx context.Context, text string) (speech.Audio, error) {
		calls++
		if text == "broken" {
			return speech.Audio{}, errors.New("tts down")
		}
		return audio(text), nil
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	report := c.Prewarm(context.Background(), []string{"Correct!", "broken", "already here", "Next word?"}, synth, logger)

	want := PrewarmReport{Requested: 4, Cached: 2, Skipped: 1, Failed: 1}
	if report != want {
		t.Errorf("report = %+v, want %+v", report, want)
	}
	if calls != 3 {
		t.Errorf("synth called %d times, want 3", calls)
	}
	if !c.Contains("Next word?") {
		t.Error("phrase after a failure should still be cached")
	}
	if out := logs.String(); !strings.Contains(out, "level=WARN") || !strings.Contains(out, "phrase=broken") {
		t.Errorf("failure not logged through the given logger: %q", out)
	}
}

func TestResponseCache_PrewarmCancelled(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := c.Prewarm(ctx, []string{"a", "b"}, func(ctx context.Context, text string) (speech.Audio, error) {
		t.Error("synth should not be called after cancellation")
		return speech.Audio{}, nil
	}, nil)

	if report.Failed != 2 {
		t.Errorf("Failed = %d, want 2", report.Failed)
	}
}
