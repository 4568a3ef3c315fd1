package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/parlance/internal/conversation"
	"github.com/felixgeelhaar/parlance/internal/domain"
)

// fakeQuiz records the calls the console makes.
type fakeQuiz struct {
	snap  conversation.Snapshot
	calls []string
	err   error
}

func (f *fakeQuiz) Snapshot() conversation.Snapshot { return f.snap }

func (f *fakeQuiz) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeQuiz) StartSession(ctx context.Context, level domain.Level, mode domain.SpeechMode) error {
	return f.record("start")
}
func (f *fakeQuiz) ChangeLevel(ctx context.Context, level domain.Level) error {
	return f.record("level:" + string(level))
}
func (f *fakeQuiz) ChangeSpeechMode(ctx context.Context, mode domain.SpeechMode) error {
	return f.record("mode:" + string(mode))
}
func (f *fakeQuiz) SubmitManualAnswer(ctx context.Context, text string) error {
	return f.record("answer:" + text)
}
func (f *fakeQuiz) SubmitChoice(ctx context.Context, option string) error {
	return f.record("choice:" + option)
}
func (f *fakeQuiz) RequestNext(ctx context.Context) error { return f.record("next") }
func (f *fakeQuiz) RequestHome(ctx context.Context) error { return f.record("home") }

type fakeTranscripts struct {
	listening bool
	delivered []string
}

func (f *fakeTranscripts) Listening() bool { return f.listening }
func (f *fakeTranscripts) Deliver(text string) error {
	f.delivered = append(f.delivered, text)
	return nil
}

func testChallenge() *domain.Challenge {
	return &domain.Challenge{
		Target:   domain.VocabularyEntry{SurfaceForm: "candle", Level: domain.LevelA2},
		ClueText: "She lit a _____ when the power went out.",
		Options:  []string{"spoon", "candle", "carpet", "bucket"},
	}
}

func TestConsole_Handle(t *testing.T) {
	tests := []struct {
		name      string
		state     domain.ConversationState
		listening bool
		line      string
		calls     []string
		delivered []string
	}{
		{"start from setup", domain.StateSetup, false, "START", []string{"start"}, nil},
		{"setup ignores other text", domain.StateSetup, false, "hello", nil, nil},
		{"typed answer", domain.StateAwaitingAnswer, false, "candle", []string{"answer:candle"}, nil},
		{"option number", domain.StateAwaitingAnswer, false, "2", []string{"choice:candle"}, nil},
		{"number out of range is an answer", domain.StateAwaitingAnswer, false, "7", []string{"answer:7"}, nil},
		{"option number while listening", domain.StateAwaitingAnswer, true, "4", []string{"choice:bucket"}, nil},
		{"speech while listening", domain.StateAwaitingAnswer, true, "candle", nil, []string{"candle"}},
		{"typed next", domain.StateAwaitingCommand, false, "n", []string{"next"}, nil},
		{"spoken phrase typed", domain.StateAwaitingCommand, false, "please go home", []string{"home"}, nil},
		{"unknown command", domain.StateAwaitingCommand, false, "banana", nil, nil},
		{"command while listening", domain.StateAwaitingCommand, true, "next word", nil, []string{"next word"}},
		{"busy while presenting", domain.StatePresenting, false, "candle", nil, nil},
		{"blank line", domain.StateAwaitingAnswer, false, "   ", nil, nil},
		{"slash mode", domain.StateAwaitingAnswer, false, "/mode silent", []string{"mode:silent"}, nil},
		{"slash level", domain.StateSetup, false, "/level B1", []string{"level:B1"}, nil},
		{"slash home", domain.StateAwaitingAnswer, false, "/home", []string{"home"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuiz{snap: conversation.Snapshot{State: tt.state, Challenge: testChallenge()}}
			speech := &fakeTranscripts{listening: tt.listening}
			var out bytes.Buffer
			c := &console{quiz: q, speech: speech, out: &out}

			if quit := c.handle(context.Background(), tt.line); quit {
				t.Fatal("unexpected quit")
			}
			if strings.Join(q.calls, ",") != strings.Join(tt.calls, ",") {
				t.Errorf("calls = %v, want %v", q.calls, tt.calls)
			}
			if strings.Join(speech.delivered, ",") != strings.Join(tt.delivered, ",") {
				t.Errorf("delivered = %v, want %v", speech.delivered, tt.delivered)
			}
		})
	}
}

func TestConsole_Quit(t *testing.T) {
	for _, line := range []string{"/quit", "/exit", "/q"} {
		c := &console{quiz: &fakeQuiz{}, out: &bytes.Buffer{}}
		if !c.handle(context.Background(), line) {
			t.Errorf("%q did not quit", line)
		}
	}
}

func TestConsole_ReportsInvalidAction(t *testing.T) {
	q := &fakeQuiz{
		snap: conversation.Snapshot{State: domain.StateAwaitingCommand},
		err:  domain.ErrInvalidAction,
	}
	var out bytes.Buffer
	c := &console{quiz: q, out: &out}

	c.handle(context.Background(), "next")
	if !strings.Contains(out.String(), "Not now") {
		t.Errorf("output = %q, want an invalid action notice", out.String())
	}
}

func TestTerminal_Show(t *testing.T) {
	var out bytes.Buffer
	term := &terminal{out: &out}
	silent := conversation.Snapshot{Mode: domain.SpeechSilent, Challenge: testChallenge()}
	voiced := conversation.Snapshot{Mode: domain.SpeechFull, Challenge: testChallenge()}

	term.Show(conversation.Display{Kind: conversation.DisplayChallenge, Snapshot: silent})
	term.Show(conversation.Display{Kind: conversation.DisplayFeedback, Text: "spoken feedback", Snapshot: voiced})
	term.Show(conversation.Display{Kind: conversation.DisplayFeedback, Text: "Correct!", Snapshot: silent})
	term.Show(conversation.Display{Kind: conversation.DisplayState, Snapshot: silent})

	got := out.String()
	for _, want := range []string{"She lit a _____", "  2) candle", "Correct!"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "spoken feedback") {
		t.Error("voiced feedback should not be printed twice")
	}
}

func TestTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parlanced.log")
	var content strings.Builder
	for i := range 100 {
		content.WriteString(strings.Repeat("x", 10))
		content.WriteString(" line ")
		content.WriteString(string(rune('a' + i%26)))
		content.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(content.String()), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := tail(&out, f, 60); err != nil {
		t.Fatalf("tail() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) == 0 || len(lines) > 4 {
		t.Fatalf("lines = %d, want a few complete lines", len(lines))
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "xxxxxxxxxx line ") {
			t.Errorf("partial line %q", l)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	root := NewRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := out.String(); got != "parlance dev\n" {
		t.Errorf("output = %q", got)
	}
}

func TestVocabListCommand(t *testing.T) {
	root := NewRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--dir", t.TempDir(), "vocab", "list", "--level", "A1"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "WORD") || !strings.Contains(out.String(), "entries (memory)") {
		t.Errorf("output = %q", out.String())
	}
}
