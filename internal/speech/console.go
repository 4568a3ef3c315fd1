package speech

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// TextSynthesizer "synthesizes" by wrapping the text itself. Paired with
// ConsolePlayer it gives a voice loop that runs in a terminal.
type TextSynthesizer struct{}

func (TextSynthesizer) Synthesize(ctx context.Context, text string) (Audio, error) {
	if err := ctx.Err(); err != nil {
		return Audio{}, err
	}
	return Audio{Data: []byte(text), ContentType: "text/plain"}, nil
}

// ConsolePlayer prints text artifacts to a writer.
type ConsolePlayer struct {
	mu     sync.Mutex
	out    io.Writer
	prefix string
}

// NewConsolePlayer creates a player writing to out.
func NewConsolePlayer(out io.Writer) *ConsolePlayer {
	return &ConsolePlayer{out: out, prefix: "🔊 "}
}

func (p *ConsolePlayer) Play(ctx context.Context, audio Audio) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if audio.ContentType != "text/plain" {
		return fmt.Errorf("%w: console cannot play %s", ErrUnsupported, audio.ContentType)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.out, "%s%s\n", p.prefix, audio.Data)
	return err
}

func (p *ConsolePlayer) StopPlayback() {}

// ConsoleRecognizer treats each input line as one utterance.
type ConsoleRecognizer struct {
	in   io.Reader
	once sync.Once
	// lines is closed when the reader is exhausted
	lines chan string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewConsoleRecognizer creates a recognizer reading lines from in.
func NewConsoleRecognizer(in io.Reader) *ConsoleRecognizer {
	return &ConsoleRecognizer{in: in, lines: make(chan string)}
}

func (r *ConsoleRecognizer) pump() {
	scanner := bufio.NewScanner(r.in)
	for scanner.Scan() {
		r.lines <- scanner.Text()
	}
	close(r.lines)
}

// ListenOnce waits for the next line. Blank lines report ErrNoSpeech and
// end of input reports ErrInputClosed.
func (r *ConsoleRecognizer) ListenOnce(ctx context.Context) (string, error) {
	r.once.Do(func() { go r.pump() })

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	select {
	case <-ctx.Done():
		return "", ErrCancelled
	case line, ok := <-r.lines:
		if !ok {
			return "", ErrInputClosed
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return "", ErrNoSpeech
		}
		return line, nil
	}
}

func (r *ConsoleRecognizer) CancelListening() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

var (
	_ Synthesizer = TextSynthesizer{}
	_ Player      = (*ConsolePlayer)(nil)
	_ Recognizer  = (*ConsoleRecognizer)(nil)
)
