package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/felixgeelhaar/parlance/internal/speech"
)

// Purpose says what a listening session is collecting.
type Purpose int

const (
	PurposeAnswer Purpose = iota + 1
	PurposeCommand
)

func (p Purpose) String() string {
	switch p {
	case PurposeAnswer:
		return "answer"
	case PurposeCommand:
		return "command"
	default:
		return "none"
	}
}

// Heard is the outcome of one listening session.
type Heard struct {
	Purpose    Purpose
	Generation uint64
	Transcript string
	Err        error
}

// Listener runs at most one single-shot recognition session at a time.
// Starting a session cancels the previous one and waits for it to finish.
type Listener struct {
	recognizer speech.Recognizer
	results    chan<- Heard
	rearmDelay time.Duration

	mu         sync.Mutex
	generation uint64
	purpose    Purpose
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewListener creates a listener that reports to results. Failed sessions
// are reported after rearmDelay so the caller can re-arm without spinning.
func NewListener(r speech.Recognizer, results chan<- Heard, rearmDelay time.Duration) *Listener {
	return &Listener{recognizer: r, results: results, rearmDelay: rearmDelay}
}

// Start begins a new session for purpose and returns its generation.
func (l *Listener) Start(parent context.Context, purpose Purpose) uint64 {
	l.Stop()

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.purpose = purpose
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	go func() {
		defer close(done)

		text, err := l.recognizer.ListenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, speech.ErrCancelled) && !errors.Is(err, speech.ErrInputClosed) && l.rearmDelay > 0 {
			timer := time.NewTimer(l.rearmDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		select {
		case l.results <- Heard{Purpose: purpose, Generation: gen, Transcript: text, Err: err}:
		case <-ctx.Done():
		}
	}()

	return gen
}

// Stop cancels the active session, if any, and waits for it to end.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.purpose = 0
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	l.recognizer.CancelListening()
	<-done
}

// Current returns the generation and purpose of the active session.
func (l *Listener) Current() (uint64, Purpose, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation, l.purpose, l.cancel != nil
}

// Accept reports whether h belongs to the active session and marks that
// session finished.
func (l *Listener) Accept(h Heard) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel == nil || h.Generation != l.generation {
		return false
	}
	l.cancel()
	l.cancel, l.done = nil, nil
	l.purpose = 0
	return true
}
