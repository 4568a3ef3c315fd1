package speech

import (
	"context"
	"errors"
	"sync"
)

// ErrNotListening is returned when a transcript arrives with no active
// listening session.
var ErrNotListening = errors.New("no active listening session")

type recognition struct {
	text string
	err  error
}

// RemoteRecognizer receives transcripts from a presentation layer (for
// example a browser posting to the daemon) and hands them to the single
// active ListenOnce call.
type RemoteRecognizer struct {
	mu      sync.Mutex
	waiting chan recognition
	cancel  context.CancelFunc
}

// NewRemoteRecognizer creates a recognizer with no active session.
func NewRemoteRecognizer() *RemoteRecognizer {
	return &RemoteRecognizer{}
}

func (r *RemoteRecognizer) ListenOnce(ctx context.Context) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan recognition, 1)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.waiting = ch
	r.cancel = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.waiting == ch {
			r.waiting = nil
			r.cancel = nil
		}
		r.mu.Unlock()
		cancel()
	}()

	select {
	case <-ctx.Done():
		return "", ErrCancelled
	case res := <-ch:
		return res.text, res.err
	}
}

// Listening reports whether a ListenOnce call is waiting.
func (r *RemoteRecognizer) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiting != nil
}

// Deliver completes the active session with a transcript. An empty
// transcript completes it with ErrNoSpeech.
func (r *RemoteRecognizer) Deliver(text string) error {
	if text == "" {
		return r.Fail(ErrNoSpeech)
	}
	return r.complete(recognition{text: text})
}

// Fail completes the active session with an error.
func (r *RemoteRecognizer) Fail(err error) error {
	return r.complete(recognition{err: err})
}

func (r *RemoteRecognizer) complete(res recognition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waiting == nil {
		return ErrNotListening
	}
	select {
	case r.waiting <- res:
	default:
		return ErrNotListening
	}
	r.waiting = nil
	r.cancel = nil
	return nil
}

func (r *RemoteRecognizer) CancelListening() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.waiting = nil
	r.cancel = nil
}

var _ Recognizer = (*RemoteRecognizer)(nil)
