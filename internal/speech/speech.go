// Package speech defines single-shot speech synthesis, playback and
// recognition, with adapters for Google Cloud TTS, the console and
// remote presentation layers.
package speech

import (
	"context"
	"errors"
)

var (
	// ErrNoSpeech means a listening session ended without a transcript.
	ErrNoSpeech = errors.New("no speech detected")
	// ErrUnsupported means the adapter cannot perform the operation.
	ErrUnsupported = errors.New("speech operation not supported")
	// ErrCancelled means the listening session was cancelled.
	ErrCancelled = errors.New("listening cancelled")
	// ErrInputClosed means the recognizer's source is exhausted and no
	// further session can succeed.
	ErrInputClosed = errors.New("speech input closed")
)

// Audio is an opaque synthesized artifact.
type Audio struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

// Empty reports whether the artifact carries no data.
func (a Audio) Empty() bool {
	return len(a.Data) == 0
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Player plays synthesized audio. StopPlayback aborts whatever is playing.
type Player interface {
	Play(ctx context.Context, audio Audio) error
	StopPlayback()
}

// Recognizer captures a single utterance per call.
type Recognizer interface {
	// ListenOnce blocks until one transcript is available, the session fails,
	// or ctx is done.
	ListenOnce(ctx context.Context) (string, error)
	// CancelListening aborts the active ListenOnce call, if any.
	CancelListening()
}

// Provider is the full speech I/O surface used by the conversation engine.
type Provider interface {
	Synthesizer
	Player
	Recognizer
}

// Device composes independent adapters into a Provider.
type Device struct {
	Synthesizer
	Player
	Recognizer
}

// NewDevice builds a Provider from its parts. Nil parts are replaced by NoOp.
func NewDevice(s Synthesizer, p Player, r Recognizer) *Device {
	noop := NoOp{}
	if s == nil {
		s = noop
	}
	if p == nil {
		p = noop
	}
	if r == nil {
		r = noop
	}
	return &Device{Synthesizer: s, Player: p, Recognizer: r}
}

var _ Provider = (*Device)(nil)
