package speech

import "context"

// NoOp is a Provider that neither speaks nor hears.
type NoOp struct{}

func (NoOp) Synthesize(ctx context.Context, text string) (Audio, error) {
	return Audio{}, ErrUnsupported
}

func (NoOp) Play(ctx context.Context, audio Audio) error { return nil }

func (NoOp) StopPlayback() {}

func (NoOp) ListenOnce(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ErrCancelled
}

func (NoOp) CancelListening() {}

var _ Provider = NoOp{}
