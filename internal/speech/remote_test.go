package speech

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitListening(t *testing.T, r *RemoteRecognizer) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !r.Listening() {
		if time.Now().After(deadline) {
			t.Fatal("recognizer never started listening")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRemoteRecognizer_Deliver(t *testing.T) {
	r := NewRemoteRecognizer()

	if err := r.Deliver("too early"); !errors.Is(err, ErrNotListening) {
		t.Errorf("Deliver() before listening = %v, want ErrNotListening", err)
	}

	result := make(chan string, 1)
	go func() {
		text, _ := r.ListenOnce(context.Background())
		result <- text
	}()
	waitListening(t, r)

	if err := r.Deliver("go home"); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if got := <-result; got != "go home" {
		t.Errorf("ListenOnce() = %q, want go home", got)
	}
	if r.Listening() {
		t.Error("session should end after delivery")
	}
}

func TestRemoteRecognizer_EmptyTranscript(t *testing.T) {
	r := NewRemoteRecognizer()

	errs := make(chan error, 1)
	go func() {
		_, err := r.ListenOnce(context.Background())
		errs <- err
	}()
	waitListening(t, r)

	if err := r.Deliver(""); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if err := <-errs; !errors.Is(err, ErrNoSpeech) {
		t.Errorf("ListenOnce() error = %v, want ErrNoSpeech", err)
	}
}

func TestRemoteRecognizer_Cancel(t *testing.T) {
	r := NewRemoteRecognizer()

	errs := make(chan error, 1)
	go func() {
		_, err := r.ListenOnce(context.Background())
		errs <- err
	}()
	waitListening(t, r)

	r.CancelListening()

	select {
	case err := <-errs:
		if !errors.Is(err, ErrCancelled) {
			t.Errorf("ListenOnce() error = %v, want ErrCancelled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ListenOnce() did not return after CancelListening")
	}
}

func TestNewDevice_FillsNoOp(t *testing.T) {
	d := NewDevice(nil, nil, nil)

	if _, err := d.Synthesize(context.Background(), "hi"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Synthesize() error = %v, want ErrUnsupported", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.ListenOnce(ctx); !errors.Is(err, ErrCancelled) {
		t.Errorf("ListenOnce() error = %v, want ErrCancelled", err)
	}
}
