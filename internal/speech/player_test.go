package speech

import (
	"context"
	"os/exec"
	"testing"
	"time"
)

func TestCommandPlayer_Play(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	p := NewCommandPlayer("cat")
	if err := p.Play(context.Background(), Audio{Data: []byte("abc"), ContentType: "audio/mpeg"}); err != nil {
		t.Errorf("Play() error = %v", err)
	}
	if err := p.Play(context.Background(), Audio{}); err != nil {
		t.Errorf("Play(empty) error = %v", err)
	}
}

func TestCommandPlayer_StopPlayback(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	p := NewCommandPlayer("sleep", "10")
	done := make(chan error, 1)
	go func() {
		done <- p.Play(context.Background(), Audio{Data: []byte("x")})
	}()

	deadline := time.Now().Add(time.Second)
	for {
		p.mu.Lock()
		started := p.current != nil
		p.mu.Unlock()
		if started {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("player never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	p.StopPlayback()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Play() after stop = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Play() did not return after StopPlayback")
	}
}
