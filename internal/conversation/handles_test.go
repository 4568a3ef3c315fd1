package conversation

import (
	"context"
	"testing"
)

func TestHandles_CancelAll(t *testing.T) {
	h := newHandles()

	ctx1, release1 := h.Track(context.Background())
	ctx2, _ := h.Track(context.Background())
	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}

	release1()
	if ctx1.Err() == nil {
		t.Error("release should cancel its context")
	}
	if h.Len() != 1 {
		t.Errorf("Len() after release = %d, want 1", h.Len())
	}

	if n := h.CancelAll(); n != 1 {
		t.Errorf("CancelAll() = %d, want 1", n)
	}
	if ctx2.Err() == nil {
		t.Error("CancelAll should cancel tracked contexts")
	}
	if h.Len() != 0 {
		t.Errorf("Len() after CancelAll = %d, want 0", h.Len())
	}
}

func TestHandles_ReleaseAfterCancelAll(t *testing.T) {
	h := newHandles()
	_, release := h.Track(context.Background())
	h.CancelAll()
	release()
	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.Len())
	}
}
