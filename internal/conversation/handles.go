package conversation

import (
	"context"
	"sync"
)

// handles tracks cancel funcs for in-flight work (fetches, backoff waits,
// playback) so a reset can tear everything down in registration order.
type handles struct {
	mu      sync.Mutex
	next    uint64
	order   []uint64
	cancels map[uint64]context.CancelFunc
}

func newHandles() *handles {
	return &handles{cancels: make(map[uint64]context.CancelFunc)}
}

// Track derives a cancellable context from parent. release must be called
// when the work completes.
func (h *handles) Track(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	h.mu.Lock()
	id := h.next
	h.next++
	h.cancels[id] = cancel
	h.order = append(h.order, id)
	h.mu.Unlock()

	release := func() {
		h.mu.Lock()
		delete(h.cancels, id)
		for i, v := range h.order {
			if v == id {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
		h.mu.Unlock()
		cancel()
	}
	return ctx, release
}

// CancelAll cancels every tracked context and returns how many there were.
func (h *handles) CancelAll() int {
	h.mu.Lock()
	order := h.order
	cancels := h.cancels
	h.order = nil
	h.cancels = make(map[uint64]context.CancelFunc)
	h.mu.Unlock()

	for _, id := range order {
		cancels[id]()
	}
	return len(order)
}

// Len returns the number of tracked contexts.
func (h *handles) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.order)
}
