package conversation

import (
	"sync"
)

// DisplayKind classifies what the presentation layer should render.
type DisplayKind string

const (
	DisplayState     DisplayKind = "state"
	DisplayChallenge DisplayKind = "challenge"
	DisplayHint      DisplayKind = "hint"
	DisplayFeedback  DisplayKind = "feedback"
	DisplayNotice    DisplayKind = "notice"
)

// Display is emitted to the presentation layer on every transition and
// every piece of text the user should see.
type Display struct {
	Kind     DisplayKind `json:"kind"`
	Text     string      `json:"text,omitempty"`
	Snapshot Snapshot    `json:"snapshot"`
}

// Presenter renders displays. Show runs on the engine goroutine, so it must
// not block and must not call engine actions synchronously.
type Presenter interface {
	Show(d Display)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Display)

func (f PresenterFunc) Show(d Display) { f(d) }

type discardPresenter struct{}

func (discardPresenter) Show(Display) {}

// Broadcaster fans displays out to subscribers. Slow subscribers miss
// displays rather than stalling the engine.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Display]struct{}
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Display]struct{})}
}

// Subscribe returns a display channel and a function that unsubscribes.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Display, func()) {
	ch := make(chan Display, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broadcaster) Show(d Display) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- d:
		default:
		}
	}
}

// Presenters combines several presenters into one.
type Presenters []Presenter

func (ps Presenters) Show(d Display) {
	for _, p := range ps {
		p.Show(d)
	}
}
