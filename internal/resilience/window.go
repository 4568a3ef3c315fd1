package resilience

import (
	"sync"
	"time"
)

// Limiter is a sliding-window admission gate: at most ceiling events may be
// recorded within any window-length interval.
//
// CanAdmit and TimeUntilNextSlot never mutate state; Record is the only
// mutator and prunes timestamps that have aged out of the window.
type Limiter struct {
	mu         sync.Mutex
	ceiling    int
	window     time.Duration
	timestamps []time.Time
	now        func() time.Time
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		l.now = now
	}
}

// DefaultCeiling and DefaultWindow admit 60 calls per minute.
const (
	DefaultCeiling = 60
	DefaultWindow  = time.Minute
)

// NewLimiter creates a limiter admitting ceiling events per window.
// Non-positive values fall back to the defaults.
func NewLimiter(ceiling int, window time.Duration, opts ...LimiterOption) *Limiter {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		ceiling: ceiling,
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CanAdmit reports whether an event recorded now would stay within the ceiling.
func (l *Limiter) CanAdmit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inWindow(l.now()) < l.ceiling
}

// Record stores the current time as an admitted event.
func (l *Limiter) Record() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	l.timestamps = append(l.timestamps, now)
}

// TimeUntilNextSlot returns how long until CanAdmit would become true,
// or zero when a slot is already free.
func (l *Limiter) TimeUntilNextSlot() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	var live []time.Time
	for _, ts := range l.timestamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}
	if len(live) < l.ceiling {
		return 0
	}

	// The slot frees once enough of the oldest timestamps have aged out.
	oldest := live[len(live)-l.ceiling]
	wait := oldest.Add(l.window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

func (l *Limiter) inWindow(now time.Time) int {
	cutoff := now.Add(-l.window)
	n := 0
	for _, ts := range l.timestamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.timestamps) && !l.timestamps[i].After(cutoff) {
		i++
	}
	l.timestamps = l.timestamps[i:]
}
