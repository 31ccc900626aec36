package network

import (
	"sync"
	"time"

	"github.com/MRamiBalles/LodgingDesk/server/internal/events"
)

// DefaultNoticeTTL is how long a notice stays up when nothing replaces it.
const DefaultNoticeTTL = 3 * time.Second

// Banner holds the single notice currently on display. Showing a notice
// replaces the previous one and restarts the dismiss timer.
type Banner struct {
	mu       sync.Mutex
	current  *events.Notice
	expires  time.Time
	ttl      time.Duration
	timer    *time.Timer
	gen      uint64
	onChange func(n *events.Notice, expires time.Time)

	notifyMu sync.Mutex // keeps callbacks in generation order
}

// NewBanner creates a banner. onChange is called with the new notice, or
// with nil when the notice is dismissed; it may be nil.
func NewBanner(ttl time.Duration, onChange func(n *events.Notice, expires time.Time)) *Banner {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return &Banner{ttl: ttl, onChange: onChange}
}

// Show displays n, replacing whatever was visible.
func (b *Banner) Show(n events.Notice) {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.current = &n
	b.expires = time.Now().Add(b.ttl)
	expires := b.expires
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.ttl, func() { b.expire(gen) })
	b.mu.Unlock()

	b.notify(gen, &n, expires)
}

// Current returns the visible notice, if any.
func (b *Banner) Current() (events.Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return events.Notice{}, false
	}
	return *b.current, true
}

// Dismiss hides the visible notice immediately.
func (b *Banner) Dismiss() {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.stopLocked()
	b.mu.Unlock()

	b.notify(gen, nil, time.Time{})
}

// Stop cancels the pending timer without notifying.
func (b *Banner) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.stopLocked()
}

func (b *Banner) stopLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.current = nil
	b.expires = time.Time{}
}

// expire runs on the timer goroutine. A stale generation means the notice
// was already replaced or dismissed.
func (b *Banner) expire(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.current = nil
	b.expires = time.Time{}
	b.timer = nil
	b.mu.Unlock()

	b.notify(gen, nil, time.Time{})
}

// notify reports the change made at generation gen. A change that was
// already superseded is skipped; the newer one reports the final state.
func (b *Banner) notify(gen uint64, n *events.Notice, expires time.Time) {
	if b.onChange == nil {
		return
	}
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	stale := gen != b.gen
	b.mu.Unlock()
	if stale {
		return
	}
	b.onChange(n, expires)
}
