package notify

import (
	"context"
	"sync"
	"time"
)

// Throttled drops notifications arriving within cooldown of the last one let through.
// A let-through notification opens the window even if its delivery fails.
type Throttled struct {
	next     Notifier
	cooldown time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
	sent bool
}

// NewThrottled wraps next with a cooldown window.
func NewThrottled(next Notifier, cooldown time.Duration) *Throttled {
	return &Throttled{next: next, cooldown: cooldown, now: time.Now}
}

// Notify implements Notifier.
func (t *Throttled) Notify(ctx context.Context, n Notification) error {
	t.mu.Lock()
	now := t.now()
	if t.sent && now.Sub(t.last) < t.cooldown {
		t.mu.Unlock()
		return ErrThrottled
	}
	t.last = now
	t.sent = true
	t.mu.Unlock()

	return t.next.Notify(ctx, n)
}
