// Package notify delivers "touching face" notifications to external channels.
// Delivery failures are reported to the caller but are never fatal to detection.
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrThrottled is returned when a notification falls inside the cooldown window.
var ErrThrottled = errors.New("notification throttled")

// Notification is one alert sent to the outside world.
type Notification struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id,omitempty"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// Notifier sends notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification) error

// Notify implements Notifier.
func (f Func) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
