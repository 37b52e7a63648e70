package notify

import (
	"context"

	"github.com/kozaktomas/face-touch/internal/dispatch"
	"github.com/sirupsen/logrus"
)

// Async hands notifications to a background group so slow sinks never hold up
// the caller. Delivery errors are logged; Notify only reports dropped work.
type Async struct {
	next  Notifier
	group *dispatch.Group
	log   logrus.FieldLogger
}

// NewAsync delivers through next on group.
func NewAsync(next Notifier, group *dispatch.Group, log logrus.FieldLogger) *Async {
	return &Async{next: next, group: group, log: log}
}

// Notify implements Notifier. It returns dispatch.ErrFull when the notification
// was dropped because earlier deliveries are still running.
func (a *Async) Notify(_ context.Context, n Notification) error {
	return a.group.Go(func(ctx context.Context) {
		if err := a.next.Notify(ctx, n); err != nil {
			a.log.WithError(err).WithField("notification_id", n.ID).Warn("notification delivery failed")
		}
	})
}
