package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// NewLogNotifier returns a notifier writing notifications to log at warn
// level. It is always part of the fan-out.
func NewLogNotifier(log logrus.FieldLogger) Func {
	return func(_ context.Context, n Notification) error {
		log.WithFields(logrus.Fields{
			"notification_id": n.ID,
			"session_id":      n.SessionID,
			"confidence":      n.Confidence,
		}).Warn(n.Title + ": " + n.Body)
		return nil
	}
}
