package session

import (
	"context"

	"github.com/kozaktomas/face-touch/internal/dispatch"
	"github.com/sirupsen/logrus"
)

// BackgroundRecorder writes touch episodes on a dispatch group, keeping a slow
// database out of the detection loop.
type BackgroundRecorder struct {
	next  Recorder
	group *dispatch.Group
	log   logrus.FieldLogger
}

// NewBackgroundRecorder records through next on group.
func NewBackgroundRecorder(next Recorder, group *dispatch.Group, log logrus.FieldLogger) *BackgroundRecorder {
	return &BackgroundRecorder{next: next, group: group, log: log}
}

// RecordTouch implements Recorder. It returns dispatch.ErrFull when the
// episode was dropped.
func (b *BackgroundRecorder) RecordTouch(_ context.Context, sessionID string, confidence float64, soundPlayed bool) error {
	return b.group.Go(func(ctx context.Context) {
		if err := b.next.RecordTouch(ctx, sessionID, confidence, soundPlayed); err != nil {
			b.log.WithError(err).Warn("failed to record touch")
		}
	})
}
