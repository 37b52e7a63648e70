package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-touch/internal/alert"
	"github.com/kozaktomas/face-touch/internal/classifier"
	"github.com/kozaktomas/face-touch/internal/config"
	"github.com/kozaktomas/face-touch/internal/constants"
	"github.com/kozaktomas/face-touch/internal/dispatch"
	"github.com/kozaktomas/face-touch/internal/embedding"
	"github.com/kozaktomas/face-touch/internal/frame"
	"github.com/kozaktomas/face-touch/internal/journal"
	"github.com/kozaktomas/face-touch/internal/notify"
	"github.com/kozaktomas/face-touch/internal/session"
	"github.com/sirupsen/logrus"
)

// components is one fully wired session.
type components struct {
	sessionID string
	push      *frame.PushSource    // set in push mode
	browser   *alert.BrowserPlayer // set when the browser plays the sound
	gate      *alert.Gate
	ctrl      *session.Controller
	journal   *journal.Repository
	closers   []io.Closer
}

// Close releases resources in reverse order of acquisition, so background
// work drains before the connections it uses are closed.
func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i].Close()
	}
}

func newSource(cfg *config.Config, log logrus.FieldLogger) (frame.Source, *frame.PushSource, error) {
	switch cfg.Camera.Source {
	case "push":
		push := frame.NewPushSource(cfg.Camera.OpenTimeout)
		return push, push, nil
	case "dir":
		if cfg.Camera.Dir == "" {
			return nil, nil, fmt.Errorf("camera source dir needs CAMERA_DIR")
		}
		return frame.NewDirSource(cfg.Camera.Dir, cfg.Camera.FPS), nil, nil
	case "snapshot":
		if cfg.Camera.SnapshotURL == "" {
			return nil, nil, fmt.Errorf("camera source snapshot needs CAMERA_SNAPSHOT_URL")
		}
		return frame.NewSnapshotSource(cfg.Camera.SnapshotURL, cfg.Camera.FPS, log), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown camera source %q", cfg.Camera.Source)
	}
}

// newNotifier fans out to the log and every configured sink, rate limited by
// the notification cooldown and delivered in the background. Sinks that cannot
// connect are skipped with a warning.
func (c *components) newNotifier(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) notify.Notifier {
	sinks := notify.Multi{notify.NewLogNotifier(log)}

	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout))
		log.Info("webhook notifications enabled")
	}

	if cfg.Notify.MQTTBroker != "" {
		m, err := notify.NewMQTT(cfg.Notify.MQTTBroker, "face-touch-"+c.sessionID[:8], cfg.Notify.MQTTTopic,
			cfg.Notify.Timeout, log)
		if err != nil {
			log.WithError(err).Warn("MQTT notifications disabled")
		} else {
			sinks = append(sinks, m)
			c.closers = append(c.closers, m)
			log.WithField("topic", cfg.Notify.MQTTTopic).Info("MQTT notifications enabled")
		}
	}

	if cfg.Notify.RedisURL != "" {
		r, err := notify.NewRedis(cfg.Notify.RedisURL, cfg.Notify.RedisChannel)
		if err == nil {
			err = r.Ping(ctx)
		}
		if err != nil {
			log.WithError(err).Warn("Redis notifications disabled")
		} else {
			sinks = append(sinks, r)
			c.closers = append(c.closers, r)
			log.WithField("channel", cfg.Notify.RedisChannel).Info("Redis notifications enabled")
		}
	}

	group := dispatch.New(constants.NotifyWorkers, constants.BackgroundTaskTimeout)
	c.closers = append(c.closers, group)
	return notify.NewThrottled(notify.NewAsync(sinks, group, log), cfg.Notify.Cooldown)
}

// newPlayer picks the alert sound player: the configured command, else the
// browser when one is attached, else the terminal bell.
func (c *components) newPlayer(cfg *config.Config, log logrus.FieldLogger, browser bool) alert.Player {
	switch {
	case cfg.Alert.SoundCommand != "":
		return alert.NewCommandPlayer(cfg.Alert.SoundCommand, cfg.Alert.SoundArgs, log)
	case browser:
		c.browser = alert.NewBrowserPlayer(func() bool { return c.ctrl.Listeners() > 0 })
		return c.browser
	default:
		return alert.NewBellPlayer(os.Stdout, bellHold)
	}
}

// buildSession wires frame source, extractor, store, gate and journal into a
// session controller. browser tells whether a browser page is attached.
func buildSession(ctx context.Context, cfg *config.Config, log *logrus.Logger, browser bool) (*components, error) {
	c := &components{sessionID: uuid.NewString()}
	sessLog := log.WithField("session_id", c.sessionID)

	src, push, err := newSource(cfg, sessLog)
	if err != nil {
		return nil, err
	}
	c.push = push

	store, err := classifier.NewStore(classifier.Options{K: cfg.Classifier.K, Index: cfg.Classifier.Index})
	if err != nil {
		return nil, fmt.Errorf("create example store: %w", err)
	}

	extractor := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Dim, cfg.Embedding.InputSize)

	player := c.newPlayer(cfg, sessLog, browser)
	notifier := c.newNotifier(ctx, cfg, sessLog)
	c.gate = alert.NewGate(alert.Options{
		Threshold: cfg.Classifier.TouchConfidence,
		SessionID: c.sessionID,
		Language:  cfg.Notify.Language,
	}, player, notifier, sessLog)

	c.ctrl = session.New(session.Options{
		SessionID: c.sessionID,
		Burst: session.BurstOptions{
			Count:    cfg.Session.BurstSize,
			Interval: cfg.Session.SampleInterval,
		},
		RunInterval: cfg.Session.RunInterval,
	}, src, extractor, store, c.gate, log)

	if cfg.Database.URL != "" {
		repo, pool, err := journal.Open(ctx, &cfg.Database, log)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		c.journal = repo
		group := dispatch.New(constants.JournalWorkers, constants.BackgroundTaskTimeout)
		c.closers = append(c.closers, pool, group)
		c.ctrl.SetRecorder(session.NewBackgroundRecorder(repo, group, sessLog))
		log.Info("touch journal enabled (PostgreSQL)")
	}

	return c, nil
}
