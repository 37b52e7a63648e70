// Package alert decides when a touching detection becomes an audible alert.
//
// The Gate is armed until it fires, then cools down until the sound player
// reports that the sound finished. There is no timer behind the cooldown: a
// player that never reports finishing keeps the gate cooling for good.
package alert

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-touch/internal/classifier"
	"github.com/kozaktomas/face-touch/internal/constants"
	"github.com/kozaktomas/face-touch/internal/dispatch"
	"github.com/kozaktomas/face-touch/internal/notify"
	"github.com/sirupsen/logrus"
)

// State is the cooldown state of a Gate.
type State int

const (
	Armed State = iota
	Cooling
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Cooling:
		return "cooling"
	default:
		return "unknown"
	}
}

// MarshalText lets State render as its name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Player plays the alert sound. It must call finished exactly once when the
// sound is over, possibly from another goroutine. A returned error means the
// sound never started and finished will not be called.
type Player interface {
	Play(ctx context.Context, finished func()) error
}

// Decision is the gate's verdict on one classification.
type Decision struct {
	Touched    bool    `json:"touched"`
	Fired      bool    `json:"fired"`
	Confidence float64 `json:"confidence"`
}

// Options configures a Gate.
type Options struct {
	Threshold  float64          // touching confidence must be strictly above this
	TouchLabel classifier.Label // label that counts as touching
	SessionID  string
	Language   string // notification language
}

// Gate turns classification results into alerts.
type Gate struct {
	threshold float64
	touch     classifier.Label
	sessionID string
	player    Player
	notifier  notify.Notifier
	messages  notify.Messages
	log       logrus.FieldLogger

	mu    sync.Mutex
	state State
	fired uint64
}

// NewGate creates an armed gate. notifier may be nil.
func NewGate(opts Options, player Player, notifier notify.Notifier, log logrus.FieldLogger) *Gate {
	if opts.Threshold <= 0 {
		opts.Threshold = constants.DefaultTouchConfidence
	}
	if opts.TouchLabel == "" {
		opts.TouchLabel = classifier.Touching
	}
	return &Gate{
		threshold: opts.Threshold,
		touch:     opts.TouchLabel,
		sessionID: opts.SessionID,
		player:    player,
		notifier:  notifier,
		messages:  notify.NewMessages(opts.Language),
		log:       log,
		state:     Armed,
	}
}

// Observe feeds one classification result through the gate. Touching results
// fire the sound only while armed; every touching result is forwarded to the
// notifier, whose own cooldown rate limits it. The notifier is called inline,
// so a slow one should be wrapped in notify.Async.
func (g *Gate) Observe(ctx context.Context, res classifier.Result) Decision {
	conf := res.Confidence(g.touch)
	d := Decision{
		Touched:    res.Label == g.touch && conf > g.threshold,
		Confidence: conf,
	}
	if !d.Touched {
		return d
	}

	g.mu.Lock()
	if g.state == Armed {
		g.state = Cooling
		g.fired++
		d.Fired = true
	}
	g.mu.Unlock()

	if d.Fired {
		if err := g.player.Play(ctx, g.SoundFinished); err != nil {
			// No finished signal can follow a sound that never started.
			g.log.WithError(err).Error("alert sound failed to start, rearming")
			g.SoundFinished()
		}
	}

	g.notify(ctx, conf)
	return d
}

func (g *Gate) notify(ctx context.Context, conf float64) {
	if g.notifier == nil {
		return
	}
	n := notify.Notification{
		ID:         uuid.NewString(),
		SessionID:  g.sessionID,
		Title:      g.messages.Title(),
		Body:       g.messages.Body(conf),
		Confidence: conf,
		At:         time.Now(),
	}
	if err := g.notifier.Notify(ctx, n); err != nil {
		switch {
		case errors.Is(err, notify.ErrThrottled):
			g.log.Debug("notification throttled")
		case errors.Is(err, dispatch.ErrFull):
			g.log.Warn("notification dropped, earlier deliveries still running")
		default:
			g.log.WithError(err).Warn("notification failed")
		}
	}
}

// SoundFinished rearms the gate. It is the only way out of Cooling.
func (g *Gate) SoundFinished() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Cooling {
		g.state = Armed
		g.log.Debug("alert gate rearmed")
	}
}

// State returns the current cooldown state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Fired returns how many times the alert fired.
func (g *Gate) Fired() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fired
}
