package alert

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-touch/internal/classifier"
	"github.com/kozaktomas/face-touch/internal/dispatch"
	"github.com/kozaktomas/face-touch/internal/logging"
	"github.com/kozaktomas/face-touch/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPlayer struct {
	mu       sync.Mutex
	plays    int
	finished []func()
	err      error
}

func (p *recordingPlayer) Play(_ context.Context, finished func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.plays++
	p.finished = append(p.finished, finished)
	return nil
}

func (p *recordingPlayer) finishLast() {
	p.mu.Lock()
	f := p.finished[len(p.finished)-1]
	p.mu.Unlock()
	f()
}

type countingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (n *countingNotifier) Notify(_ context.Context, msg notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func result(label classifier.Label, touching float64) classifier.Result {
	return classifier.Result{
		Label: label,
		Confidences: map[classifier.Label]float64{
			classifier.Touching:    touching,
			classifier.NotTouching: 1 - touching,
		},
	}
}

func newTestGate(p Player, n notify.Notifier) *Gate {
	return NewGate(Options{Threshold: 0.8, SessionID: "s1"}, p, n, logging.Discard())
}

func TestGate_ThresholdIsStrict(t *testing.T) {
	tests := []struct {
		name      string
		res       classifier.Result
		wantTouch bool
	}{
		{"exactly at threshold", result(classifier.Touching, 0.8), false},
		{"just above threshold", result(classifier.Touching, 0.80001), true},
		{"certain", result(classifier.Touching, 1.0), true},
		{"below threshold", result(classifier.Touching, 0.6), false},
		{"not touching label", result(classifier.NotTouching, 0.1), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &recordingPlayer{}
			g := newTestGate(p, nil)

			d := g.Observe(context.Background(), tc.res)

			assert.Equal(t, tc.wantTouch, d.Touched)
			assert.Equal(t, tc.wantTouch, d.Fired)
			assert.InDelta(t, tc.res.Confidences[classifier.Touching], d.Confidence, 1e-9)
			if tc.wantTouch {
				assert.Equal(t, 1, p.plays)
				assert.Equal(t, Cooling, g.State())
			} else {
				assert.Equal(t, 0, p.plays)
				assert.Equal(t, Armed, g.State())
			}
		})
	}
}

func TestGate_FiresOnceUntilSoundFinished(t *testing.T) {
	p := &recordingPlayer{}
	g := newTestGate(p, nil)
	ctx := context.Background()

	d := g.Observe(ctx, result(classifier.Touching, 0.9))
	require.True(t, d.Fired)

	for range 5 {
		d = g.Observe(ctx, result(classifier.Touching, 0.99))
		assert.True(t, d.Touched)
		assert.False(t, d.Fired, "cooling gate must not fire")
	}
	assert.Equal(t, 1, p.plays)
	assert.Equal(t, uint64(1), g.Fired())

	p.finishLast()
	assert.Equal(t, Armed, g.State())

	d = g.Observe(ctx, result(classifier.Touching, 0.9))
	assert.True(t, d.Fired)
	assert.Equal(t, 2, p.plays)
}

func TestGate_NonTouchingDoesNotRearm(t *testing.T) {
	p := &recordingPlayer{}
	g := newTestGate(p, nil)
	ctx := context.Background()

	g.Observe(ctx, result(classifier.Touching, 0.9))
	for range 3 {
		g.Observe(ctx, result(classifier.NotTouching, 0.1))
	}

	assert.Equal(t, Cooling, g.State())
	d := g.Observe(ctx, result(classifier.Touching, 0.9))
	assert.False(t, d.Fired)
}

func TestGate_SoundFinishedWhileArmedIsNoop(t *testing.T) {
	g := newTestGate(&recordingPlayer{}, nil)
	g.SoundFinished()
	assert.Equal(t, Armed, g.State())
	assert.Equal(t, uint64(0), g.Fired())
}

func TestGate_PlayFailureRearms(t *testing.T) {
	p := &recordingPlayer{err: errors.New("no audio device")}
	g := newTestGate(p, nil)

	d := g.Observe(context.Background(), result(classifier.Touching, 0.9))

	assert.True(t, d.Fired)
	assert.Equal(t, Armed, g.State())
}

func TestGate_NotifiesEveryTouchingResult(t *testing.T) {
	n := &countingNotifier{}
	g := newTestGate(&recordingPlayer{}, n)
	ctx := context.Background()

	g.Observe(ctx, result(classifier.Touching, 0.9))
	g.Observe(ctx, result(classifier.Touching, 0.95))
	g.Observe(ctx, result(classifier.NotTouching, 0.2))

	require.Len(t, n.sent, 2)
	assert.Equal(t, "s1", n.sent[0].SessionID)
	assert.Equal(t, "Touching face", n.sent[0].Title)
	assert.NotEqual(t, n.sent[0].ID, n.sent[1].ID)
	assert.InDelta(t, 0.95, n.sent[1].Confidence, 1e-9)
}

func TestGate_NotifierErrorsDoNotAffectGate(t *testing.T) {
	for _, err := range []error{notify.ErrThrottled, errors.New("broker down")} {
		n := &countingNotifier{err: err}
		g := newTestGate(&recordingPlayer{}, n)

		d := g.Observe(context.Background(), result(classifier.Touching, 0.9))
		assert.True(t, d.Fired)
		assert.Equal(t, Cooling, g.State())
	}
}

func TestGate_SlowNotifierDoesNotStallObserve(t *testing.T) {
	group := dispatch.New(1, time.Second)
	release := make(chan struct{})
	hanging := notify.Func(func(ctx context.Context, _ notify.Notification) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return ctx.Err()
	})
	n := notify.NewThrottled(notify.NewAsync(hanging, group, logging.Discard()), time.Millisecond)
	g := newTestGate(&recordingPlayer{}, n)

	start := time.Now()
	for range 5 {
		g.Observe(context.Background(), result(classifier.Touching, 0.9))
		time.Sleep(2 * time.Millisecond)
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Positive(t, group.Dropped())

	close(release)
	require.NoError(t, group.Close())
}

func TestGate_ThrottledNotifierRateLimits(t *testing.T) {
	n := &countingNotifier{}
	g := newTestGate(&recordingPlayer{}, notify.NewThrottled(n, time.Hour))
	ctx := context.Background()

	for range 4 {
		g.Observe(ctx, result(classifier.Touching, 0.9))
	}
	assert.Len(t, n.sent, 1)
}

func TestBrowserPlayer_Finished(t *testing.T) {
	p := NewBrowserPlayer(nil)
	g := newTestGate(p, nil)

	assert.False(t, p.Finished(), "nothing pending before any alert")

	g.Observe(context.Background(), result(classifier.Touching, 0.9))
	require.Equal(t, Cooling, g.State())

	assert.True(t, p.Finished())
	assert.Equal(t, Armed, g.State())
	assert.False(t, p.Finished(), "finished is consumed once")
}

func TestBrowserPlayer_NoListenerKeepsGateArmed(t *testing.T) {
	attached := false
	p := NewBrowserPlayer(func() bool { return attached })
	g := newTestGate(p, nil)

	d := g.Observe(context.Background(), result(classifier.Touching, 0.9))
	assert.True(t, d.Fired)
	assert.Equal(t, Armed, g.State())
	assert.ErrorIs(t, p.Play(context.Background(), func() {}), ErrNoListener)

	attached = true
	g.Observe(context.Background(), result(classifier.Touching, 0.9))
	assert.Equal(t, Cooling, g.State())
	assert.True(t, p.Finished())
	assert.Equal(t, Armed, g.State())
}

func TestBellPlayer_RingsAndFinishes(t *testing.T) {
	var out bytes.Buffer
	p := NewBellPlayer(&out, time.Millisecond)
	done := make(chan struct{})

	require.NoError(t, p.Play(context.Background(), func() { close(done) }))
	assert.Equal(t, "\a", out.String())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bell player never finished")
	}
}

func TestCommandPlayer(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true command not available")
	}

	p := NewCommandPlayer("true", nil, logging.Discard())
	done := make(chan struct{})
	require.NoError(t, p.Play(context.Background(), func() { close(done) }))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("command player never finished")
	}

	missing := NewCommandPlayer("face-touch-no-such-player", nil, logging.Discard())
	assert.Error(t, missing.Play(context.Background(), func() {}))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "armed", Armed.String())
	assert.Equal(t, "cooling", Cooling.String())
	assert.Equal(t, "unknown", State(9).String())
}
