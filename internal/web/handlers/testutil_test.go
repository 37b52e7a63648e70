package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/kozaktomas/face-touch/internal/alert"
	"github.com/kozaktomas/face-touch/internal/classifier"
	"github.com/kozaktomas/face-touch/internal/embedding"
	"github.com/kozaktomas/face-touch/internal/frame"
	"github.com/kozaktomas/face-touch/internal/logging"
	"github.com/kozaktomas/face-touch/internal/session"
)

// stubExtractor embeds a frame as a vector derived from its first pixel bytes.
type stubExtractor struct{}

func (stubExtractor) Load(context.Context) error { return nil }

func (stubExtractor) Embed(_ context.Context, f frame.Frame) (embedding.Embedding, error) {
	return embedding.Embedding{1, float32(len(f.Data) % 7), float32(f.Seq % 3)}, nil
}

// testSession bundles a controller wired to a push source and a browser player.
type testSession struct {
	ctrl   *session.Controller
	push   *frame.PushSource
	gate   *alert.Gate
	player *alert.BrowserPlayer
}

func newTestSession(t *testing.T, burst int) *testSession {
	t.Helper()
	return newPacedTestSession(t, burst, 0)
}

// newPacedTestSession pauses interval between burst samples.
func newPacedTestSession(t *testing.T, burst int, interval time.Duration) *testSession {
	t.Helper()

	store, err := classifier.NewStore(classifier.Options{K: 3})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	push := frame.NewPushSource(200 * time.Millisecond)
	player := alert.NewBrowserPlayer(nil)
	gate := alert.NewGate(alert.Options{Threshold: 0.8}, player, nil, logging.Discard())
	ctrl := session.New(session.Options{
		Burst:       session.BurstOptions{Count: burst, Interval: interval},
		RunInterval: 5 * time.Millisecond,
	}, push, stubExtractor{}, store, gate, logging.Discard())

	return &testSession{ctrl: ctrl, push: push, gate: gate, player: player}
}

// pngFrame encodes a small solid image.
func pngFrame(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	img.SetGray(0, 0, color.Gray{Y: 255 - shade})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}
